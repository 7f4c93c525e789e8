// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/wheels/components"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation error returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	Sim       SimConfig       `yaml:"sim"`
	Motor     MotorConfig     `yaml:"motor"`
	Wear      WearConfig      `yaml:"wear"`
	Scaling   ScalingConfig   `yaml:"scaling"`
	Vehicle   VehicleConfig   `yaml:"vehicle"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Persist   PersistConfig   `yaml:"persist"`
	Log       LogConfig       `yaml:"log"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimConfig holds fixed-step scheduling parameters.
type SimConfig struct {
	DT       float64 `yaml:"dt"`        // seconds per physics tick
	TimeWarp float64 `yaml:"time_warp"` // physics time-warp rate, divides observed speed
	MaxTicks int     `yaml:"max_ticks"` // 0 = unlimited
	Gravity  float64 `yaml:"gravity"`   // m/s^2
}

// MotorConfig holds motor integration parameters shared by every unit.
type MotorConfig struct {
	Substeps        int     `yaml:"substeps"`         // Euler sub-steps per tick
	PowerConversion float64 `yaml:"power_conversion"` // kW of work per EC/s
}

// WearConfig holds the damage model selection and rates.
type WearConfig struct {
	Mode                   components.WearMode `yaml:"mode"`
	StressDamageMultiplier float64             `yaml:"stress_damage_multiplier"` // load stress and suspension wear rate
	SpeedDamageMultiplier  float64             `yaml:"speed_damage_multiplier"`  // overspeed stress and wheel wear rate
	MotorDamageMultiplier  float64             `yaml:"motor_damage_multiplier"`  // overheat motor wear rate
	MotorHeatMultiplier    float64             `yaml:"motor_heat_multiplier"`    // fraction of motor losses emitted as heat
	HeatTolerance          float64             `yaml:"heat_tolerance"`           // K, wear starts above this
	PeakDamageHeat         float64             `yaml:"peak_damage_heat"`         // K, wear rate reaches 1/s at this
	InvulnerableTime       float64             `yaml:"invulnerable_time"`        // seconds granted after repair
	RepairLevel            int                 `yaml:"repair_level"`             // skill needed for advanced repair
	ExperienceEnabled      bool                `yaml:"experience_enabled"`       // false skips the skill check
}

// ScalingConfig holds the exponents applied to the part scale factor.
type ScalingConfig struct {
	MotorTorque       float64 `yaml:"motor_torque"`
	MotorRPM          float64 `yaml:"motor_rpm"`
	WheelMaxSpeed     float64 `yaml:"wheel_max_speed"`
	WheelMaxLoad      float64 `yaml:"wheel_max_load"`
	RollingResistance float64 `yaml:"rolling_resistance"`
	WheelMass         float64 `yaml:"wheel_mass"`
}

// ScaleFactors are the multipliers derived from a part scale.
type ScaleFactors struct {
	Torque            float64
	RPM               float64
	MaxSpeed          float64
	MaxLoad           float64
	RollingResistance float64
	Mass              float64
}

// Factors returns the scale multipliers for the given part scale.
func (s ScalingConfig) Factors(scale float64) ScaleFactors {
	if !(scale > 0) {
		scale = 1
	}
	return ScaleFactors{
		Torque:            math.Pow(scale, s.MotorTorque),
		RPM:               math.Pow(scale, s.MotorRPM),
		MaxSpeed:          math.Pow(scale, s.WheelMaxSpeed),
		MaxLoad:           math.Pow(scale, s.WheelMaxLoad),
		RollingResistance: math.Pow(scale, s.RollingResistance),
		Mass:              math.Pow(scale, s.WheelMass),
	}
}

// VehicleConfig describes the simulated vehicle.
type VehicleConfig struct {
	Mass      float64         `yaml:"mass"`  // t, shared across all wheels
	Scale     float64         `yaml:"scale"` // part scale applied to every unit
	Units     []UnitConfig    `yaml:"units"`
	Battery   BatteryConfig   `yaml:"battery"`
	Generator GeneratorConfig `yaml:"generator"`
}

// UnitConfig defines one wheel unit.
type UnitConfig struct {
	ID                string      `yaml:"id"`
	Group             int         `yaml:"group"`
	Radius            float64     `yaml:"radius"`
	WheelMass         float64     `yaml:"wheel_mass"`
	MaxSpeed          float64     `yaml:"max_speed"`   // m/s before scaling
	LoadRating        float64     `yaml:"load_rating"` // t before scaling
	RollingResistance float64     `yaml:"rolling_resistance"`
	Motor             MotorDef    `yaml:"motor"`
	Brakes            BrakeDef    `yaml:"brakes"`
	Steering          SteeringDef `yaml:"steering"`
	Thermal           ThermalDef  `yaml:"thermal"`
}

// MotorDef holds motor part fields.
type MotorDef struct {
	StallTorque  float64               `yaml:"stall_torque"`
	MaxRPM       float64               `yaml:"max_rpm"`
	Efficiency   float64               `yaml:"efficiency"`
	PowerFactor  float64               `yaml:"power_factor"`
	GearRatio    float64               `yaml:"gear_ratio"`
	MinGearRatio float64               `yaml:"min_gear_ratio"`
	MaxGearRatio float64               `yaml:"max_gear_ratio"`
	TankSteering bool                  `yaml:"tank_steering"`
	Inverted     bool                  `yaml:"inverted"`
	HalfTrack    bool                  `yaml:"half_track"`
	Curve        []components.CurveKey `yaml:"curve"`
	SmoothCurve  bool                  `yaml:"smooth_curve"`
}

// BrakeDef holds brake part fields.
type BrakeDef struct {
	MaxTorque float64 `yaml:"max_torque"`
	Response  float64 `yaml:"response"`
	Locked    bool    `yaml:"locked"`
	Limit     float64 `yaml:"limit"` // percent
}

// SteeringDef holds steering part fields.
type SteeringDef struct {
	MaxAngle  float64               `yaml:"max_angle"`
	UseCurve  bool                  `yaml:"use_curve"`
	Curve     []components.CurveKey `yaml:"curve"`
	Inverted  bool                  `yaml:"inverted"`
	LimitLow  float64               `yaml:"limit_low"`
	LimitHigh float64               `yaml:"limit_high"`
	Response  float64               `yaml:"response"`
	Bias      float64               `yaml:"bias"`
}

// ThermalDef holds the part's thermal properties.
type ThermalDef struct {
	Ambient      float64 `yaml:"ambient"`
	HeatCapacity float64 `yaml:"heat_capacity"`
	Dissipation  float64 `yaml:"dissipation"`
}

// BatteryConfig holds the shared energy reservoir.
type BatteryConfig struct {
	Capacity float64 `yaml:"capacity"` // EC
	Initial  float64 `yaml:"initial"`  // EC, clamped to capacity
}

// GeneratorConfig holds the auxiliary power unit.
type GeneratorConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MaxOutput    float64 `yaml:"max_output"`    // EC/s at full throttle
	Target       float64 `yaml:"target"`        // percent charge to hold
	AutoThrottle bool    `yaml:"auto_throttle"` // throttle from charge level
	Linked       bool    `yaml:"linked"`        // throttle follows main throttle
	ClosedCycle  bool    `yaml:"closed_cycle"`
	Fuel         float64 `yaml:"fuel"`         // units available
	ClosedRatio  float64 `yaml:"closed_ratio"` // fuel per EC in closed cycle
	OpenRatio    float64 `yaml:"open_ratio"`   // fuel per EC in open cycle
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	Window    float64 `yaml:"window"`     // seconds per stats window
	OutputDir string  `yaml:"output_dir"` // empty disables CSV output
}

// PersistConfig holds save-state parameters.
type PersistConfig struct {
	Path string `yaml:"path"` // sqlite file; empty disables persistence
}

// LogConfig holds logging parameters.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Scale        ScaleFactors
	MotorConfigs []components.MotorConfig // per unit, index-aligned with Vehicle.Units
	SteerCurves  []*components.ResponseCurve
	WindowTicks  int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse builds a configuration from YAML bytes overlaid on the embedded defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived fills unit defaults, validates, and calculates derived values.
func (c *Config) computeDerived() error {
	if !(c.Sim.DT > 0) {
		return fmt.Errorf("%w: sim.dt must be positive", ErrInvalid)
	}
	if c.Sim.TimeWarp <= 0 {
		c.Sim.TimeWarp = 1
	}
	if c.Motor.Substeps <= 0 {
		c.Motor.Substeps = 5
	}
	if !(c.Motor.PowerConversion > 0) {
		return fmt.Errorf("%w: motor.power_conversion must be positive", ErrInvalid)
	}
	if c.Wear.PeakDamageHeat <= c.Wear.HeatTolerance {
		return fmt.Errorf("%w: wear.peak_damage_heat must exceed heat_tolerance", ErrInvalid)
	}
	if c.Vehicle.Scale <= 0 {
		c.Vehicle.Scale = 1
	}

	c.Derived.Scale = c.Scaling.Factors(c.Vehicle.Scale)
	c.Derived.WindowTicks = max(1, int(math.Round(c.Telemetry.Window/c.Sim.DT)))

	c.Derived.MotorConfigs = make([]components.MotorConfig, len(c.Vehicle.Units))
	c.Derived.SteerCurves = make([]*components.ResponseCurve, len(c.Vehicle.Units))
	seen := make(map[string]bool, len(c.Vehicle.Units))
	for i := range c.Vehicle.Units {
		u := &c.Vehicle.Units[i]
		applyUnitDefaults(u, i)
		if seen[u.ID] {
			return fmt.Errorf("%w: duplicate unit id %q", ErrInvalid, u.ID)
		}
		seen[u.ID] = true

		mc, err := u.Motor.Build()
		if err != nil {
			return fmt.Errorf("%w: unit %q: %w", ErrInvalid, u.ID, err)
		}
		c.Derived.MotorConfigs[i] = mc

		sc, err := u.Steering.BuildCurve()
		if err != nil {
			return fmt.Errorf("%w: unit %q steering: %w", ErrInvalid, u.ID, err)
		}
		c.Derived.SteerCurves[i] = sc

		if !(u.MaxSpeed > 0) || !(u.LoadRating > 0) {
			return fmt.Errorf("%w: unit %q: max_speed and load_rating must be positive", ErrInvalid, u.ID)
		}
	}
	return nil
}

// applyUnitDefaults fills fields a unit definition left empty.
func applyUnitDefaults(u *UnitConfig, index int) {
	if u.ID == "" {
		u.ID = fmt.Sprintf("wheel-%d", index)
	}
	if u.Radius == 0 {
		u.Radius = 0.5
	}
	if u.WheelMass == 0 {
		u.WheelMass = 0.04
	}
	if u.RollingResistance == 0 {
		u.RollingResistance = 0.005
	}
	if u.Motor.MinGearRatio == 0 {
		u.Motor.MinGearRatio = 0.25
	}
	if u.Motor.MaxGearRatio == 0 {
		u.Motor.MaxGearRatio = 20
	}
	if u.Motor.GearRatio == 0 {
		u.Motor.GearRatio = 4
	}
	if u.Brakes.Limit == 0 {
		u.Brakes.Limit = 100
	}
	if u.Steering.LimitLow == 0 && u.Steering.LimitHigh == 0 {
		u.Steering.LimitLow, u.Steering.LimitHigh = 1, 1
	}
	if u.Steering.Response == 0 {
		u.Steering.Response = 1
	}
	if u.Thermal.Ambient == 0 {
		u.Thermal.Ambient = 293
	}
	if u.Thermal.HeatCapacity == 0 {
		u.Thermal.HeatCapacity = 50
	}
}

// Build converts the YAML definition into a validated motor configuration.
func (d MotorDef) Build() (components.MotorConfig, error) {
	curve := components.LinearFalloff()
	if len(d.Curve) > 0 {
		var err error
		curve, err = components.NewResponseCurve(d.Curve, d.SmoothCurve)
		if err != nil {
			return components.MotorConfig{}, err
		}
	}
	mc := components.MotorConfig{
		StallTorque:  d.StallTorque,
		MaxRPM:       d.MaxRPM,
		Efficiency:   d.Efficiency,
		PowerFactor:  d.PowerFactor,
		MinGearRatio: d.MinGearRatio,
		MaxGearRatio: d.MaxGearRatio,
		TankSteering: d.TankSteering,
		Curve:        curve,
	}
	if err := mc.Validate(); err != nil {
		return components.MotorConfig{}, err
	}
	return mc, nil
}

// BuildCurve returns the steering falloff curve. The default drops to 10%
// of the low-speed limit at max safe speed.
func (d SteeringDef) BuildCurve() (*components.ResponseCurve, error) {
	keys := d.Curve
	if len(keys) == 0 {
		keys = []components.CurveKey{{X: 0, Y: 1}, {X: 0.5, Y: 0.4}, {X: 1, Y: 0.1}}
	}
	return components.NewResponseCurve(keys, true)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
