package components

import (
	"errors"
	"fmt"
)

// ErrInvalidMotorConfig is returned by MotorConfig.Validate.
var ErrInvalidMotorConfig = errors.New("invalid motor configuration")

// MotorConfig is the immutable per-part motor definition.
type MotorConfig struct {
	StallTorque  float64 // kN*m at zero rpm
	MaxRPM       float64 // shaft rpm at which output reaches zero
	Efficiency   float64 // rated efficiency at the efficiency peak, (0,1)
	PowerFactor  float64 // no-load draw / stall draw, [0,0.5)
	MinGearRatio float64
	MaxGearRatio float64
	TankSteering bool
	Curve        *ResponseCurve
}

// DefaultMotorConfig mirrors a small stock wheel motor.
func DefaultMotorConfig() MotorConfig {
	return MotorConfig{
		StallTorque:  10,
		MaxRPM:       2500,
		Efficiency:   0.85,
		PowerFactor:  0.05,
		MinGearRatio: 0.25,
		MaxGearRatio: 20,
		Curve:        LinearFalloff(),
	}
}

// Validate rejects configurations that cannot be simulated.
func (c *MotorConfig) Validate() error {
	switch {
	case !(c.StallTorque > 0):
		return fmt.Errorf("%w: stall torque must be positive, got %g", ErrInvalidMotorConfig, c.StallTorque)
	case !(c.MaxRPM > 0):
		return fmt.Errorf("%w: max rpm must be positive, got %g", ErrInvalidMotorConfig, c.MaxRPM)
	case !(c.Efficiency > 0 && c.Efficiency < 1):
		return fmt.Errorf("%w: efficiency must be in (0,1), got %g", ErrInvalidMotorConfig, c.Efficiency)
	case !(c.PowerFactor >= 0 && c.PowerFactor < 0.5):
		return fmt.Errorf("%w: power factor must be in [0,0.5), got %g", ErrInvalidMotorConfig, c.PowerFactor)
	case !(c.MinGearRatio > 0 && c.MinGearRatio <= c.MaxGearRatio):
		return fmt.Errorf("%w: gear bounds [%g,%g]", ErrInvalidMotorConfig, c.MinGearRatio, c.MaxGearRatio)
	case c.Curve == nil:
		return fmt.Errorf("%w: missing response curve", ErrMalformedCurve)
	}
	return nil
}

// ClampGear limits a gear ratio to the configured bounds.
func (c *MotorConfig) ClampGear(ratio float64) float64 {
	return min(max(ratio, c.MinGearRatio), c.MaxGearRatio)
}

// Motor is the mutable runtime state of one wheel motor.
type Motor struct {
	Config *MotorConfig

	// User settings, persisted.
	GearRatio     float64
	OutputLimit   float64 // percent, [0,100]
	Locked        bool
	Inverted      bool
	SteerInverted bool
	SteerLocked   bool
	HalfTrack     bool

	// Efficiency actually used for power stats. Starts at Config.Efficiency
	// and is lowered by motor wear.
	Efficiency float64

	// Derived by CalcPowerStats.
	ScaledMaxTorque float64
	ScaledMaxRPM    float64
	PeakInputPower  float64 // kW drawn at stall
	NoLoadPower     float64 // kW drawn at max rpm
	MaxECDraw       float64 // EC/s at stall
	MaxDrivenSpeed  float64 // m/s at the wheel for the current gear

	// Telemetry, written every tick.
	RPM           float64
	TorqueOut     float64
	PowerOutKW    float64
	PowerInKW     float64
	EfficiencyPct float64
	ResourceUse   float64 // EC/s actually drawn
}

// NewMotor creates runtime state with default user settings.
func NewMotor(cfg *MotorConfig) Motor {
	return Motor{
		Config:      cfg,
		GearRatio:   cfg.ClampGear(4),
		OutputLimit: 100,
		Efficiency:  cfg.Efficiency,
	}
}

// ClearOutputs zeroes per-tick telemetry.
func (m *Motor) ClearOutputs() {
	m.TorqueOut = 0
	m.PowerOutKW = 0
	m.PowerInKW = 0
	m.EfficiencyPct = 0
	m.ResourceUse = 0
}
