// Package vehicle runs a set of wheel units as one vehicle: it owns the ECS
// world holding the units, the shared battery and generator, and the fixed
// per-tick ordering of the wheel subsystems.
package vehicle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/config"
	"github.com/pthm-cable/wheels/systems"
	"github.com/pthm-cable/wheels/telemetry"
)

var (
	// ErrUnknownUnit is returned when a unit ID is not part of the vehicle.
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrNoUnits is returned by New for a vehicle without wheel units.
	ErrNoUnits = errors.New("vehicle has no wheel units")
)

// Vehicle holds the complete simulation state.
type Vehicle struct {
	cfg    *config.Config
	logger *slog.Logger
	world  *ecs.World

	unitMapper *ecs.Map7[
		components.Unit,
		components.Motor,
		components.Wear,
		components.Wheel,
		components.Brakes,
		components.Steering,
		components.Thermal,
	]
	unitFilter *ecs.Filter7[
		components.Unit,
		components.Motor,
		components.Wear,
		components.Wheel,
		components.Brakes,
		components.Steering,
		components.Thermal,
	]

	// Entities in config order, and their index by unit ID.
	entities []ecs.Entity
	index    map[string]int

	// Motor definitions referenced by each unit's Motor.Config.
	motorCfgs []components.MotorConfig

	battery   *systems.Battery
	reservoir systems.Reservoir
	generator *components.Generator
	wear      systems.WearModel
	physics   Physics

	motorParams  systems.MotorParams
	wearParams   systems.WearParams
	repairParams systems.RepairParams

	notify  systems.Notifier
	metrics *telemetry.Metrics
	perf    *telemetry.PerfCollector

	tick int32
}

// Option configures a Vehicle.
type Option func(*Vehicle)

// WithLogger sets the logger used for unit events.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vehicle) { v.logger = l }
}

// WithNotifier routes user-visible notices (breaks, rejected repairs).
func WithNotifier(n systems.Notifier) Option {
	return func(v *Vehicle) { v.notify = n }
}

// WithMetrics records break, repair and energy events.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(v *Vehicle) { v.metrics = m }
}

// WithPerf times the phases of each Step.
func WithPerf(p *telemetry.PerfCollector) Option {
	return func(v *Vehicle) { v.perf = p }
}

// WithReservoir replaces the battery as the motors' energy source. The
// generator still charges the battery.
func WithReservoir(r systems.Reservoir) Option {
	return func(v *Vehicle) { v.reservoir = r }
}

// New builds a vehicle from cfg with every unit Deployed.
func New(cfg *config.Config, opts ...Option) (*Vehicle, error) {
	if len(cfg.Vehicle.Units) == 0 {
		return nil, ErrNoUnits
	}
	world := ecs.NewWorld()

	v := &Vehicle{
		cfg:    cfg,
		logger: slog.Default(),
		world:  world,
		unitMapper: ecs.NewMap7[
			components.Unit,
			components.Motor,
			components.Wear,
			components.Wheel,
			components.Brakes,
			components.Steering,
			components.Thermal,
		](world),
		unitFilter: ecs.NewFilter7[
			components.Unit,
			components.Motor,
			components.Wear,
			components.Wheel,
			components.Brakes,
			components.Steering,
			components.Thermal,
		](world),
		index:   make(map[string]int, len(cfg.Vehicle.Units)),
		battery: systems.NewBattery(cfg.Vehicle.Battery.Capacity, cfg.Vehicle.Battery.Initial),
		wear:    systems.Strategy(cfg.Wear.Mode),
		physics: Physics{
			Gravity: cfg.Sim.Gravity,
			Mass:    cfg.Vehicle.Mass,
		},
		motorParams: systems.MotorParams{
			DT:              cfg.Sim.DT,
			Substeps:        cfg.Motor.Substeps,
			PowerConversion: cfg.Motor.PowerConversion,
		},
		wearParams: systems.WearParams{
			DT:                     cfg.Sim.DT,
			TimeWarp:               cfg.Sim.TimeWarp,
			StressDamageMultiplier: cfg.Wear.StressDamageMultiplier,
			SpeedDamageMultiplier:  cfg.Wear.SpeedDamageMultiplier,
			MotorDamageMultiplier:  cfg.Wear.MotorDamageMultiplier,
			MotorHeatMultiplier:    cfg.Wear.MotorHeatMultiplier,
			HeatTolerance:          cfg.Wear.HeatTolerance,
			PeakDamageHeat:         cfg.Wear.PeakDamageHeat,
			PowerConversion:        cfg.Motor.PowerConversion,
		},
		repairParams: systems.RepairParams{
			Mode:              cfg.Wear.Mode,
			RepairLevel:       cfg.Wear.RepairLevel,
			ExperienceEnabled: cfg.Wear.ExperienceEnabled,
			InvulnerableTime:  cfg.Wear.InvulnerableTime,
			PowerConversion:   cfg.Motor.PowerConversion,
		},
	}
	v.reservoir = v.battery

	if g := cfg.Vehicle.Generator; g.Enabled {
		v.generator = &components.Generator{
			MaxOutput:    g.MaxOutput,
			ClosedRatio:  g.ClosedRatio,
			OpenRatio:    g.OpenRatio,
			Fuel:         g.Fuel,
			Target:       g.Target,
			AutoThrottle: g.AutoThrottle,
			Linked:       g.Linked,
			ClosedCycle:  g.ClosedCycle,
			Active:       true,
		}
	}

	for _, opt := range opts {
		opt(v)
	}
	if v.notify == nil {
		v.notify = systems.NotifierFunc(func(unitID, message string) {
			v.logger.Info("notice", "unit", unitID, "message", message)
		})
	}

	// Allocated once so Motor.Config pointers stay valid.
	v.motorCfgs = make([]components.MotorConfig, len(cfg.Vehicle.Units))
	copy(v.motorCfgs, cfg.Derived.MotorConfigs)
	for i := range cfg.Vehicle.Units {
		v.spawnUnit(i)
	}

	v.logger.Info("vehicle ready",
		"units", len(v.entities),
		"wear_mode", cfg.Wear.Mode.String(),
		"mass", cfg.Vehicle.Mass,
		"scale", cfg.Vehicle.Scale,
	)
	return v, nil
}

// spawnUnit creates the entity for unit i of the config.
func (v *Vehicle) spawnUnit(i int) {
	uc := &v.cfg.Vehicle.Units[i]
	f := v.cfg.Derived.Scale
	mc := &v.motorCfgs[i]

	unit := components.Unit{
		ID:          uc.ID,
		Group:       uc.Group,
		State:       components.StateDeployed,
		RepairTimer: 1,
	}
	applyScale(&unit, uc, f)

	motor := components.NewMotor(mc)
	motor.GearRatio = mc.ClampGear(uc.Motor.GearRatio)
	motor.Inverted = uc.Motor.Inverted
	motor.HalfTrack = uc.Motor.HalfTrack

	wheel := components.Wheel{
		Radius:            uc.Radius,
		Mass:              uc.WheelMass * f.Mass,
		RollingResistance: uc.RollingResistance * f.RollingResistance,
	}
	wear := components.Wear{
		DefaultRollingResistance: []float64{wheel.RollingResistance},
		DefaultEfficiency:        mc.Efficiency,
	}
	brakes := components.Brakes{
		MaxTorque: uc.Brakes.MaxTorque,
		Response:  uc.Brakes.Response,
		Locked:    uc.Brakes.Locked,
		Limit:     uc.Brakes.Limit,
	}
	steering := components.Steering{
		MaxAngle:  uc.Steering.MaxAngle,
		UseCurve:  uc.Steering.UseCurve,
		Curve:     v.cfg.Derived.SteerCurves[i],
		Inverted:  uc.Steering.Inverted,
		LimitLow:  uc.Steering.LimitLow,
		LimitHigh: uc.Steering.LimitHigh,
		Response:  uc.Steering.Response,
		Bias:      uc.Steering.Bias,
	}
	thermal := components.Thermal{
		Temperature:  uc.Thermal.Ambient,
		Ambient:      uc.Thermal.Ambient,
		HeatCapacity: uc.Thermal.HeatCapacity,
		Dissipation:  uc.Thermal.Dissipation,
	}
	systems.RecalcMotor(&motor, &unit, wheel.Radius, v.cfg.Motor.PowerConversion)

	entity := v.unitMapper.NewEntity(&unit, &motor, &wear, &wheel, &brakes, &steering, &thermal)
	v.index[uc.ID] = len(v.entities)
	v.entities = append(v.entities, entity)
}

// applyScale sets the scaled safe limits and scale factors on a unit.
func applyScale(unit *components.Unit, uc *config.UnitConfig, f config.ScaleFactors) {
	unit.TorqueScale = f.Torque
	unit.RPMScale = f.RPM
	unit.MaxSafeSpeed = uc.MaxSpeed * f.MaxSpeed
	unit.MaxSafeLoad = uc.LoadRating * f.MaxLoad
}

// StepReport summarizes one tick.
type StepReport struct {
	Tick            int32
	Breaks          []string // IDs of units that broke this tick
	EnergyDrawn     float64  // EC taken by all motors
	EnergyGenerated float64  // EC stored by the generator
}

// Step advances the vehicle by one tick. The order is fixed: generator,
// brakes and steering, motors, physics, thermal, wear. Wear therefore sees
// the motor output and wheel telemetry of the same tick.
func (v *Vehicle) Step(in components.DriverInput) StepReport {
	v.tick++
	dt := v.cfg.Sim.DT
	rep := StepReport{Tick: v.tick}

	v.perf.StartTick()

	v.perf.StartPhase(telemetry.PhaseGenerator)
	if v.generator != nil {
		rep.EnergyGenerated = systems.UpdateGenerator(v.generator, v.battery, in.MainThrottle, dt)
	}

	v.perf.StartPhase(telemetry.PhaseControls)
	query := v.unitFilter.Query()
	for query.Next() {
		unit, _, _, wheel, brakes, steering, _ := query.Get()
		systems.UpdateBrakes(brakes, unit, wheel, in.Brakes, dt)
		systems.UpdateSteering(steering, unit, wheel, in)
	}

	v.perf.StartPhase(telemetry.PhaseMotor)
	query = v.unitFilter.Query()
	for query.Next() {
		unit, motor, _, wheel, _, _, _ := query.Get()
		rep.EnergyDrawn += systems.UpdateMotor(motor, unit, wheel, in, v.reservoir, v.motorParams)
	}

	v.perf.StartPhase(telemetry.PhasePhysics)
	share := v.physics.share(len(v.entities))
	query = v.unitFilter.Query()
	for query.Next() {
		unit, _, _, wheel, _, _, _ := query.Get()
		v.physics.StepWheel(unit, wheel, share, dt)
	}

	v.perf.StartPhase(telemetry.PhaseThermal)
	query = v.unitFilter.Query()
	for query.Next() {
		_, _, _, _, _, _, thermal := query.Get()
		systems.StepThermal(thermal, dt)
	}

	v.perf.StartPhase(telemetry.PhaseWear)
	query = v.unitFilter.Query()
	for query.Next() {
		unit, motor, wear, wheel, _, _, thermal := query.Get()
		ctx := systems.WearContext{
			Unit:    unit,
			Wear:    wear,
			Wheels:  []*components.Wheel{wheel},
			Motors:  []*components.Motor{motor},
			Thermal: thermal,
			Params:  v.wearParams,
			Notify:  v.notify,
			Logger:  v.logger,
		}
		if systems.UpdateWear(v.wear, &ctx) {
			rep.Breaks = append(rep.Breaks, unit.ID)
		}
	}

	v.perf.EndTick()

	ctx := context.Background()
	v.metrics.RecordEnergy(ctx, rep.EnergyDrawn)
	for _, id := range rep.Breaks {
		v.metrics.RecordBreak(ctx, id)
	}
	return rep
}

// Tick returns the number of steps taken.
func (v *Vehicle) Tick() int32 {
	return v.tick
}

// Battery returns the shared battery.
func (v *Vehicle) Battery() *systems.Battery {
	return v.battery
}

// Generator returns the auxiliary power unit, or nil when none is fitted.
func (v *Vehicle) Generator() *components.Generator {
	return v.generator
}

// UnitIDs returns the unit IDs in config order.
func (v *Vehicle) UnitIDs() []string {
	ids := make([]string, len(v.entities))
	for i, e := range v.entities {
		unit, _, _, _, _, _, _ := v.unitMapper.Get(e)
		ids[i] = unit.ID
	}
	return ids
}

// Parts gives direct access to one unit's components. The pointers are
// valid until the next structural change of the world.
type Parts struct {
	Unit     *components.Unit
	Motor    *components.Motor
	Wear     *components.Wear
	Wheel    *components.Wheel
	Brakes   *components.Brakes
	Steering *components.Steering
	Thermal  *components.Thermal
}

// parts returns the components of the unit at config index i.
func (v *Vehicle) parts(i int) Parts {
	unit, motor, wear, wheel, brakes, steering, thermal := v.unitMapper.Get(v.entities[i])
	return Parts{unit, motor, wear, wheel, brakes, steering, thermal}
}

// lookup resolves a unit ID to its config index.
func (v *Vehicle) lookup(id string) (int, error) {
	i, ok := v.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, id)
	}
	return i, nil
}

// Unit returns the components of the unit with the given ID.
func (v *Vehicle) Unit(id string) (Parts, error) {
	i, err := v.lookup(id)
	if err != nil {
		return Parts{}, err
	}
	return v.parts(i), nil
}
