package systems

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/wheels/components"
)

// Notifier surfaces user-visible messages such as breakage and repair rejections.
type Notifier interface {
	Notify(unitID, message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(unitID, message string)

// Notify calls f.
func (f NotifierFunc) Notify(unitID, message string) { f(unitID, message) }

// WearParams holds the damage rates shared by every unit.
type WearParams struct {
	DT                     float64
	TimeWarp               float64
	StressDamageMultiplier float64
	SpeedDamageMultiplier  float64
	MotorDamageMultiplier  float64
	MotorHeatMultiplier    float64
	HeatTolerance          float64 // K
	PeakDamageHeat         float64 // K
	PowerConversion        float64 // for power stats refresh after motor wear
}

// WearContext is everything a wear model reads and writes for one unit in one tick.
type WearContext struct {
	Unit    *components.Unit
	Wear    *components.Wear
	Wheels  []*components.Wheel
	Motors  []*components.Motor
	Thermal *components.Thermal
	Params  WearParams
	Notify  Notifier
	Logger  *slog.Logger

	// Broke is set when the unit transitioned to Broken during this update.
	Broke bool
}

// WearModel accumulates damage for one wear mode.
type WearModel interface {
	Mode() components.WearMode
	Update(ctx *WearContext)
}

// Strategy returns the wear model for mode.
func Strategy(mode components.WearMode) WearModel {
	switch mode {
	case components.WearSimple:
		return simpleModel{}
	case components.WearAdvanced:
		return advancedModel{}
	default:
		return noneModel{}
	}
}

// UpdateWear runs one tick of the wear tracker. Recently repaired units count
// down their invulnerability and skip the tick; only Deployed units accrue wear.
// Returns true if the unit broke this tick.
func UpdateWear(model WearModel, ctx *WearContext) bool {
	ctx.Broke = false
	w := ctx.Wear
	if w.Invulnerable > 0 {
		w.Invulnerable = max(0, w.Invulnerable-ctx.Params.DT)
		return false
	}
	if ctx.Unit.State != components.StateDeployed {
		return false
	}
	model.Update(ctx)
	return ctx.Broke
}

type noneModel struct{}

func (noneModel) Mode() components.WearMode { return components.WearNone }
func (noneModel) Update(*WearContext)       {}

type simpleModel struct{}

func (simpleModel) Mode() components.WearMode { return components.WearSimple }

func (simpleModel) Update(ctx *WearContext) {
	u, w, p := ctx.Unit, ctx.Wear, ctx.Params
	w.Load, w.Speed = aggregateLoadSpeed(ctx.Wheels, p.TimeWarp)

	// Load
	w.LoadStress = 0
	if u.MaxSafeLoad > 0 {
		w.LoadStress = w.Load / u.MaxSafeLoad
		if w.Load > u.MaxSafeLoad {
			over := w.LoadStress - 1
			w.StressTime += p.DT * over * p.StressDamageMultiplier * 0.25
		}
	}

	// Speed
	if u.MaxSafeSpeed > 0 && w.Speed > u.MaxSafeSpeed {
		over := w.Speed/u.MaxSafeSpeed - 1
		w.StressTime += p.DT * over * p.SpeedDamageMultiplier
	}

	if w.StressTime >= 1 {
		breakUnit(ctx)
	}
	if w.Speed < u.MaxSafeSpeed && w.Load < u.MaxSafeLoad {
		w.StressTime = max(0, w.StressTime-p.DT)
	}
	w.StressTime = clamp01(finite(w.StressTime))
}

// aggregateLoadSpeed returns the summed suspension load (t) and the mean
// contact speed compensated for time warp.
func aggregateLoadSpeed(wheels []*components.Wheel, timeWarp float64) (load, speed float64) {
	if len(wheels) == 0 {
		return 0, 0
	}
	if !(timeWarp > 0) {
		timeWarp = 1
	}
	loads := make([]float64, len(wheels))
	speeds := make([]float64, len(wheels))
	for i, wh := range wheels {
		loads[i] = finite(wh.SpringForce / 10)
		speeds[i] = finite(math.Abs(wh.LinearVelocity) / timeWarp)
	}
	return floats.Sum(loads), stat.Mean(speeds, nil)
}

// breakUnit moves the unit to Broken, resets stress and raises the notice.
func breakUnit(ctx *WearContext) {
	u, w := ctx.Unit, ctx.Wear
	logger := ctx.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("wheel broke from overstressing",
		"unit", u.ID,
		"load", w.Load,
		"max_load", u.MaxSafeLoad,
		"speed", w.Speed,
		"max_speed", u.MaxSafeSpeed,
	)
	SetState(u, ctx.Wheels, components.StateBroken)
	w.StressTime = 0
	ctx.Broke = true
	if ctx.Notify != nil {
		ctx.Notify.Notify(u.ID, fmt.Sprintf("[%s]: Broke from overstressing.", u.ID))
	}
}

// advancedModel runs the simple checks, then motor heat, wheel and suspension wear.
type advancedModel struct {
	simple simpleModel
}

func (advancedModel) Mode() components.WearMode { return components.WearAdvanced }

func (m advancedModel) Update(ctx *WearContext) {
	m.simple.Update(ctx)
	updateMotorWear(ctx)
	updateWheelWear(ctx)
	updateSuspensionWear(ctx)
}

// updateMotorWear feeds motor losses into the thermal model and wears the
// motor while the part is above heat tolerance.
func updateMotorWear(ctx *WearContext) {
	w, p := ctx.Wear, ctx.Params
	heat := 0.0
	for _, m := range ctx.Motors {
		heat += (m.PowerInKW - m.PowerOutKW) * p.MotorHeatMultiplier
	}
	if ctx.Thermal == nil {
		return
	}
	ctx.Thermal.AddFlux(finite(heat))

	temp := ctx.Thermal.Temperature
	if temp <= p.HeatTolerance || p.PeakDamageHeat <= p.HeatTolerance {
		return
	}
	heatWear := (temp - p.HeatTolerance) / (p.PeakDamageHeat - p.HeatTolerance)
	w.MotorWear = clamp01(w.MotorWear + finite(heatWear*p.DT*p.MotorDamageMultiplier))

	radius := 0.0
	if len(ctx.Wheels) > 0 {
		radius = ctx.Wheels[0].Radius
	}
	for _, m := range ctx.Motors {
		m.Efficiency = w.DefaultEfficiency * (1 - w.MotorWear)
		RecalcMotor(m, ctx.Unit, radius, p.PowerConversion)
	}
}

// updateWheelWear wears tires under sustained overspeed, raising rolling resistance.
func updateWheelWear(ctx *WearContext) {
	u, w, p := ctx.Unit, ctx.Wear, ctx.Params
	if !(u.MaxSafeSpeed > 0) {
		return
	}
	speedPct := math.Pow(max(w.Speed/u.MaxSafeSpeed-0.75, 0), 4)
	if !(speedPct > 0) {
		return
	}
	w.WheelWear = clamp01(w.WheelWear + finite(speedPct*p.DT*0.05*p.SpeedDamageMultiplier))
	for i, wh := range ctx.Wheels {
		if i < len(w.DefaultRollingResistance) {
			base := w.DefaultRollingResistance[i]
			wh.RollingResistance = base + base*w.WheelWear
		}
	}
}

// updateSuspensionWear wears the suspension under sustained heavy load and
// shortens the repair-readiness timer accordingly.
func updateSuspensionWear(ctx *WearContext) {
	u, w, p := ctx.Unit, ctx.Wear, ctx.Params
	if !(u.MaxSafeLoad > 0) {
		return
	}
	loadPct := math.Pow(max(w.Load/u.MaxSafeLoad-0.9, 0), 2)
	w.SuspensionWear = clamp01(w.SuspensionWear + finite(loadPct*p.DT*p.StressDamageMultiplier))
	u.RepairTimer = 1 - w.SuspensionWear
}
