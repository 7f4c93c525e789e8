package vehicle

import (
	"fmt"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/persist"
	"github.com/pthm-cable/wheels/systems"
	"github.com/pthm-cable/wheels/telemetry"
)

// Snapshots returns the display view of every unit in config order.
func (v *Vehicle) Snapshots() []telemetry.UnitSnapshot {
	snaps := make([]telemetry.UnitSnapshot, len(v.entities))
	for i := range v.entities {
		p := v.parts(i)
		snaps[i] = telemetry.NewUnitSnapshot(v.tick, p.Unit, p.Motor, p.Wear, p.Wheel, p.Thermal)
	}
	return snaps
}

// Inspect returns the display view of one unit.
func (v *Vehicle) Inspect(id string) (telemetry.UnitSnapshot, error) {
	i, err := v.lookup(id)
	if err != nil {
		return telemetry.UnitSnapshot{}, err
	}
	p := v.parts(i)
	return telemetry.NewUnitSnapshot(v.tick, p.Unit, p.Motor, p.Wear, p.Wheel, p.Thermal), nil
}

// Records returns the persisted state of every unit.
func (v *Vehicle) Records() []persist.UnitRecord {
	recs := make([]persist.UnitRecord, len(v.entities))
	for i := range v.entities {
		p := v.parts(i)
		recs[i] = persist.UnitRecord{
			ID:                p.Unit.ID,
			GearRatio:         p.Motor.GearRatio,
			OutputLimit:       p.Motor.OutputLimit,
			MotorLocked:       p.Motor.Locked,
			MotorInverted:     p.Motor.Inverted,
			SteerInverted:     p.Motor.SteerInverted,
			SteerLocked:       p.Motor.SteerLocked,
			HalfTrack:         p.Motor.HalfTrack,
			BrakeLimit:        p.Brakes.Limit,
			SteeringLocked:    p.Steering.Locked,
			SteeringInverted:  p.Steering.Inverted,
			SteeringLimitLow:  p.Steering.LimitLow,
			SteeringLimitHigh: p.Steering.LimitHigh,
			SteeringResponse:  p.Steering.Response,
			SteeringBias:      p.Steering.Bias,
			MotorWear:         p.Wear.MotorWear,
			WheelWear:         p.Wear.WheelWear,
			SuspensionWear:    p.Wear.SuspensionWear,
			State:             p.Unit.State.String(),
		}
	}
	return recs
}

// Restore applies saved records to the matching units. Records for unknown
// units are skipped. A record with an unknown state fails the whole restore
// and leaves every unit unchanged. Wear effects on efficiency, rolling
// resistance and the repair timer are reapplied; stress time starts from zero.
func (v *Vehicle) Restore(recs []persist.UnitRecord) error {
	// Validate every record before touching any unit.
	states := make([]components.WheelState, len(recs))
	for n, rec := range recs {
		if _, ok := v.index[rec.ID]; !ok {
			continue
		}
		state, err := components.ParseWheelState(rec.State)
		if err != nil {
			return fmt.Errorf("restoring unit %s: %w", rec.ID, err)
		}
		states[n] = state
	}

	for n, rec := range recs {
		i, ok := v.index[rec.ID]
		if !ok {
			v.logger.Debug("skipping record for unknown unit", "unit", rec.ID)
			continue
		}
		state := states[n]
		p := v.parts(i)

		p.Motor.GearRatio = p.Motor.Config.ClampGear(rec.GearRatio)
		p.Motor.OutputLimit = min(max(rec.OutputLimit, 0), 100)
		p.Motor.Locked = rec.MotorLocked
		p.Motor.Inverted = rec.MotorInverted
		p.Motor.SteerInverted = rec.SteerInverted
		p.Motor.SteerLocked = rec.SteerLocked
		p.Motor.HalfTrack = rec.HalfTrack
		p.Brakes.Limit = min(max(rec.BrakeLimit, 0), 100)
		p.Steering.Locked = rec.SteeringLocked
		p.Steering.Inverted = rec.SteeringInverted
		p.Steering.LimitLow = rec.SteeringLimitLow
		p.Steering.LimitHigh = rec.SteeringLimitHigh
		p.Steering.Response = rec.SteeringResponse
		p.Steering.Bias = min(max(rec.SteeringBias, -1), 1)

		w := p.Wear
		w.MotorWear = min(max(rec.MotorWear, 0), 1)
		w.WheelWear = min(max(rec.WheelWear, 0), 1)
		w.SuspensionWear = min(max(rec.SuspensionWear, 0), 1)
		w.StressTime = 0
		p.Motor.Efficiency = w.DefaultEfficiency * (1 - w.MotorWear)
		if len(w.DefaultRollingResistance) > 0 {
			p.Wheel.RollingResistance = w.DefaultRollingResistance[0] * (1 + w.WheelWear)
		}
		p.Unit.RepairTimer = 1 - w.SuspensionWear

		systems.SetState(p.Unit, []*components.Wheel{p.Wheel}, state)
		systems.RecalcMotor(p.Motor, p.Unit, p.Wheel.Radius, v.cfg.Motor.PowerConversion)
	}
	return nil
}
