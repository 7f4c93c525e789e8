package vehicle

import (
	"context"
	"errors"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/systems"
)

// Repair attempts to repair the unit with the given ID. A rejected repair
// returns an error wrapping systems.ErrNotRepairable or
// systems.ErrInsufficientSkill and changes nothing.
func (v *Vehicle) Repair(ctx context.Context, id string, agent systems.RepairAgent) error {
	i, err := v.lookup(id)
	if err != nil {
		return err
	}
	p := v.parts(i)
	err = systems.Repair(systems.RepairTarget{
		Unit:   p.Unit,
		Wear:   p.Wear,
		Wheels: []*components.Wheel{p.Wheel},
		Motors: []*components.Motor{p.Motor},
	}, agent, v.repairParams, v.notify)

	switch {
	case err == nil:
		v.metrics.RecordRepair(ctx, id, false)
	case errors.Is(err, systems.ErrInsufficientSkill):
		v.metrics.RecordRepair(ctx, id, true)
	}
	return err
}

// SetState forces a unit into state, applying the Broken side effects.
func (v *Vehicle) SetState(id string, state components.WheelState) error {
	i, err := v.lookup(id)
	if err != nil {
		return err
	}
	p := v.parts(i)
	systems.SetState(p.Unit, []*components.Wheel{p.Wheel}, state)
	return nil
}

// SetPayload sets the extra mass (t) carried by the vehicle.
func (v *Vehicle) SetPayload(tons float64) {
	v.physics.Payload = max(tons, 0)
}

// SetScale rescales every unit as if the parts were resized to scale, then
// refreshes the motor power figures. Rolling resistance keeps its wear.
func (v *Vehicle) SetScale(scale float64) {
	f := v.cfg.Scaling.Factors(scale)
	v.cfg.Derived.Scale = f
	if scale > 0 {
		v.cfg.Vehicle.Scale = scale
	}
	for i := range v.entities {
		uc := &v.cfg.Vehicle.Units[i]
		p := v.parts(i)
		applyScale(p.Unit, uc, f)

		base := uc.RollingResistance * f.RollingResistance
		p.Wear.DefaultRollingResistance = []float64{base}
		p.Wheel.RollingResistance = base * (1 + p.Wear.WheelWear)
		p.Wheel.Mass = uc.WheelMass * f.Mass

		systems.RecalcMotor(p.Motor, p.Unit, p.Wheel.Radius, v.cfg.Motor.PowerConversion)
	}
}

// UpdateGroup applies fn to the unit with the given ID and, when that unit
// belongs to a group (non-zero), to every other unit in the same group.
// Motor power figures are refreshed afterwards on each touched unit.
func (v *Vehicle) UpdateGroup(id string, fn func(Parts)) error {
	i, err := v.lookup(id)
	if err != nil {
		return err
	}
	group := v.parts(i).Unit.Group
	for j := range v.entities {
		p := v.parts(j)
		if j != i && (group == 0 || p.Unit.Group != group) {
			continue
		}
		fn(p)
		systems.RecalcMotor(p.Motor, p.Unit, p.Wheel.Radius, v.cfg.Motor.PowerConversion)
	}
	return nil
}

// SetGear changes the gear ratio of a unit, clamped to its motor's bounds.
// With group set the change is applied to the unit's whole group.
func (v *Vehicle) SetGear(id string, ratio float64, group bool) error {
	apply := func(p Parts) {
		p.Motor.GearRatio = p.Motor.Config.ClampGear(ratio)
	}
	if group {
		return v.UpdateGroup(id, apply)
	}
	i, err := v.lookup(id)
	if err != nil {
		return err
	}
	p := v.parts(i)
	apply(p)
	systems.RecalcMotor(p.Motor, p.Unit, p.Wheel.Radius, v.cfg.Motor.PowerConversion)
	return nil
}
