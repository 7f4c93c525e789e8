package systems

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/wheels/components"
)

var (
	// ErrNotRepairable is returned when the unit is neither broken nor eligible
	// for preventive maintenance.
	ErrNotRepairable = errors.New("unit is not repairable")
	// ErrInsufficientSkill is returned when the repairing agent lacks the
	// required skill level. Nothing is changed.
	ErrInsufficientSkill = errors.New("insufficient repair skill")
)

// RepairAgent is whoever performs a repair.
type RepairAgent interface {
	RepairSkill() int
}

// Skill is a RepairAgent with a fixed skill level.
type Skill int

// RepairSkill returns s.
func (s Skill) RepairSkill() int { return int(s) }

// RepairParams holds the repair rules selected by configuration.
type RepairParams struct {
	Mode              components.WearMode
	RepairLevel       int
	ExperienceEnabled bool
	InvulnerableTime  float64 // seconds granted after a successful repair
	PowerConversion   float64
}

// RepairTarget is the unit being repaired and the parts repair restores.
type RepairTarget struct {
	Unit   *components.Unit
	Wear   *components.Wear
	Wheels []*components.Wheel
	Motors []*components.Motor
}

// CanRepair reports whether a repair may be attempted in the unit's current state.
func CanRepair(unit *components.Unit, mode components.WearMode) bool {
	return unit.State == components.StateBroken ||
		(unit.State == components.StateDeployed && mode == components.WearAdvanced)
}

// Repair restores the unit to Deployed. Simple repairs grant a short
// invulnerability window; advanced repairs also require skill and reset all
// wear scalars. A rejected repair leaves the target untouched and returns an
// error wrapping ErrNotRepairable or ErrInsufficientSkill whose message is
// suitable for display.
func Repair(t RepairTarget, agent RepairAgent, p RepairParams, notify Notifier) error {
	u, w := t.Unit, t.Wear
	if !CanRepair(u, p.Mode) {
		return fmt.Errorf("%w: unit %s is %s", ErrNotRepairable, u.ID, u.State)
	}

	switch p.Mode {
	case components.WearSimple:
		w.Invulnerable += p.InvulnerableTime
		u.RepairTimer = 0.0001
	case components.WearAdvanced:
		skill := 0
		if agent != nil {
			skill = agent.RepairSkill()
		}
		if p.ExperienceEnabled && skill < p.RepairLevel {
			err := fmt.Errorf("%w: crew member has insufficient repair skill to fix %s, level %d or higher is required",
				ErrInsufficientSkill, u.ID, p.RepairLevel)
			if notify != nil {
				notify.Notify(u.ID, err.Error())
			}
			return err
		}
		w.MotorWear = 0
		w.WheelWear = 0
		w.SuspensionWear = 0
		w.Invulnerable += p.InvulnerableTime
		u.RepairTimer = 0.0001
		restoreBaselines(t, p.PowerConversion)
	}

	SetState(u, t.Wheels, components.StateDeployed)
	slog.Info("repaired wheel",
		"unit", u.ID,
		"mode", p.Mode.String(),
		"motor_wear", w.MotorWear,
		"wheel_wear", w.WheelWear,
		"suspension_wear", w.SuspensionWear,
	)
	return nil
}

// restoreBaselines puts efficiency and rolling resistance back to their
// undamaged values.
func restoreBaselines(t RepairTarget, powerConversion float64) {
	w := t.Wear
	radius := 0.0
	for i, wh := range t.Wheels {
		if i == 0 {
			radius = wh.Radius
		}
		if i < len(w.DefaultRollingResistance) {
			wh.RollingResistance = w.DefaultRollingResistance[i]
		}
	}
	for _, m := range t.Motors {
		if w.DefaultEfficiency > 0 {
			m.Efficiency = w.DefaultEfficiency
		}
		RecalcMotor(m, t.Unit, radius, powerConversion)
	}
}
