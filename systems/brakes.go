package systems

import "github.com/pthm-cable/wheels/components"

// UpdateBrakes sets the wheel's brake torque for this tick. Brakes only act on
// a Deployed unit. A locked brake is fully engaged regardless of input; otherwise
// a non-zero response smooths engagement. Runs before UpdateMotor, which may add
// tank-steer braking on top.
func UpdateBrakes(b *components.Brakes, unit *components.Unit, wheel *components.Wheel, held bool, dt float64) {
	if !unit.State.CanOutput() {
		b.Input = 0
		b.Torque = 0
		wheel.BrakeTorque = 0
		return
	}

	bI := 0.0
	if b.Locked || held {
		bI = 1
	}
	if !b.Locked && b.Response > 0 && bI > 0 {
		bI = lerp(b.Input, bI, clamp01(b.Response*dt))
	}
	b.Input = bI

	b.Torque = finite(b.MaxTorque * b.Input * unit.TorqueScale * clamp(b.Limit, 0, 100) * 0.01)
	wheel.BrakeTorque = b.Torque
}
