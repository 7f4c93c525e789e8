package systems

import "github.com/pthm-cable/wheels/components"

// SetState changes the unit's operational state. Entering Broken zeroes motor
// torque, brake torque and angular velocity on every wheel of the unit.
func SetState(unit *components.Unit, wheels []*components.Wheel, state components.WheelState) {
	unit.State = state
	if state != components.StateBroken {
		return
	}
	for _, wh := range wheels {
		wh.MotorTorque = 0
		wh.BrakeTorque = 0
		wh.AngularVelocity = 0
	}
}
