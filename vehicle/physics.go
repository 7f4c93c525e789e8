package vehicle

import (
	"math"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/systems"
)

// Physics is a minimal stand-in for the host physics engine. Every wheel
// carries an equal share of the vehicle mass and rolls without slip, so
// contact speed is always angular velocity times radius.
type Physics struct {
	Gravity float64 // m/s^2
	Mass    float64 // t, vehicle dry mass
	Payload float64 // t, extra mass carried
}

// share returns the mass (t) resting on each of n wheels.
func (p *Physics) share(n int) float64 {
	if n <= 0 {
		return 0
	}
	return max(p.Mass+p.Payload, 0) / float64(n)
}

// StepWheel advances one wheel by dt given the torques the subsystems
// committed this tick. Brake and rolling resistance slow the wheel but
// never reverse it.
func (p *Physics) StepWheel(unit *components.Unit, wheel *components.Wheel, share, dt float64) {
	wheel.SpringForce = share * p.Gravity

	if unit.State == components.StateBroken {
		wheel.AngularVelocity = 0
		wheel.RPM = 0
		wheel.LinearVelocity = 0
		wheel.ForwardVelocity = 0
		return
	}

	r := wheel.Radius
	inertia := (share + wheel.Mass) * r * r
	if !(inertia > 0) {
		return
	}

	w := wheel.AngularVelocity + wheel.MotorTorque/inertia*dt
	resist := wheel.BrakeTorque + wheel.RollingResistance*wheel.SpringForce*r
	decel := max(resist, 0) / inertia * dt
	if math.Abs(w) <= decel {
		w = 0
	} else {
		w -= math.Copysign(decel, w)
	}
	if math.IsNaN(w) || math.IsInf(w, 0) {
		w = 0
	}

	wheel.AngularVelocity = w
	wheel.RPM = w * systems.RadToRPM
	wheel.LinearVelocity = w * r
	wheel.ForwardVelocity = wheel.LinearVelocity
}
