package systems

import (
	"math"

	"github.com/pthm-cable/wheels/components"
)

// UpdateSteering moves the steering input toward the driver's demand and sets
// the wheel's steering angle, narrowing the range as speed approaches the
// unit's safe limit. Steering only acts on a Deployed unit.
func UpdateSteering(s *components.Steering, unit *components.Unit, wheel *components.Wheel, in components.DriverInput) {
	if !unit.State.CanOutput() {
		wheel.SteeringAngle = 0
		return
	}

	rI := -(in.Steer + in.SteerTrim)
	if s.Locked {
		rI = 0
	}
	if s.Inverted {
		rI = -rI
	}
	if rI < 0 {
		rI *= 1 - s.Bias
	}
	if rI > 0 {
		rI *= 1 + s.Bias
	}
	rI = clamp(rI, -1, 1)
	s.Input = moveTowards(s.Input, rI, s.Response)

	perc := 0.0
	if unit.MaxSafeSpeed > 0 {
		perc = clamp01(math.Abs(wheel.ForwardVelocity) / unit.MaxSafeSpeed)
	}
	limit := (1-perc)*s.LimitLow + perc*s.LimitHigh
	if s.UseCurve {
		limit *= s.Curve.Evaluate(perc)
	}
	wheel.SteeringAngle = finite(s.MaxAngle * s.Input * limit)
}
