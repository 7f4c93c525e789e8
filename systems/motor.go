package systems

import (
	"math"

	"github.com/pthm-cable/wheels/components"
)

const (
	// RPMToRad converts revolutions per minute to radians per second.
	RPMToRad = 0.104719755
	// RadToRPM converts radians per second to revolutions per minute.
	RadToRPM = 1 / RPMToRad

	// peakRPMToRad is the rounded constant used by the power curve derivation.
	// Displayed max EC/s figures depend on it, so it is kept separate from RPMToRad.
	peakRPMToRad = 0.10472
)

// MotorParams holds the vessel-wide motor integration settings.
type MotorParams struct {
	DT              float64 // tick length in seconds
	Substeps        int     // Euler sub-steps per tick
	PowerConversion float64 // kW of work per EC/s
}

// PowerStats are the static electrical figures derived from a motor definition.
type PowerStats struct {
	PeakFraction float64 // rpm fraction at which output power peaks
	PeakOutput   float64 // kW mechanical at PeakFraction
	PeakInput    float64 // kW electrical at stall
	NoLoad       float64 // kW electrical at max rpm
}

// CalcPowerStats derives peak and no-load electrical draw for a motor with the
// given stall torque, max rpm, efficiency and no-load power fraction, assuming a
// linear torque response. The result is deterministic for identical inputs.
func CalcPowerStats(maxTorque, maxRPM, efficiency, powerFactor float64) PowerStats {
	a := powerFactor
	x := 1/(1-a) - math.Sqrt(a/math.Pow(a-1, 2))
	effInverse := 1 - efficiency
	outAtPeak := x * maxRPM * effInverse * maxTorque * peakRPMToRad
	inAtPeak := outAtPeak / efficiency
	peakInput := 1 / (x*a + effInverse) * inAtPeak
	return PowerStats{
		PeakFraction: x,
		PeakOutput:   outAtPeak,
		PeakInput:    finite(peakInput),
		NoLoad:       finite(a * peakInput),
	}
}

// RecalcMotor refreshes the scaled ceilings and cached power figures of a motor.
// Call after spawn and whenever scale, gear ratio or efficiency change.
func RecalcMotor(m *components.Motor, unit *components.Unit, radius, powerConversion float64) {
	cfg := m.Config
	m.ScaledMaxTorque = cfg.StallTorque * unit.TorqueScale
	m.ScaledMaxRPM = cfg.MaxRPM * unit.RPMScale
	m.GearRatio = cfg.ClampGear(m.GearRatio)

	stats := CalcPowerStats(m.ScaledMaxTorque, m.ScaledMaxRPM, m.Efficiency, cfg.PowerFactor)
	m.PeakInputPower = stats.PeakInput
	m.NoLoadPower = stats.NoLoad
	m.MaxECDraw = 0
	if powerConversion > 0 {
		m.MaxECDraw = finite(stats.PeakInput / powerConversion)
	}
	m.MaxDrivenSpeed = finite(radius * (m.ScaledMaxRPM / m.GearRatio) * RPMToRad)
}

// MotorCommand resolves the driver input into a normalized motor command and
// applies the tank-steer brake assist to the wheel. The result is clamped to
// [-1,1] and scaled by the output limiter.
func MotorCommand(m *components.Motor, wheel *components.Wheel, in components.DriverInput) float64 {
	fI := in.Throttle + in.ThrottleTrim
	if m.Locked {
		fI = 0
	}
	if m.Inverted {
		fI = -fI
	}
	if m.Config.TankSteering && !m.SteerLocked && !m.Locked {
		rI := -(in.Steer + in.SteerTrim)
		if m.SteerInverted {
			rI = -rI
		}
		if m.HalfTrack && ((fI < 0 && !m.Inverted) || (fI > 0 && m.Inverted)) {
			rI = -rI
		}
		// Steering against the current rotation also brakes the wheel.
		if rI != 0 && sign(wheel.RPM) != sign(rI) && m.ScaledMaxRPM > 0 {
			pct := math.Abs(wheel.RPM*m.GearRatio) / m.ScaledMaxRPM
			brake := (1 - m.Config.Curve.Evaluate(pct)) * m.ScaledMaxTorque * math.Abs(rI)
			wheel.BrakeTorque += finite(brake)
		}
		fI += rI
	}
	fI = clamp(fI, -1, 1)
	return finite(fI * m.OutputLimit * 0.01)
}

// UpdateMotor runs one tick of the motor simulation for a single wheel.
// The unit must be Deployed; any other state zeroes motor output.
// Energy is requested from res, and a partial grant scales torque down by
// the same ratio. Returns the EC actually drawn this tick.
func UpdateMotor(
	m *components.Motor,
	unit *components.Unit,
	wheel *components.Wheel,
	in components.DriverInput,
	res Reservoir,
	p MotorParams,
) float64 {
	if !unit.State.CanOutput() {
		m.ClearOutputs()
		m.RPM = 0
		wheel.MotorTorque = 0
		return 0
	}

	fI := MotorCommand(m, wheel, in)
	shaftRPM := wheel.RPM * m.GearRatio

	torque, ecs := integrateMotor(m, unit, wheel.Mass, fI, shaftRPM, p)
	ratio, drawn := drainReservoir(res, ecs, p.DT)
	m.ResourceUse = ratio * ecs

	torque = finite(torque * ratio * m.GearRatio)
	wheel.MotorTorque = torque
	m.TorqueOut = torque

	updateMotorTelemetry(m, shaftRPM)
	return drawn
}

// integrateMotor advances shaft rpm with sub-stepped explicit Euler and
// returns the averaged raw torque and EC/s demand over the tick.
func integrateMotor(m *components.Motor, unit *components.Unit, mass, fI, rpm float64, p MotorParams) (torque, ecs float64) {
	if fI == 0 {
		return 0, 0
	}
	n := p.Substeps
	if n < 1 {
		n = 1
	}
	frac := 1.0 / float64(n)
	dt := p.DT * frac
	for range n {
		tt := frac * rawTorque(m, unit, fI, rpm)
		torque += tt
		ecs += frac * ecUse(m, fI, rpm, p.PowerConversion)
		rpm = integrateShaftRPM(rpm, mass, tt, dt)
	}
	// A motor that costs nothing to run, such as one worn down to zero
	// efficiency, delivers nothing.
	if !(finite(ecs) > 0) {
		return 0, 0
	}
	return finite(torque), finite(ecs)
}

// rawTorque returns ungeared torque for command fI at the given shaft rpm.
func rawTorque(m *components.Motor, unit *components.Unit, fI, rpm float64) float64 {
	maxRPM := m.ScaledMaxRPM
	if !(maxRPM > 0) {
		return 0
	}
	rpm = clamp(math.Abs(rpm), 0, maxRPM)
	out := m.Config.Curve.Evaluate(rpm/maxRPM) * m.Config.StallTorque * fI * unit.TorqueScale
	return finite(out)
}

// ecUse returns EC/s drawn for command fI at the given shaft rpm.
func ecUse(m *components.Motor, fI, rpm, powerConversion float64) float64 {
	fI = math.Abs(fI)
	if fI <= 0 || !(m.ScaledMaxRPM > 0) || !(powerConversion > 0) {
		return 0
	}
	rpm = min(math.Abs(rpm), m.ScaledMaxRPM)
	torquePct := 1 - rpm/m.ScaledMaxRPM
	draw := torquePct*(m.PeakInputPower-m.NoLoadPower) + m.NoLoadPower
	return finite(draw * fI / powerConversion)
}

// integrateShaftRPM accelerates the shaft by torque over dt against mass.
func integrateShaftRPM(rpm, mass, torque, dt float64) float64 {
	if !(mass > 0) {
		return rpm
	}
	w := rpm*RPMToRad + torque/mass*dt
	return finite(w * RadToRPM)
}

// drainReservoir requests ecs*dt from res. It returns the fraction granted
// (exactly 1 when the grant matches the request) and the amount drawn.
func drainReservoir(res Reservoir, ecs, dt float64) (ratio, drawn float64) {
	if !(ecs > 0) || res == nil {
		return 1, 0
	}
	drain := ecs * dt
	if !(drain > 0) {
		return 1, 0
	}
	used := res.Request(drain)
	used = clamp(finite(used), 0, drain)
	if used != drain {
		return used / drain, used
	}
	return 1, used
}

// updateMotorTelemetry fills the display figures for the current shaft rpm.
func updateMotorTelemetry(m *components.Motor, shaftRPM float64) {
	m.RPM = finite(math.Abs(shaftRPM))
	if !(m.ScaledMaxRPM > 0) {
		m.PowerOutKW, m.PowerInKW, m.EfficiencyPct = 0, 0, 0
		return
	}
	torquePct := 1 - m.RPM/m.ScaledMaxRPM
	m.PowerOutKW = finite(m.RPM * m.ScaledMaxTorque * torquePct * RPMToRad)
	m.PowerInKW = finite(m.NoLoadPower + torquePct*(m.PeakInputPower-m.NoLoadPower))
	if m.PowerInKW <= 0 {
		m.EfficiencyPct = 0
		return
	}
	m.EfficiencyPct = finite(m.PowerOutKW / m.PowerInKW * 100)
}
