package systems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/wheels/components"
)

// recordingReservoir grants a fixed fraction of every request and records calls.
type recordingReservoir struct {
	fraction  float64
	calls     int
	requested float64
}

func (r *recordingReservoir) Request(amount float64) float64 {
	r.calls++
	r.requested += amount
	return amount * r.fraction
}

var testMotorParams = MotorParams{DT: 0.02, Substeps: 5, PowerConversion: 65}

func newTestMotor(t *testing.T, mutate func(*components.MotorConfig)) (*components.Motor, *components.Unit, *components.Wheel) {
	t.Helper()
	cfg := components.DefaultMotorConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	m := components.NewMotor(&cfg)
	unit := &components.Unit{ID: "test", State: components.StateDeployed, TorqueScale: 1, RPMScale: 1}
	wheel := &components.Wheel{Radius: 0.5, Mass: 0.04}
	RecalcMotor(&m, unit, wheel.Radius, testMotorParams.PowerConversion)
	return &m, unit, wheel
}

// ---------- Power curve derivation ----------

func TestCalcPowerStats_DefaultMotor(t *testing.T) {
	s := CalcPowerStats(10, 2500, 0.85, 0.05)
	assert.InDelta(t, 0.8172560023684431, s.PeakFraction, 1e-12)
	assert.InDelta(t, 320.9364321300876, s.PeakOutput, 1e-9)
	assert.InDelta(t, 1978.2392004096835, s.PeakInput, 1e-9)
	assert.InDelta(t, 98.91196002048417, s.NoLoad, 1e-9)
}

func TestCalcPowerStats_Deterministic(t *testing.T) {
	a := CalcPowerStats(7.3, 1800, 0.71, 0.13)
	b := CalcPowerStats(7.3, 1800, 0.71, 0.13)
	assert.Equal(t, a, b)
}

func TestCalcPowerStats_NoLoadBelowPeak(t *testing.T) {
	for a := 0.0; a < 0.5; a += 0.01 {
		for e := 0.01; e < 1; e += 0.02 {
			s := CalcPowerStats(10, 2500, e, a)
			if !(s.NoLoad < s.PeakInput) {
				t.Fatalf("a=%.2f e=%.2f: no-load %f not below peak %f", a, e, s.NoLoad, s.PeakInput)
			}
			if !(s.PeakFraction > 0 && s.PeakFraction <= 1) {
				t.Fatalf("a=%.2f e=%.2f: peak fraction %f outside (0,1]", a, e, s.PeakFraction)
			}
			if a > 0 && s.PeakFraction >= 1 {
				t.Fatalf("a=%.2f: peak fraction %f should be below 1", a, s.PeakFraction)
			}
		}
	}
}

func TestRecalcMotor_DerivedFigures(t *testing.T) {
	m, _, _ := newTestMotor(t, nil)
	assert.InDelta(t, 30.43444923707205, m.MaxECDraw, 1e-9)
	assert.InDelta(t, 32.724923437499996, m.MaxDrivenSpeed, 1e-9)
	assert.Equal(t, 10.0, m.ScaledMaxTorque)
	assert.Equal(t, 2500.0, m.ScaledMaxRPM)
}

func TestRecalcMotor_ScaleChange(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	before := m.PeakInputPower

	unit.TorqueScale = 8
	RecalcMotor(m, unit, wheel.Radius, 65)

	assert.Equal(t, 80.0, m.ScaledMaxTorque)
	assert.InDelta(t, before*8, m.PeakInputPower, 1e-6)
}

func TestRecalcMotor_ClampsGear(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	m.GearRatio = 100
	RecalcMotor(m, unit, wheel.Radius, 65)
	assert.Equal(t, 20.0, m.GearRatio)
}

// ---------- Per-tick update ----------

func TestRawTorque_StallScenario(t *testing.T) {
	m, unit, _ := newTestMotor(t, nil)
	assert.Equal(t, 10.0, rawTorque(m, unit, 1.0, 0))
}

func TestUpdateMotor_StallTorqueAtRest(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	wheel.Mass = 1e12 // shaft effectively cannot accelerate within the tick

	UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1}, Unlimited{}, testMotorParams)

	assert.InDelta(t, 10*m.GearRatio, wheel.MotorTorque, 1e-6)
	assert.Equal(t, wheel.MotorTorque, m.TorqueOut)
}

func TestUpdateMotor_ZeroCommand(t *testing.T) {
	for _, rpm := range []float64{-500, 0, 10, 1234, 5000} {
		m, unit, wheel := newTestMotor(t, nil)
		wheel.RPM = rpm
		res := &recordingReservoir{fraction: 1}

		drawn := UpdateMotor(m, unit, wheel, components.DriverInput{}, res, testMotorParams)

		assert.Equal(t, 0.0, wheel.MotorTorque, "rpm %f", rpm)
		assert.Equal(t, 0.0, drawn, "rpm %f", rpm)
		assert.Equal(t, 0, res.calls, "rpm %f", rpm)
		assert.Equal(t, 0.0, m.ResourceUse)
	}
}

func TestUpdateMotor_FullGrantLeavesTorqueUnchanged(t *testing.T) {
	in := components.DriverInput{Throttle: 0.8}

	m1, u1, w1 := newTestMotor(t, nil)
	w1.RPM = 120
	UpdateMotor(m1, u1, w1, in, Unlimited{}, testMotorParams)

	m2, u2, w2 := newTestMotor(t, nil)
	w2.RPM = 120
	res := &recordingReservoir{fraction: 1}
	drawn := UpdateMotor(m2, u2, w2, in, res, testMotorParams)

	assert.Equal(t, w1.MotorTorque, w2.MotorTorque)
	assert.Equal(t, res.requested, drawn)
	assert.Equal(t, 1, res.calls)
}

func TestUpdateMotor_ShortfallScalesTorque(t *testing.T) {
	in := components.DriverInput{Throttle: 1}
	m, unit, wheel := newTestMotor(t, nil)
	wheel.RPM = 50
	UpdateMotor(m, unit, wheel, in, Unlimited{}, testMotorParams)
	full := wheel.MotorTorque
	fullUse := m.ResourceUse
	require.NotZero(t, full)

	for _, k := range []float64{0, 0.1, 0.25, 0.5, 0.9} {
		m, unit, wheel := newTestMotor(t, nil)
		wheel.RPM = 50
		res := &recordingReservoir{fraction: k}
		UpdateMotor(m, unit, wheel, in, res, testMotorParams)

		assert.InDelta(t, full*k, wheel.MotorTorque, 1e-9, "k=%.2f", k)
		assert.InDelta(t, fullUse*k, m.ResourceUse, 1e-9, "k=%.2f", k)
	}
}

func TestUpdateMotor_BatteryDebit(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	bat := NewBattery(100, 100)

	drawn := UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1}, bat, testMotorParams)

	require.Greater(t, drawn, 0.0)
	assert.InDelta(t, 100-drawn, bat.Amount, 1e-12)
	assert.InDelta(t, m.ResourceUse*testMotorParams.DT, drawn, 1e-12)
}

func TestUpdateMotor_EmptyBatteryNoTorque(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	bat := NewBattery(100, 0)

	UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1}, bat, testMotorParams)
	assert.Equal(t, 0.0, wheel.MotorTorque)
}

func TestUpdateMotor_ZeroEfficiencyDeliversNothing(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	m.Efficiency = 0
	RecalcMotor(m, unit, wheel.Radius, testMotorParams.PowerConversion)
	bat := NewBattery(100, 100)

	drawn := UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1}, bat, testMotorParams)

	assert.Equal(t, 0.0, drawn)
	assert.Equal(t, 0.0, wheel.MotorTorque)
	assert.Equal(t, 0.0, m.ResourceUse)
	assert.Equal(t, 100.0, bat.Percent())
}

func TestUpdateMotor_NotDeployedZeroesOutput(t *testing.T) {
	states := []components.WheelState{
		components.StateRetracted, components.StateRetracting,
		components.StateDeploying, components.StateBroken,
	}
	for _, s := range states {
		m, unit, wheel := newTestMotor(t, nil)
		unit.State = s
		wheel.MotorTorque = 42
		res := &recordingReservoir{fraction: 1}

		drawn := UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1, Steer: 1}, res, testMotorParams)

		assert.Equal(t, 0.0, wheel.MotorTorque, s.String())
		assert.Equal(t, 0.0, drawn, s.String())
		assert.Equal(t, 0, res.calls, s.String())
	}
}

func TestUpdateMotor_SubstepsLimitOvershoot(t *testing.T) {
	// A light wheel near max rpm: sub-stepping lets torque fall off within the tick.
	m1, u1, w1 := newTestMotor(t, nil)
	w1.RPM = 500
	w1.Mass = 0.001
	single := testMotorParams
	single.Substeps = 1
	UpdateMotor(m1, u1, w1, components.DriverInput{Throttle: 1}, Unlimited{}, single)

	m5, u5, w5 := newTestMotor(t, nil)
	w5.RPM = 500
	w5.Mass = 0.001
	UpdateMotor(m5, u5, w5, components.DriverInput{Throttle: 1}, Unlimited{}, testMotorParams)

	assert.Less(t, w5.MotorTorque, w1.MotorTorque)
}

func TestMotorCommand_LockInvertLimit(t *testing.T) {
	m, _, wheel := newTestMotor(t, nil)

	assert.Equal(t, 1.0, MotorCommand(m, wheel, components.DriverInput{Throttle: 0.7, ThrottleTrim: 0.6}))

	m.OutputLimit = 50
	assert.InDelta(t, 0.25, MotorCommand(m, wheel, components.DriverInput{Throttle: 0.5}), 1e-12)

	m.Inverted = true
	assert.InDelta(t, -0.25, MotorCommand(m, wheel, components.DriverInput{Throttle: 0.5}), 1e-12)

	m.Locked = true
	assert.Equal(t, 0.0, math.Abs(MotorCommand(m, wheel, components.DriverInput{Throttle: 0.5})))
}

func TestMotorCommand_TankSteerBrakeAssist(t *testing.T) {
	m, _, wheel := newTestMotor(t, func(c *components.MotorConfig) { c.TankSteering = true })
	wheel.RPM = 100

	// Steering right commands rI = -1, against the wheel's positive rotation.
	cmd := MotorCommand(m, wheel, components.DriverInput{Steer: 1})

	assert.Equal(t, -1.0, cmd)
	expected := (1 - (1 - 100*m.GearRatio/2500)) * 10
	assert.InDelta(t, expected, wheel.BrakeTorque, 1e-9)
}

func TestMotorCommand_TankSteerSameDirectionNoBrake(t *testing.T) {
	m, _, wheel := newTestMotor(t, func(c *components.MotorConfig) { c.TankSteering = true })
	wheel.RPM = 100

	cmd := MotorCommand(m, wheel, components.DriverInput{Throttle: 0.5, Steer: -0.25})

	assert.InDelta(t, 0.75, cmd, 1e-12)
	assert.Equal(t, 0.0, wheel.BrakeTorque)
}

func TestMotorCommand_HalfTrackReversingFlipsSteer(t *testing.T) {
	m, _, wheel := newTestMotor(t, func(c *components.MotorConfig) { c.TankSteering = true })
	m.HalfTrack = true
	wheel.RPM = -100

	cmd := MotorCommand(m, wheel, components.DriverInput{Throttle: -0.5, Steer: 0.25})

	// rI = -0.25 flipped to +0.25 while reversing.
	assert.InDelta(t, -0.25, cmd, 1e-12)
}

func TestMotorCommand_SteerLockedIgnoresSteer(t *testing.T) {
	m, _, wheel := newTestMotor(t, func(c *components.MotorConfig) { c.TankSteering = true })
	m.SteerLocked = true
	assert.Equal(t, 0.0, MotorCommand(m, wheel, components.DriverInput{Steer: 1}))
	assert.Equal(t, 0.0, wheel.BrakeTorque)
}

func TestUpdateMotor_TelemetryFinite(t *testing.T) {
	inputs := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300}
	for _, rpm := range inputs {
		m, unit, wheel := newTestMotor(t, func(c *components.MotorConfig) { c.TankSteering = true })
		wheel.RPM = rpm
		UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1, Steer: 0.5}, Unlimited{}, testMotorParams)

		for _, v := range []float64{wheel.MotorTorque, m.RPM, m.PowerInKW, m.PowerOutKW, m.EfficiencyPct, m.ResourceUse, wheel.BrakeTorque} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "rpm %v produced non-finite %v", rpm, v)
		}
	}
}

func TestUpdateMotor_ZeroMaxRPMIsSafe(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	unit.RPMScale = 0
	RecalcMotor(m, unit, wheel.Radius, 65)

	UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 1}, Unlimited{}, testMotorParams)

	assert.Equal(t, 0.0, wheel.MotorTorque)
	assert.Equal(t, 0.0, m.EfficiencyPct)
}

func TestUpdateMotor_EfficiencyTelemetry(t *testing.T) {
	m, unit, wheel := newTestMotor(t, nil)
	wheel.RPM = 0.8172560023684431 * 2500 / m.GearRatio
	UpdateMotor(m, unit, wheel, components.DriverInput{Throttle: 0.1}, Unlimited{}, testMotorParams)

	assert.Greater(t, m.EfficiencyPct, 0.0)
	assert.Less(t, m.EfficiencyPct, 100.0)
}
