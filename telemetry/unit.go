package telemetry

import (
	"log/slog"

	"github.com/pthm-cable/wheels/components"
)

// UnitSnapshot is the read-only display view of one wheel unit at a tick.
type UnitSnapshot struct {
	Tick   int32  `csv:"tick"`
	UnitID string `csv:"unit"`
	Group  int    `csv:"group"`
	State  string `csv:"state"`
	Status string `csv:"status"`

	// Motor
	GearRatio      float64 `csv:"gear_ratio"`
	RPM            float64 `csv:"rpm"`
	Torque         float64 `csv:"torque"`
	PowerInKW      float64 `csv:"power_in_kw"`
	PowerOutKW     float64 `csv:"power_out_kw"`
	EfficiencyPct  float64 `csv:"efficiency_pct"`
	ResourceUse    float64 `csv:"ec_per_sec"`
	MaxECDraw      float64 `csv:"max_ec_per_sec"`
	MaxDrivenSpeed float64 `csv:"max_driven_speed"`

	// Wheel
	Speed         float64 `csv:"speed"`
	BrakeTorque   float64 `csv:"brake_torque"`
	SteeringAngle float64 `csv:"steering_angle"`

	// Wear
	StressTime        float64 `csv:"stress_time"`
	LoadStress        float64 `csv:"load_stress"`
	MotorWearPct      float64 `csv:"motor_wear_pct"`
	WheelWearPct      float64 `csv:"wheel_wear_pct"`
	SuspensionWearPct float64 `csv:"suspension_wear_pct"`
	RepairTimer       float64 `csv:"repair_timer"`

	Temperature float64 `csv:"temperature"`
}

// NewUnitSnapshot copies the display fields out of a unit's components.
func NewUnitSnapshot(
	tick int32,
	unit *components.Unit,
	motor *components.Motor,
	wear *components.Wear,
	wheel *components.Wheel,
	thermal *components.Thermal,
) UnitSnapshot {
	return UnitSnapshot{
		Tick:              tick,
		UnitID:            unit.ID,
		Group:             unit.Group,
		State:             unit.State.String(),
		Status:            unit.State.Status(),
		GearRatio:         motor.GearRatio,
		RPM:               motor.RPM,
		Torque:            motor.TorqueOut,
		PowerInKW:         motor.PowerInKW,
		PowerOutKW:        motor.PowerOutKW,
		EfficiencyPct:     motor.EfficiencyPct,
		ResourceUse:       motor.ResourceUse,
		MaxECDraw:         motor.MaxECDraw,
		MaxDrivenSpeed:    motor.MaxDrivenSpeed,
		Speed:             wheel.LinearVelocity,
		BrakeTorque:       wheel.BrakeTorque,
		SteeringAngle:     wheel.SteeringAngle,
		StressTime:        wear.StressTime,
		LoadStress:        wear.LoadStress,
		MotorWearPct:      wear.MotorWear * 100,
		WheelWearPct:      wear.WheelWear * 100,
		SuspensionWearPct: wear.SuspensionWear * 100,
		RepairTimer:       unit.RepairTimer,
		Temperature:       thermal.Temperature,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s UnitSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("tick", int(s.Tick)),
		slog.String("unit", s.UnitID),
		slog.String("state", s.State),
		slog.Float64("rpm", s.RPM),
		slog.Float64("torque", s.Torque),
		slog.Float64("power_in_kw", s.PowerInKW),
		slog.Float64("power_out_kw", s.PowerOutKW),
		slog.Float64("efficiency_pct", s.EfficiencyPct),
		slog.Float64("ec_per_sec", s.ResourceUse),
		slog.Float64("stress_time", s.StressTime),
		slog.Float64("motor_wear_pct", s.MotorWearPct),
		slog.Float64("wheel_wear_pct", s.WheelWearPct),
		slog.Float64("suspension_wear_pct", s.SuspensionWearPct),
	)
}

// MotorTotals is the combined motor readout across several units.
type MotorTotals struct {
	Units          int
	Torque         float64
	PowerInKW      float64
	PowerOutKW     float64
	ResourceUse    float64
	MaxECDraw      float64
	RPM            float64 // mean
	MaxDrivenSpeed float64 // mean
	EfficiencyPct  float64 // from the summed powers
}

// Aggregate tallies motor telemetry across units. Sums are taken for torque,
// power and EC use; rpm and max driven speed are averaged. Efficiency is
// recomputed from the summed input and output power.
func Aggregate(snaps []UnitSnapshot) MotorTotals {
	var t MotorTotals
	if len(snaps) == 0 {
		return t
	}
	for _, s := range snaps {
		t.Torque += s.Torque
		t.PowerInKW += s.PowerInKW
		t.PowerOutKW += s.PowerOutKW
		t.ResourceUse += s.ResourceUse
		t.MaxECDraw += s.MaxECDraw
		t.RPM += s.RPM
		t.MaxDrivenSpeed += s.MaxDrivenSpeed
	}
	t.Units = len(snaps)
	t.RPM /= float64(t.Units)
	t.MaxDrivenSpeed /= float64(t.Units)
	if t.PowerInKW > 0 {
		t.EfficiencyPct = t.PowerOutKW / t.PowerInKW * 100
	}
	return t
}
