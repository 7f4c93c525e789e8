package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Unit counts at window end
	Units       int `csv:"units"`
	BrokenUnits int `csv:"broken_units"`

	// Events during window
	Breaks           int `csv:"breaks"`
	Repairs          int `csv:"repairs"`
	RepairRejections int `csv:"repair_rejections"`

	// Energy during window
	EnergyDrawn     float64 `csv:"energy_drawn"`
	EnergyGenerated float64 `csv:"energy_generated"`
	BatteryPct      float64 `csv:"battery_pct"`

	// Motor output distribution (sampled at window end)
	PowerOutMean  float64 `csv:"power_out_mean"`
	PowerOutP50   float64 `csv:"power_out_p50"`
	PowerOutP90   float64 `csv:"power_out_p90"`
	EfficiencyP50 float64 `csv:"efficiency_p50"`

	// Wear distribution (sampled at window end, percent)
	MotorWearMean      float64 `csv:"motor_wear_mean"`
	WheelWearMean      float64 `csv:"wheel_wear_mean"`
	SuspensionWearMean float64 `csv:"suspension_wear_mean"`
	SuspensionWearP90  float64 `csv:"suspension_wear_p90"`
	StressTimeMax      float64 `csv:"stress_time_max"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeStats calculates mean and percentiles from sampled values.
func ComputeStats(values []float64) (mean, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// fillUnitStats samples the per-unit distributions into s.
func (s *WindowStats) fillUnitStats(snaps []UnitSnapshot) {
	n := len(snaps)
	s.Units = n
	if n == 0 {
		return
	}
	powerOut := make([]float64, n)
	eff := make([]float64, n)
	motor := make([]float64, n)
	wheel := make([]float64, n)
	susp := make([]float64, n)
	for i, u := range snaps {
		if u.Status == "Broken" {
			s.BrokenUnits++
		}
		powerOut[i] = u.PowerOutKW
		eff[i] = u.EfficiencyPct
		motor[i] = u.MotorWearPct
		wheel[i] = u.WheelWearPct
		susp[i] = u.SuspensionWearPct
		s.StressTimeMax = max(s.StressTimeMax, u.StressTime)
	}
	s.PowerOutMean, s.PowerOutP50, s.PowerOutP90 = ComputeStats(powerOut)
	_, s.EfficiencyP50, _ = ComputeStats(eff)
	s.MotorWearMean, _, _ = ComputeStats(motor)
	s.WheelWearMean, _, _ = ComputeStats(wheel)
	s.SuspensionWearMean, _, s.SuspensionWearP90 = ComputeStats(susp)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("units", s.Units),
		slog.Int("broken_units", s.BrokenUnits),
		slog.Int("breaks", s.Breaks),
		slog.Int("repairs", s.Repairs),
		slog.Int("repair_rejections", s.RepairRejections),
		slog.Float64("energy_drawn", s.EnergyDrawn),
		slog.Float64("energy_generated", s.EnergyGenerated),
		slog.Float64("battery_pct", s.BatteryPct),
		slog.Float64("power_out_mean", s.PowerOutMean),
		slog.Float64("power_out_p50", s.PowerOutP50),
		slog.Float64("power_out_p90", s.PowerOutP90),
		slog.Float64("efficiency_p50", s.EfficiencyP50),
		slog.Float64("motor_wear_mean", s.MotorWearMean),
		slog.Float64("wheel_wear_mean", s.WheelWearMean),
		slog.Float64("suspension_wear_mean", s.SuspensionWearMean),
		slog.Float64("suspension_wear_p90", s.SuspensionWearP90),
		slog.Float64("stress_time_max", s.StressTimeMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"broken", s.BrokenUnits,
		"breaks", s.Breaks,
		"repairs", s.Repairs,
		"energy_drawn", s.EnergyDrawn,
		"battery_pct", s.BatteryPct,
		"power_out_mean", s.PowerOutMean,
		"motor_wear_mean", s.MotorWearMean,
		"stress_time_max", s.StressTimeMax,
	)
}
