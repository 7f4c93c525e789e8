package telemetry

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	breaks           int
	repairs          int
	repairRejections int
	energyDrawn      float64
	energyGenerated  float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = max(int32(windowDurationSec/dt+0.5), 1)
	}
	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordBreak records a unit breaking.
func (c *Collector) RecordBreak() {
	c.breaks++
}

// RecordRepair records a successful repair.
func (c *Collector) RecordRepair() {
	c.repairs++
}

// RecordRepairRejection records a repair refused for lack of skill.
func (c *Collector) RecordRepairRejection() {
	c.repairRejections++
}

// RecordEnergy records EC drawn by motors and stored by the generator in one tick.
func (c *Collector) RecordEnergy(drawn, generated float64) {
	c.energyDrawn += drawn
	c.energyGenerated += generated
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the window's events and the unit
// snapshots at window end, then resets counters for the next window.
func (c *Collector) Flush(currentTick int32, snaps []UnitSnapshot, batteryPct float64) WindowStats {
	s := WindowStats{
		WindowStartTick:  c.windowStartTick,
		WindowEndTick:    currentTick,
		SimTimeSec:       float64(currentTick) * c.dt,
		Breaks:           c.breaks,
		Repairs:          c.repairs,
		RepairRejections: c.repairRejections,
		EnergyDrawn:      c.energyDrawn,
		EnergyGenerated:  c.energyGenerated,
		BatteryPct:       batteryPct,
	}
	s.fillUnitStats(snaps)

	c.windowStartTick = currentTick
	c.breaks = 0
	c.repairs = 0
	c.repairRejections = 0
	c.energyDrawn = 0
	c.energyGenerated = 0

	return s
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
