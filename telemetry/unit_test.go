package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/config"
)

func TestNewUnitSnapshot(t *testing.T) {
	unit := &components.Unit{ID: "fl", Group: 2, State: components.StateBroken, RepairTimer: 0.7}
	motor := &components.Motor{GearRatio: 4, RPM: 1200, TorqueOut: 30, PowerInKW: 80, PowerOutKW: 60, EfficiencyPct: 75}
	wear := &components.Wear{StressTime: 0.2, MotorWear: 0.1, WheelWear: 0.25, SuspensionWear: 0.5}
	wheel := &components.Wheel{LinearVelocity: 12, BrakeTorque: 3}
	thermal := &components.Thermal{Temperature: 410}

	s := NewUnitSnapshot(9, unit, motor, wear, wheel, thermal)

	assert.Equal(t, int32(9), s.Tick)
	assert.Equal(t, "fl", s.UnitID)
	assert.Equal(t, "Broken", s.State)
	assert.Equal(t, "Broken", s.Status)
	assert.InDelta(t, 10.0, s.MotorWearPct, 1e-12)
	assert.InDelta(t, 25.0, s.WheelWearPct, 1e-12)
	assert.InDelta(t, 50.0, s.SuspensionWearPct, 1e-12)
	assert.Equal(t, 410.0, s.Temperature)
	assert.Equal(t, 12.0, s.Speed)
}

func TestUnitSnapshot_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("unit", "snapshot", UnitSnapshot{UnitID: "rr", State: "Deployed", RPM: 100})

	out := buf.String()
	assert.Contains(t, out, `"unit":"rr"`)
	assert.Contains(t, out, `"rpm":100`)
}

func TestAggregate(t *testing.T) {
	snaps := []UnitSnapshot{
		{Torque: 10, PowerInKW: 100, PowerOutKW: 80, ResourceUse: 2, MaxECDraw: 30, RPM: 1000, MaxDrivenSpeed: 30},
		{Torque: 20, PowerInKW: 100, PowerOutKW: 40, ResourceUse: 1, MaxECDraw: 30, RPM: 2000, MaxDrivenSpeed: 20},
	}
	got := Aggregate(snaps)

	assert.Equal(t, 2, got.Units)
	assert.Equal(t, 30.0, got.Torque)
	assert.Equal(t, 200.0, got.PowerInKW)
	assert.Equal(t, 120.0, got.PowerOutKW)
	assert.Equal(t, 3.0, got.ResourceUse)
	assert.Equal(t, 60.0, got.MaxECDraw)
	assert.Equal(t, 1500.0, got.RPM)
	assert.Equal(t, 25.0, got.MaxDrivenSpeed)
	assert.InDelta(t, 60.0, got.EfficiencyPct, 1e-12)

	assert.Equal(t, MotorTotals{}, Aggregate(nil))
}

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// All methods are nil-safe.
	assert.NoError(t, om.WriteUnits([]UnitSnapshot{{}}))
	assert.NoError(t, om.WriteWindow(WindowStats{}))
	assert.NoError(t, om.Close())
	assert.Equal(t, "", om.Dir())
}

func TestOutputManager_WritesHeadersOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteUnits([]UnitSnapshot{{Tick: 1, UnitID: "a"}, {Tick: 1, UnitID: "b"}}))
	require.NoError(t, om.WriteUnits([]UnitSnapshot{{Tick: 2, UnitID: "a"}}))
	require.NoError(t, om.WriteWindow(WindowStats{WindowEndTick: 50, Breaks: 1}))
	require.NoError(t, om.WriteWindow(WindowStats{WindowEndTick: 100}))

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, om.WriteConfig(cfg))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "units.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "tick,unit,"))

	var rows []UnitSnapshot
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "b", rows[1].UnitID)
	assert.Equal(t, int32(2), rows[2].Tick)

	data, err = os.ReadFile(filepath.Join(dir, "windows.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "breaks")

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}

func TestMetrics_Record(t *testing.T) {
	src := NewMeterSource()
	defer src.Shutdown(context.Background())
	m, err := NewMetrics(src.Meter())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordBreak(ctx, "a")
	m.RecordBreak(ctx, "b")
	m.RecordRepair(ctx, "a", false)
	m.RecordRepair(ctx, "b", true)
	m.RecordRepair(ctx, "b", true)
	m.RecordEnergy(ctx, 1.25)
	m.RecordEnergy(ctx, 0.75)

	totals, err := src.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, totals["wheels.breaks"])
	assert.Equal(t, 1.0, totals["wheels.repairs"])
	assert.Equal(t, 2.0, totals["wheels.repair_rejections"])
	assert.InDelta(t, 2.0, totals["wheels.energy_drawn"], 1e-12)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	ctx := context.Background()
	var m *Metrics
	m.RecordBreak(ctx, "a")
	m.RecordRepair(ctx, "a", true)
	m.RecordEnergy(ctx, 1)
}

func TestMetrics_NoopMeter(t *testing.T) {
	m, err := NewMetrics(noop.Meter{})
	require.NoError(t, err)
	m.RecordBreak(context.Background(), "a")

	m, err = NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}
