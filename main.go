package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pthm-cable/wheels/components"
	"github.com/pthm-cable/wheels/config"
	"github.com/pthm-cable/wheels/persist"
	"github.com/pthm-cable/wheels/systems"
	"github.com/pthm-cable/wheels/telemetry"
	"github.com/pthm-cable/wheels/vehicle"
)

// options holds the command-line settings for one run.
type options struct {
	maxTicks    int
	outputDir   string
	dbPath      string
	wearMode    string
	logStats    bool
	throttle    float64
	steer       float64
	payload     float64
	brakeAfter  int
	repairSkill int
	inspect     string
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	var opts options
	flag.IntVar(&opts.maxTicks, "max-ticks", 0, "Stop after N ticks (0 = use config)")
	flag.StringVar(&opts.outputDir, "output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite file for saved unit state (empty = use config)")
	flag.StringVar(&opts.wearMode, "wear-mode", "", "Override wear mode: none, simple or advanced")
	flag.BoolVar(&opts.logStats, "log-stats", false, "Output window stats via slog")
	flag.Float64Var(&opts.throttle, "throttle", 1, "Drive throttle in [-1,1]")
	flag.Float64Var(&opts.steer, "steer", 0, "Steering input in [-1,1]")
	flag.Float64Var(&opts.payload, "payload", 0, "Extra mass carried, in tonnes")
	flag.IntVar(&opts.brakeAfter, "brake-after", 0, "Release throttle and brake from this tick (0 = never)")
	flag.IntVar(&opts.repairSkill, "repair-skill", -1, "Repair broken units at each window with this skill (-1 = never)")
	flag.StringVar(&opts.inspect, "inspect", "", "Log the readout of this unit when the run ends")
	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// run drives the vehicle until max ticks or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, opts options) error {
	if opts.wearMode != "" {
		mode, err := components.ParseWearMode(opts.wearMode)
		if err != nil {
			return err
		}
		cfg.Wear.Mode = mode
	}
	maxTicks := cfg.Sim.MaxTicks
	if opts.maxTicks > 0 {
		maxTicks = opts.maxTicks
	}
	outputDir := cfg.Telemetry.OutputDir
	if opts.outputDir != "" {
		outputDir = opts.outputDir
	}
	dbPath := cfg.Persist.Path
	if opts.dbPath != "" {
		dbPath = opts.dbPath
	}

	meters := telemetry.NewMeterSource()
	defer meters.Shutdown(context.WithoutCancel(ctx))
	metrics, err := telemetry.NewMetrics(meters.Meter())
	if err != nil {
		return err
	}
	perf := telemetry.NewPerfCollector(cfg.Derived.WindowTicks)

	v, err := vehicle.New(cfg,
		vehicle.WithLogger(slog.Default()),
		vehicle.WithMetrics(metrics),
		vehicle.WithPerf(perf),
	)
	if err != nil {
		return err
	}
	v.SetPayload(opts.payload)

	var store persist.Store
	if dbPath != "" {
		s, err := persist.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s

		recs, err := store.LoadAll(ctx)
		if err != nil {
			return err
		}
		if err := v.Restore(recs); err != nil {
			return err
		}
		slog.Info("restored unit state", "path", dbPath, "records", len(recs))
	}

	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	collector := telemetry.NewCollector(cfg.Telemetry.Window, cfg.Sim.DT)

	slog.Info("starting simulation",
		"max_ticks", maxTicks,
		"wear_mode", cfg.Wear.Mode.String(),
		"payload", opts.payload,
		"output_dir", om.Dir(),
	)

	for maxTicks <= 0 || int(v.Tick()) < maxTicks {
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", v.Tick())
			break
		}

		in := components.DriverInput{
			Throttle:     opts.throttle,
			Steer:        opts.steer,
			MainThrottle: max(opts.throttle, 0),
		}
		if opts.brakeAfter > 0 && int(v.Tick()) >= opts.brakeAfter {
			in.Throttle = 0
			in.MainThrottle = 0
			in.Brakes = true
		}

		rep := v.Step(in)
		collector.RecordEnergy(rep.EnergyDrawn, rep.EnergyGenerated)
		for range rep.Breaks {
			collector.RecordBreak()
		}

		if collector.ShouldFlush(rep.Tick) {
			if opts.repairSkill >= 0 {
				repairBroken(ctx, v, collector, systems.Skill(opts.repairSkill))
			}
			flushWindow(v, collector, om, perf, rep.Tick, opts.logStats)
		}
	}

	snaps := v.Snapshots()
	totals := telemetry.Aggregate(snaps)
	slog.Info("simulation finished",
		"tick", v.Tick(),
		"battery_pct", v.Battery().Percent(),
		"torque", totals.Torque,
		"power_in_kw", totals.PowerInKW,
		"power_out_kw", totals.PowerOutKW,
		"efficiency_pct", totals.EfficiencyPct,
	)
	for _, s := range snaps {
		slog.Debug("unit", "snapshot", s)
	}
	totalsByName, err := meters.Totals(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	slog.Info("metrics",
		"breaks", totalsByName["wheels.breaks"],
		"repairs", totalsByName["wheels.repairs"],
		"repair_rejections", totalsByName["wheels.repair_rejections"],
		"energy_drawn", totalsByName["wheels.energy_drawn"],
	)
	if opts.inspect != "" {
		p, err := v.Unit(opts.inspect)
		if err != nil {
			return err
		}
		logReadout(p, cfg.Wear.Mode)
	}

	if store != nil {
		if err := store.Save(ctx, v.Records()); err != nil {
			return err
		}
		slog.Info("saved unit state", "path", dbPath, "records", len(snaps))
	}
	return nil
}

// logReadout logs a unit's display fields the way a part window lists them.
// Advanced wear bars only appear in advanced mode.
func logReadout(p vehicle.Parts, mode components.WearMode) {
	emit := func(d components.FieldDescriptor, value float64) {
		if value == 0 && !d.ShowWhenZero {
			return
		}
		slog.Info("readout",
			"unit", p.Unit.ID,
			"field", d.Label,
			"value", fmt.Sprintf(d.Format, value),
			"units", d.Units,
		)
	}
	slog.Info("readout", "unit", p.Unit.ID, "field", "Status", "value", p.Unit.State.Status())
	for _, d := range components.MotorFieldDescriptors() {
		emit(d, components.GetMotorValue(p.Motor, d.ID))
	}
	if mode == components.WearNone {
		return
	}
	for _, d := range components.WearFieldDescriptors() {
		if d.Group == "advanced" && mode != components.WearAdvanced {
			continue
		}
		emit(d, components.GetWearValue(p.Wear, d.ID))
	}
}

// repairBroken attempts a repair on every broken unit.
func repairBroken(ctx context.Context, v *vehicle.Vehicle, collector *telemetry.Collector, skill systems.Skill) {
	for _, s := range v.Snapshots() {
		if s.State != components.StateBroken.String() {
			continue
		}
		err := v.Repair(ctx, s.UnitID, skill)
		switch {
		case err == nil:
			collector.RecordRepair()
		case errors.Is(err, systems.ErrInsufficientSkill):
			collector.RecordRepairRejection()
		default:
			slog.Warn("repair failed", "unit", s.UnitID, "error", err)
		}
	}
}

// flushWindow closes the current stats window and writes its output.
func flushWindow(
	v *vehicle.Vehicle,
	collector *telemetry.Collector,
	om *telemetry.OutputManager,
	perf *telemetry.PerfCollector,
	tick int32,
	logStats bool,
) {
	snaps := v.Snapshots()
	stats := collector.Flush(tick, snaps, v.Battery().Percent())

	if logStats {
		stats.LogStats()
		perf.Stats().LogStats()
	}
	if err := om.WriteWindow(stats); err != nil {
		slog.Error("failed to write window stats", "error", err)
	}
	if err := om.WriteUnits(snaps); err != nil {
		slog.Error("failed to write unit snapshots", "error", err)
	}
}
