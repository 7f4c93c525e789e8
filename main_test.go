package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/wheels/config"
	"github.com/pthm-cable/wheels/persist"
)

func TestRun_WritesOutputAndSavesState(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load("")
	require.NoError(t, err)

	opts := options{
		maxTicks:    400,
		outputDir:   filepath.Join(dir, "out"),
		dbPath:      filepath.Join(dir, "save.db"),
		throttle:    1,
		payload:     20,
		repairSkill: 0,
		inspect:     "front-left",
	}
	require.NoError(t, run(context.Background(), cfg, opts))

	for _, name := range []string{"units.csv", "windows.csv", "config.yaml"} {
		_, err := os.Stat(filepath.Join(opts.outputDir, name))
		assert.NoError(t, err, name)
	}

	store, err := persist.OpenSQLite(opts.dbPath)
	require.NoError(t, err)
	defer store.Close()
	recs, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 4)
}

func TestRun_RejectsUnknownWearMode(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	err = run(context.Background(), cfg, options{maxTicks: 1, wearMode: "brutal", repairSkill: -1})
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, run(ctx, cfg, options{repairSkill: -1}))
}

func TestRun_UnknownInspectUnit(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	err = run(context.Background(), cfg, options{maxTicks: 1, inspect: "ghost", repairSkill: -1})
	assert.Error(t, err)
}
