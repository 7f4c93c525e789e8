package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "wheels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	rec := UnitRecord{
		ID:               "front-left",
		GearRatio:        6,
		OutputLimit:      80,
		MotorInverted:    true,
		BrakeLimit:       50,
		SteeringLimitLow: 0.9,
		SteeringBias:     -0.2,
		MotorWear:        0.3,
		WheelWear:        0.1,
		State:            "Broken",
	}
	require.NoError(t, s.Save(ctx, []UnitRecord{rec}))

	got, err := s.Load(ctx, "front-left")
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.GearRatio)
	assert.True(t, got.MotorInverted)
	assert.Equal(t, -0.2, got.SteeringBias)
	assert.Equal(t, 0.3, got.MotorWear)
	assert.Equal(t, "Broken", got.State)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSQLiteStore_SaveUpserts(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []UnitRecord{{ID: "a", GearRatio: 2}, {ID: "b", GearRatio: 3}}))
	require.NoError(t, s.Save(ctx, []UnitRecord{{ID: "a", GearRatio: 9, State: "Deployed"}}))

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, 9.0, all[0].GearRatio)
	assert.Equal(t, 3.0, all[1].GearRatio)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := openTemp(t)

	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := OpenSQLite("")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, nil))
	require.NoError(t, s.Save(ctx, []UnitRecord{{ID: "x"}}))
	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wheels.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, []UnitRecord{{ID: "rear-left", SuspensionWear: 0.4}}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "rear-left")
	require.NoError(t, err)
	assert.Equal(t, 0.4, got.SuspensionWear)
}
