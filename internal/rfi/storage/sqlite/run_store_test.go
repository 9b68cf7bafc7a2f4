package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rfi.flagger/internal/monitoring"
	"github.com/banshee-data/rfi.flagger/internal/rfi/strategy"
	"github.com/banshee-data/rfi.flagger/internal/rfi/testset"
	"github.com/banshee-data/rfi.flagger/internal/timeutil"
)

func setupRunTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun() *Run {
	seed := uint64(42)
	return &Run{
		Width:        64,
		Height:       32,
		Distribution: "gaussian",
		Method:       "sum",
		Tier:         "lanes8",
		Background:   "gaussian",
		Pattern:      "spectral-lines",
		Seed:         &seed,
		Score:        &testset.Score{TruePositives: 30, FalsePositives: 2, FalseNegatives: 1},
		Notes:        "baseline",
		Result: strategy.Result{
			TimeFactor:      1.5,
			FrequencyFactor: 2.5,
			Flagged:         32,
			Filtered:        3,
			Duration:        1500 * time.Microsecond,
			Passes: []strategy.Pass{
				{Axis: strategy.AxisHorizontal, Length: 1, Threshold: 6, Flagged: 20},
				{Axis: strategy.AxisVertical, Length: 1, Threshold: 6, Flagged: 28},
				{Axis: strategy.AxisHorizontal, Length: 2, Threshold: 4.5, Flagged: 35},
			},
		},
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	db := setupRunTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrateLogger_UsesLogf(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	migrateLogger{}.Printf("applying %d", 2)
	assert.Equal(t, []string{"migrate: applying 2"}, lines)
	assert.False(t, migrateLogger{}.Verbose())
}

func TestMigrateDown(t *testing.T) {
	db := setupRunTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestRunStore_InsertAndGet(t *testing.T) {
	db := setupRunTestDB(t)
	store := NewRunStore(db.DB)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(timeutil.NewMockClock(created))

	run := sampleRun()
	require.NoError(t, store.Insert(run))
	assert.NotEmpty(t, run.RunID)
	assert.True(t, run.CreatedAt.Equal(created))

	got, err := store.Get(run.RunID)
	require.NoError(t, err)

	opt := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })
	if diff := cmp.Diff(run, got, opt); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
}

func TestRunStore_OptionalFields(t *testing.T) {
	db := setupRunTestDB(t)
	store := NewRunStore(db.DB)

	run := &Run{Width: 8, Height: 8, Distribution: "none", Method: "var", Tier: "scalar"}
	require.NoError(t, store.Insert(run))

	got, err := store.Get(run.RunID)
	require.NoError(t, err)
	assert.Nil(t, got.Seed)
	assert.Nil(t, got.Score)
	assert.Empty(t, got.Notes)
	assert.Empty(t, got.Result.Passes)
}

func TestRunStore_ListAndDelete(t *testing.T) {
	db := setupRunTestDB(t)
	store := NewRunStore(db.DB)
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	store.SetClock(clock)

	var ids []string
	for i := 0; i < 3; i++ {
		run := sampleRun()
		require.NoError(t, store.Insert(run))
		ids = append(ids, run.RunID)
		clock.Advance(time.Minute)
	}

	runs, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].RunID, "newest first")
	assert.Nil(t, runs[0].Result.Passes, "List does not load passes")

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, store.Delete(ids[0]))
	_, err = store.Get(ids[0])
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	var passes int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM flagging_passes WHERE run_id = ?", ids[0]).Scan(&passes))
	assert.Zero(t, passes, "passes cascade with their run")

	assert.True(t, errors.Is(store.Delete("no-such-run"), sql.ErrNoRows))
}

func TestNewRun(t *testing.T) {
	cfg := strategy.NewThresholdConfig()
	cfg.SetDistribution(strategy.Rayleigh)
	cfg.SetMethod(strategy.VarThreshold)

	run := NewRun(cfg, 16, 4, strategy.Result{Flagged: 7})
	assert.Equal(t, "rayleigh", run.Distribution)
	assert.Equal(t, "var", run.Method)
	assert.Equal(t, cfg.Tier().String(), run.Tier)
	assert.Equal(t, 7, run.Result.Flagged)
	assert.Equal(t, 16, run.Width)
}
