package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sounding.report/internal/inversion"
)

// migrationsDir points at the repo-level migrations from this package.
const migrationsDir = "../../migrations"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.MigrateUp(migrationsDir))
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	database := openTestDB(t)
	require.NoError(t, database.MigrateUp(migrationsDir))

	version, dirty, err := database.MigrateVersion(migrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestRunStoreRoundTrip(t *testing.T) {
	store := NewRunStore(openTestDB(t))

	runID, err := store.CreateRun("assets/em1dfm/em1dfm_data.txt", []byte(`{"chi_factor":1}`))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	recs := []inversion.IterationRecord{
		{Iteration: 0, Beta: 100, PhiD: 2400, PhiM: 0, Model: []float64{-2.3, -2.3}, Predicted: []float64{1, 2, 3, 4}},
		{Iteration: 1, Beta: 50, PhiD: 800, PhiM: 0.4, Model: []float64{-2.1, -2.4}, Predicted: []float64{1.1, 2.1, 3.1, 4.1}},
		{Iteration: 2, Beta: 25, PhiD: 9.5, PhiM: 1.2, IRLSActive: true, Model: []float64{-1.9, -2.5}, Predicted: []float64{1.2, 2.2, 3.2, 4.2}},
	}
	for _, rec := range recs {
		require.NoError(t, store.SaveIteration(runID, rec))
	}

	got, err := store.Iterations(runID)
	require.NoError(t, err)
	require.Len(t, got, len(recs))
	for i, rec := range recs {
		assert.Equal(t, rec.Iteration, got[i].Iteration)
		assert.Equal(t, rec.Beta, got[i].Beta)
		assert.Equal(t, rec.PhiD, got[i].PhiD)
		assert.Equal(t, rec.IRLSActive, got[i].IRLSActive)
		assert.Equal(t, rec.Model, got[i].Model)
		assert.Equal(t, rec.Predicted, got[i].Predicted)
	}

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, "assets/em1dfm/em1dfm_data.txt", runs[0].DataPath)
}

func TestIterationSaverImplementsSnapshotSaver(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	runID, err := store.CreateRun("synthetic", nil)
	require.NoError(t, err)

	var saver inversion.SnapshotSaver = &IterationSaver{Store: store, RunID: runID}
	require.NoError(t, saver.SaveIteration(inversion.IterationRecord{
		Iteration: 0, Beta: 1, PhiD: 10, PhiM: 0.1,
		Model: []float64{0}, Predicted: []float64{0},
	}))

	got, err := store.Iterations(runID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
