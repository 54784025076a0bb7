package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CreateAndCompleteRun(t *testing.T) {
	store := openTestStore(t)

	run, err := store.CreateRun()
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	err = store.CompleteRun(run.ID, RunStatusCompleted, "010421COVID19MEXICO.csv", 12345, 9, "")
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, "010421COVID19MEXICO.csv", got.SourceFileName)
	assert.Equal(t, int64(12345), got.RowsLoaded)
	assert.Equal(t, 9, got.CatalogsLoaded)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.CompletedAt.Before(got.StartedAt))
}

func TestSQLiteStore_CompleteRun_Unknown(t *testing.T) {
	store := openTestStore(t)

	err := store.CompleteRun("no-such-run", RunStatusFailed, "", 0, 0, "boom")
	assert.ErrorContains(t, err, "run not found")
}

func TestSQLiteStore_ListRuns_NewestFirst(t *testing.T) {
	store := openTestStore(t)

	first, err := store.CreateRun()
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.CreateRun()
	require.NoError(t, err)

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
}

func TestSQLiteStore_ListRuns_Limit(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := store.CreateRun()
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSQLiteStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path, nil)
	require.NoError(t, err)
	_, err = store.CreateRun()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening runs migrations against the existing schema without error.
	store, err = Open(path, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
