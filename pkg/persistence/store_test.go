package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/pkg/eventlog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	store := NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAppendAndQuery(t *testing.T) {
	store := newTestStore(t)

	stamp := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
	events := []*eventlog.RunEvent{
		{RunID: "run-1", EventType: eventlog.EventRunStarted, Timestamp: stamp},
		{RunID: "run-1", StageID: "s1", EventType: eventlog.EventStageStarted, Timestamp: stamp},
		{RunID: "run-1", StageID: "s1", EventType: eventlog.EventLlmFailure, Role: "employee", Reason: "HTTP 503: server error", Timestamp: stamp},
		{RunID: "run-2", EventType: eventlog.EventRunStarted, Timestamp: stamp},
	}
	for _, e := range events {
		require.NoError(t, store.Append(e))
	}

	got, err := store.EventsByRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, eventlog.EventRunStarted, got[0].EventType)
	assert.Equal(t, "s1", got[1].StageID)
	assert.Equal(t, "employee", got[2].Role)
	assert.Equal(t, "HTTP 503: server error", got[2].Reason)
	assert.True(t, stamp.Equal(got[0].Timestamp))
}

func TestStoreStampsZeroTimestamp(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append(&eventlog.RunEvent{RunID: "run-1", EventType: eventlog.EventRunStarted}))

	got, err := store.EventsByRun("run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestStoreUnknownRunIsEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.EventsByRun("missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db2.Close())
}
