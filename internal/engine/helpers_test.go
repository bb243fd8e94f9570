package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
	"github.com/roach88/hubsync/internal/testutil"
)

// newTestStore creates a Memory store with a deterministic clock and ids.
func newTestStore(opts ...store.Option) *store.Memory {
	base := []store.Option{
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDGenerator(testutil.NewSequentialIDs("rec")),
	}
	return store.NewMemory(append(base, opts...)...)
}

// newTestEngine creates an Engine over s with hub "hub" and the given sources.
func newTestEngine(t *testing.T, s store.RecordStore, sources ...string) *Engine {
	t.Helper()
	if len(sources) == 0 {
		sources = []string{"a"}
	}
	e, err := New(s, Config{Hub: "hub", Sources: sources}, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, m *store.Memory, collection, id string, props record.Properties) record.Record {
	t.Helper()
	rec, err := m.Seed(collection, id, props)
	require.NoError(t, err)
	return rec
}

func get(t *testing.T, m store.RecordStore, id string) record.Record {
	t.Helper()
	rec, err := m.GetRecord(t.Context(), id)
	require.NoError(t, err)
	return rec
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }
