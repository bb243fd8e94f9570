package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

// resigningStore hands out a fresh signed URL for every hosted file on each
// read, the way the hosted store does.
type resigningStore struct {
	*store.Memory

	mu    sync.Mutex
	reads int
}

func (s *resigningStore) resign(rec record.Record) record.Record {
	s.mu.Lock()
	s.reads++
	n := s.reads
	s.mu.Unlock()

	for name, v := range rec.Properties {
		files, ok := v.(record.Files)
		if !ok {
			continue
		}
		out := make(record.Files, len(files))
		for i, f := range files {
			if f.File != nil {
				f.File = &record.FileURL{
					URL:        fmt.Sprintf("https://files.example/%s?sig=%d", f.Name, n),
					ExpiryTime: fmt.Sprintf("2024-01-01T00:%02d:00Z", n%60),
				}
			}
			out[i] = f
		}
		rec.Properties[name] = out
	}
	return rec
}

func (s *resigningStore) QueryPage(ctx context.Context, collection, cursor string) (store.Page, error) {
	page, err := s.Memory.QueryPage(ctx, collection, cursor)
	for i := range page.Records {
		page.Records[i] = s.resign(page.Records[i])
	}
	return page, err
}

func (s *resigningStore) QueryFiltered(ctx context.Context, collection string, filter store.TextFilter) ([]record.Record, error) {
	recs, err := s.Memory.QueryFiltered(ctx, collection, filter)
	for i := range recs {
		recs[i] = s.resign(recs[i])
	}
	return recs, err
}

func (s *resigningStore) GetRecord(ctx context.Context, id string) (record.Record, error) {
	rec, err := s.Memory.GetRecord(ctx, id)
	if err != nil {
		return rec, err
	}
	return s.resign(rec), nil
}

func TestRun_HostedFilesSettleAfterFirstPass(t *testing.T) {
	ctx := context.Background()
	m := newTestStore()
	seed(t, m, "a", "r1", record.Properties{
		"Name": record.NewTitle("Design review"),
		"Att": record.Files{{
			Name: "plan.pdf",
			Type: "file",
			File: &record.FileURL{URL: "https://files.example/plan.pdf?sig=0"},
		}},
	})
	s := &resigningStore{Memory: m}
	e := newTestEngine(t, s)

	first, err := e.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Forward.Created)

	for i := 0; i < 3; i++ {
		again, err := e.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, again.Writes(), "pass %d rewrote records", i+2)
		assert.False(t, again.HasErrors())
	}
}
