package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/hubsync/internal/record"
)

// Write is one recorded create or update.
type Write struct {
	Op         Op
	Collection string // set for creates
	ID         string
	Fields     []string
	Applied    bool
}

// String renders the write as a single trace line.
func (w Write) String() string {
	target := w.ID
	if w.Op == OpCreate {
		target = w.Collection + " " + w.ID
	}
	return fmt.Sprintf("%s %s [%s]", w.Op, target, strings.Join(w.Fields, " "))
}

// Journal wraps a RecordStore and records every write passing through it.
//
// In dry-run mode writes are recorded but not forwarded: creates answer with
// a placeholder id and updates answer with the record as it would look after
// the merge. Reads always go to the wrapped store.
type Journal struct {
	next   RecordStore
	dryRun bool

	mu      sync.Mutex
	writes  []Write
	pending int
}

// NewJournal wraps next. When dryRun is true no write reaches next.
func NewJournal(next RecordStore, dryRun bool) *Journal {
	return &Journal{next: next, dryRun: dryRun}
}

// DryRun reports whether writes are withheld.
func (j *Journal) DryRun() bool {
	return j.dryRun
}

// Writes returns a copy of the recorded writes in order.
func (j *Journal) Writes() []Write {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Write, len(j.writes))
	copy(out, j.writes)
	return out
}

// Reset forgets every recorded write.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.writes = nil
}

func (j *Journal) record(w Write) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.writes = append(j.writes, w)
}

// QueryPage implements RecordStore.
func (j *Journal) QueryPage(ctx context.Context, collection, cursor string) (Page, error) {
	return j.next.QueryPage(ctx, collection, cursor)
}

// QueryFiltered implements RecordStore.
func (j *Journal) QueryFiltered(ctx context.Context, collection string, filter TextFilter) ([]record.Record, error) {
	return j.next.QueryFiltered(ctx, collection, filter)
}

// GetRecord implements RecordStore.
func (j *Journal) GetRecord(ctx context.Context, id string) (record.Record, error) {
	return j.next.GetRecord(ctx, id)
}

// CreateRecord implements RecordStore.
func (j *Journal) CreateRecord(ctx context.Context, collection string, props record.Properties) (record.Record, error) {
	if j.dryRun {
		j.mu.Lock()
		j.pending++
		id := fmt.Sprintf("dry-run-%d", j.pending)
		j.mu.Unlock()

		j.record(Write{Op: OpCreate, Collection: collection, ID: id, Fields: props.Fields()})
		return record.Record{ID: id, Properties: props.Clone()}, nil
	}

	rec, err := j.next.CreateRecord(ctx, collection, props)
	if err != nil {
		return record.Record{}, err
	}
	j.record(Write{Op: OpCreate, Collection: collection, ID: rec.ID, Fields: props.Fields(), Applied: true})
	return rec, nil
}

// UpdateRecord implements RecordStore.
func (j *Journal) UpdateRecord(ctx context.Context, id string, props record.Properties) (record.Record, error) {
	if j.dryRun {
		current, err := j.next.GetRecord(ctx, id)
		if err != nil {
			return record.Record{}, err
		}
		j.record(Write{Op: OpUpdate, ID: id, Fields: props.Fields()})
		current.Properties = current.Properties.Merge(props)
		return current, nil
	}

	rec, err := j.next.UpdateRecord(ctx, id, props)
	if err != nil {
		return record.Record{}, err
	}
	j.record(Write{Op: OpUpdate, ID: id, Fields: props.Fields(), Applied: true})
	return rec, nil
}
