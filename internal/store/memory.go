package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/hubsync/internal/record"
)

// Op names a store operation.
type Op string

const (
	OpQuery    Op = "query"
	OpFilter   Op = "filter"
	OpGet      Op = "get"
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpAnything Op = "*"
)

// Memory is an in-process RecordStore.
//
// Records keep their insertion order; cursors are positions in that order.
// LastModified is stamped from the configured Clock on every write and is
// strictly increasing per record.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	clock    Clock
	ids      IDGenerator
	pageSize int

	records     map[string]*memRecord
	collections map[string][]string // collection -> ids in insertion order
	schemas     map[string]map[string]record.Kind
	failures    []injectedFailure
}

type memRecord struct {
	rec        record.Record
	collection string
	archived   bool
}

type injectedFailure struct {
	op     Op
	target string // collection or record id; empty matches any
	err    error
}

// NewMemory creates an empty in-process store.
func NewMemory(opts ...Option) *Memory {
	o := applyOptions(opts)
	return &Memory{
		clock:       o.clock,
		ids:         o.ids,
		pageSize:    o.pageSize,
		records:     make(map[string]*memRecord),
		collections: make(map[string][]string),
		schemas:     make(map[string]map[string]record.Kind),
	}
}

// SetSchema restricts a collection to the given fields and kinds. Writes
// naming any other field, or a field with another kind, fail with
// ErrSchemaMismatch.
func (m *Memory) SetSchema(collection string, fields map[string]record.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[collection] = fields
}

// Seed inserts a record with a caller-chosen id. Used to set up fixtures.
func (m *Memory) Seed(collection, id string, props record.Properties) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; exists {
		return record.Record{}, fmt.Errorf("seed %s: id already exists", id)
	}
	return m.insertLocked(collection, id, props), nil
}

// Archive marks a record as removed upstream. It disappears from queries and
// GetRecord returns ErrNotFound.
func (m *Memory) Archive(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return fmt.Errorf("archive %s: %w", id, ErrNotFound)
	}
	r.archived = true
	return nil
}

// FailOn makes every later op against target return err. An empty target
// matches any collection or id; OpAnything matches every op.
func (m *Memory) FailOn(op Op, target string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, injectedFailure{op: op, target: target, err: err})
}

// ClearFailures removes every injected failure.
func (m *Memory) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = nil
}

// Collection returns the live records of a collection in insertion order.
func (m *Memory) Collection(collection string) []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []record.Record
	for _, id := range m.collections[collection] {
		if r := m.records[id]; !r.archived {
			out = append(out, cloneRecord(r.rec))
		}
	}
	return out
}

// QueryPage implements RecordStore.
func (m *Memory) QueryPage(_ context.Context, collection, cursor string) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failureLocked(OpQuery, collection); err != nil {
		return Page{}, err
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}

	ids := m.collections[collection]
	var page Page
	pos := start
	for ; pos < len(ids) && len(page.Records) < m.pageSize; pos++ {
		r := m.records[ids[pos]]
		if r.archived {
			continue
		}
		page.Records = append(page.Records, cloneRecord(r.rec))
	}

	if pos < len(ids) {
		next := strconv.Itoa(pos)
		page.NextCursor = &next
		page.HasMore = true
	}
	return page, nil
}

// QueryFiltered implements RecordStore.
func (m *Memory) QueryFiltered(_ context.Context, collection string, filter TextFilter) ([]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failureLocked(OpFilter, collection); err != nil {
		return nil, err
	}

	var out []record.Record
	for _, id := range m.collections[collection] {
		r := m.records[id]
		if r.archived {
			continue
		}
		if matchesFilter(r.rec.Properties, filter) {
			out = append(out, cloneRecord(r.rec))
		}
	}
	return out, nil
}

// GetRecord implements RecordStore.
func (m *Memory) GetRecord(_ context.Context, id string) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failureLocked(OpGet, id); err != nil {
		return record.Record{}, err
	}

	r, ok := m.records[id]
	if !ok || r.archived {
		return record.Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return cloneRecord(r.rec), nil
}

// CreateRecord implements RecordStore.
func (m *Memory) CreateRecord(_ context.Context, collection string, props record.Properties) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failureLocked(OpCreate, collection); err != nil {
		return record.Record{}, err
	}
	if err := m.checkSchemaLocked(collection, props); err != nil {
		return record.Record{}, err
	}

	return m.insertLocked(collection, m.ids.Generate(), props), nil
}

// UpdateRecord implements RecordStore.
func (m *Memory) UpdateRecord(_ context.Context, id string, props record.Properties) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failureLocked(OpUpdate, id); err != nil {
		return record.Record{}, err
	}

	r, ok := m.records[id]
	if !ok || r.archived {
		return record.Record{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err := m.checkSchemaLocked(r.collection, props); err != nil {
		return record.Record{}, err
	}

	r.rec.Properties = r.rec.Properties.Merge(props)
	r.rec.LastModified = nextModified(m.clock.Now(), r.rec.LastModified)
	return cloneRecord(r.rec), nil
}

func (m *Memory) insertLocked(collection, id string, props record.Properties) record.Record {
	rec := record.Record{
		ID:           id,
		LastModified: nextModified(m.clock.Now(), time.Time{}),
		Properties:   props.Clone(),
	}
	m.records[id] = &memRecord{rec: rec, collection: collection}
	m.collections[collection] = append(m.collections[collection], id)
	return cloneRecord(rec)
}

func (m *Memory) checkSchemaLocked(collection string, props record.Properties) error {
	schema, ok := m.schemas[collection]
	if !ok {
		return nil
	}
	for _, name := range props.Fields() {
		kind, known := schema[name]
		if !known {
			return fmt.Errorf("collection %s has no field %q: %w", collection, name, ErrSchemaMismatch)
		}
		if kind != props[name].Kind() {
			return fmt.Errorf("collection %s field %q is %s, not %s: %w",
				collection, name, kind, props[name].Kind(), ErrSchemaMismatch)
		}
	}
	return nil
}

func (m *Memory) failureLocked(op Op, target string) error {
	for _, f := range m.failures {
		if f.op != OpAnything && f.op != op {
			continue
		}
		if f.target != "" && f.target != target {
			continue
		}
		return f.err
	}
	return nil
}

func cloneRecord(r record.Record) record.Record {
	r.Properties = r.Properties.Clone()
	return r
}

// Collections returns the names of every collection holding records.
func (m *Memory) Collections() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
