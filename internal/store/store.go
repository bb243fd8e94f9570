package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/hubsync/internal/record"
)

var (
	// ErrNotFound indicates the record does not exist or was archived upstream.
	ErrNotFound = errors.New("record not found")

	// ErrSchemaMismatch indicates the collection rejected a property.
	ErrSchemaMismatch = errors.New("property rejected by collection schema")
)

// RecordStore is the record-store capability consumed by the sync engine.
type RecordStore interface {
	// QueryPage returns one page of a collection. An empty cursor starts
	// from the beginning.
	QueryPage(ctx context.Context, collection, cursor string) (Page, error)

	// QueryFiltered returns the records of a collection whose text field
	// contains the filter value.
	QueryFiltered(ctx context.Context, collection string, filter TextFilter) ([]record.Record, error)

	// GetRecord reads a record by id. Returns ErrNotFound (wrapped) when the
	// record is missing or archived.
	GetRecord(ctx context.Context, id string) (record.Record, error)

	// CreateRecord adds a record to a collection.
	CreateRecord(ctx context.Context, collection string, props record.Properties) (record.Record, error)

	// UpdateRecord merges props into an existing record.
	UpdateRecord(ctx context.Context, id string, props record.Properties) (record.Record, error)
}

// Page is one page of query results.
type Page struct {
	Records []record.Record

	// NextCursor is set when HasMore is true.
	NextCursor *string

	HasMore bool
}

// TextFilter matches records whose Title or Text field contains a substring.
type TextFilter struct {
	Field    string
	Contains string
}

// Clock supplies write timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// IDGenerator assigns ids to new records.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 record ids.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DefaultPageSize is the page size used when none is configured. It matches
// the hosted store's default.
const DefaultPageSize = 100

type options struct {
	clock    Clock
	ids      IDGenerator
	pageSize int
}

// Option configures the Memory and SQLite stores.
type Option func(*options)

// WithClock sets the write timestamp source.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithIDGenerator sets the record id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		o.ids = g
	}
}

// WithPageSize sets the number of records returned per QueryPage call.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		clock:    SystemClock{},
		ids:      UUIDv7Generator{},
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// nextModified returns a write timestamp strictly after prev, so that two
// writes landing on the same clock reading still order correctly.
func nextModified(now, prev time.Time) time.Time {
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// matchesFilter reports whether a record satisfies a text filter.
func matchesFilter(props record.Properties, f TextFilter) bool {
	text, ok := props.PlainText(f.Field)
	if !ok {
		return false
	}
	return containsFold(text, f.Contains)
}

// containsFold is a case-insensitive substring test, matching how the hosted
// store evaluates "contains" filters.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
