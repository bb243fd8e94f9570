package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/hubsync/internal/store"
)

// Index finds the hub record correlated with a source record.
//
// The correlation key is the hub's link field (Source), holding the source
// record id as plain text. Lookups go to the store every time.
type Index struct {
	store  store.RecordStore
	hub    string
	field  string
	logger *slog.Logger
}

// NewIndex creates an Index over the hub collection's link field.
func NewIndex(s store.RecordStore, hub, field string, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{store: s, hub: hub, field: field, logger: logger}
}

// Find returns the id of the hub record whose link contains sourceID.
//
// The store filters by substring. When the results include a record whose
// link is exactly sourceID, the first such record wins; otherwise the first
// result is used. More than one candidate is a known degradation (for
// example after two overlapping passes) and is logged, not repaired.
func (ix *Index) Find(ctx context.Context, sourceID string) (string, bool, error) {
	matches, err := ix.store.QueryFiltered(ctx, ix.hub, store.TextFilter{Field: ix.field, Contains: sourceID})
	if err != nil {
		return "", false, err
	}
	if len(matches) == 0 {
		return "", false, nil
	}

	chosen := matches[0].ID
	for _, m := range matches {
		if link, ok := m.Properties.PlainText(ix.field); ok && link == sourceID {
			chosen = m.ID
			break
		}
	}

	if len(matches) > 1 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		ix.logger.Warn("multiple hub records correlate to one source",
			"source_id", sourceID,
			"hub_ids", ids,
			"using", chosen,
		)
	}
	return chosen, true, nil
}
