package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

// FetchAll returns every record of a collection, following cursors until the
// store reports no more pages. The result is an unordered set.
//
// Any query failure is returned as a SyncError with ErrCodeStoreUnavailable.
// A page that claims more results without a usable cursor is treated the
// same way, since following it would loop forever.
func FetchAll(ctx context.Context, s store.RecordStore, collection string) ([]record.Record, error) {
	var (
		out    []record.Record
		cursor string
		seen   = make(map[string]bool)
	)
	for {
		page, err := s.QueryPage(ctx, collection, cursor)
		if err != nil {
			return nil, newEnumerateError(collection, err)
		}
		out = append(out, page.Records...)

		if !page.HasMore {
			return out, nil
		}
		if page.NextCursor == nil || *page.NextCursor == "" {
			return nil, newEnumerateError(collection, errors.New("store reported more pages without a cursor"))
		}
		next := *page.NextCursor
		if seen[next] {
			return nil, newEnumerateError(collection, fmt.Errorf("cursor %q repeated", next))
		}
		seen[next] = true
		cursor = next
	}
}
