// Package store defines the record-store capability the sync engine consumes
// and the stores hubsync ships with.
//
// # Capability
//
// RecordStore is the whole contract: paginated query, filtered query, read by
// id, create and update. Update merges the named fields into the record and
// leaves every other field alone, which is how the Notion API behaves.
// Implementations must bump LastModified on every write.
//
// # Implementations
//
//   - Memory: in-process collections for tests, scenarios and dry runs.
//   - SQLite: a local file-backed record store (mattn/go-sqlite3).
//   - notion.Client (package notion): the hosted store.
//   - Journal: wraps any store, records writes, optionally withholds them.
//
// # Errors
//
// ErrNotFound is returned (wrapped) when a record is missing or archived.
// ErrSchemaMismatch is returned (wrapped) when a collection rejects a field.
// Every other error is a transport or storage failure.
package store
