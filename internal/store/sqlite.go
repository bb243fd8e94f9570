package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/hubsync/internal/record"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial records table
const currentSchemaVersion = 1

// SQLite is a RecordStore backed by a local SQLite file.
// Uses WAL mode and a single connection, so one process owns the writes.
type SQLite struct {
	db       *sql.DB
	clock    Clock
	ids      IDGenerator
	pageSize int
}

// OpenSQLite creates or opens a record store at path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return newSQLite(db, opts...), nil
}

func newSQLite(db *sql.DB, opts ...Option) *SQLite {
	o := applyOptions(opts)
	return &SQLite{db: db, clock: o.clock, ids: o.ids, pageSize: o.pageSize}
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and records the version.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// QueryPage implements RecordStore. Cursors are the seq of the last record
// returned.
func (s *SQLite) QueryPage(ctx context.Context, collection, cursor string) (Page, error) {
	var after int64
	if cursor != "" {
		n, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		after = n
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, properties, last_modified
		FROM records
		WHERE collection_id = ? AND archived = 0 AND seq > ?
		ORDER BY seq ASC
		LIMIT ?`, collection, after, s.pageSize+1)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var page Page
	var lastSeq int64
	for rows.Next() {
		if len(page.Records) == s.pageSize {
			page.HasMore = true
			break
		}
		seq, rec, err := scanRecord(rows)
		if err != nil {
			return Page{}, fmt.Errorf("query %s: %w", collection, err)
		}
		page.Records = append(page.Records, rec)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("query %s: %w", collection, err)
	}

	if page.HasMore {
		next := strconv.FormatInt(lastSeq, 10)
		page.NextCursor = &next
	}
	return page, nil
}

// QueryFiltered implements RecordStore. The filter is evaluated in Go after
// decoding, since properties are stored as tagged JSON.
func (s *SQLite) QueryFiltered(ctx context.Context, collection string, filter TextFilter) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, properties, last_modified
		FROM records
		WHERE collection_id = ? AND archived = 0
		ORDER BY seq ASC`, collection)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", collection, err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		_, rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", collection, err)
		}
		if matchesFilter(rec.Properties, filter) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("filter %s: %w", collection, err)
	}
	return out, nil
}

// GetRecord implements RecordStore.
func (s *SQLite) GetRecord(ctx context.Context, id string) (record.Record, error) {
	rec, _, archived, err := s.readRecord(ctx, s.db, id)
	if err != nil {
		return record.Record{}, err
	}
	if archived {
		return record.Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

// CreateRecord implements RecordStore.
func (s *SQLite) CreateRecord(ctx context.Context, collection string, props record.Properties) (record.Record, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return record.Record{}, fmt.Errorf("encode properties: %w", err)
	}

	rec := record.Record{
		ID:           s.ids.Generate(),
		LastModified: nextModified(s.clock.Now(), time.Time{}),
		Properties:   props.Clone(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, collection_id, properties, last_modified)
		VALUES (?, ?, ?, ?)`,
		rec.ID, collection, string(data), rec.LastModified.UnixNano())
	if err != nil {
		return record.Record{}, fmt.Errorf("create in %s: %w", collection, err)
	}
	return rec, nil
}

// UpdateRecord implements RecordStore.
func (s *SQLite) UpdateRecord(ctx context.Context, id string, props record.Properties) (record.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return record.Record{}, fmt.Errorf("update %s: begin: %w", id, err)
	}
	defer tx.Rollback()

	rec, _, archived, err := s.readRecord(ctx, tx, id)
	if err != nil {
		return record.Record{}, err
	}
	if archived {
		return record.Record{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	rec.Properties = rec.Properties.Merge(props)
	rec.LastModified = nextModified(s.clock.Now(), rec.LastModified)

	data, err := json.Marshal(rec.Properties)
	if err != nil {
		return record.Record{}, fmt.Errorf("encode properties: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET properties = ?, last_modified = ? WHERE id = ?`,
		string(data), rec.LastModified.UnixNano(), id); err != nil {
		return record.Record{}, fmt.Errorf("update %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return record.Record{}, fmt.Errorf("update %s: commit: %w", id, err)
	}
	return rec, nil
}

// Archive hides a record from queries; GetRecord then returns ErrNotFound.
func (s *SQLite) Archive(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE records SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("archive %s: %w", id, ErrNotFound)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) readRecord(ctx context.Context, q queryer, id string) (record.Record, int64, bool, error) {
	var (
		seq      int64
		data     string
		modified int64
		archived bool
	)
	err := q.QueryRowContext(ctx, `
		SELECT seq, properties, last_modified, archived
		FROM records WHERE id = ?`, id).Scan(&seq, &data, &modified, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, 0, false, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return record.Record{}, 0, false, fmt.Errorf("get %s: %w", id, err)
	}

	var props record.Properties
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		return record.Record{}, 0, false, fmt.Errorf("decode %s: %w", id, err)
	}
	return record.Record{
		ID:           id,
		LastModified: time.Unix(0, modified).UTC(),
		Properties:   props,
	}, seq, archived, nil
}

func scanRecord(rows *sql.Rows) (int64, record.Record, error) {
	var (
		seq      int64
		id       string
		data     string
		modified int64
	)
	if err := rows.Scan(&seq, &id, &data, &modified); err != nil {
		return 0, record.Record{}, err
	}

	var props record.Properties
	if err := json.Unmarshal([]byte(data), &props); err != nil {
		return 0, record.Record{}, fmt.Errorf("decode %s: %w", id, err)
	}
	return seq, record.Record{
		ID:           id,
		LastModified: time.Unix(0, modified).UTC(),
		Properties:   props,
	}, nil
}
