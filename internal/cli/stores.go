package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/hubsync/internal/config"
	"github.com/roach88/hubsync/internal/notion"
	"github.com/roach88/hubsync/internal/store"
)

// openStore builds the record store named by cfg.Store.Driver. The returned
// close func is never nil.
func openStore(cfg *config.Config, logger *slog.Logger) (store.RecordStore, func() error, error) {
	switch cfg.Store.Driver {
	case config.DriverNotion:
		nc := cfg.Store.Notion
		client, err := notion.New(notion.Config{
			Token:         nc.Token,
			BaseURL:       nc.BaseURL,
			Version:       nc.Version,
			PageSize:      nc.PageSize,
			Timeout:       nc.Timeout,
			ModifiedField: cfg.Fields.Modified,
		}, notion.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil

	case config.DriverSQLite:
		db, err := store.OpenSQLite(cfg.Store.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("opened sqlite store", "path", cfg.Store.SQLite.Path)
		return db, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
