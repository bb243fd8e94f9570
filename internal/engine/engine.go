package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

const (
	// DefaultSourceField is the hub field holding the source record id.
	DefaultSourceField = "Source"

	// DefaultDeletedField is the checkbox field marking a tombstone.
	DefaultDeletedField = "Deleted"
)

// Config names the collections and fields a pass works on.
type Config struct {
	// Hub is the consolidated collection.
	Hub string

	// Sources are the mirrored collections, walked in order.
	Sources []string

	// SourceField is the hub's link field. Defaults to DefaultSourceField.
	SourceField string

	// DeletedField is the tombstone checkbox. Defaults to DefaultDeletedField.
	DeletedField string
}

func (c Config) withDefaults() Config {
	if c.SourceField == "" {
		c.SourceField = DefaultSourceField
	}
	if c.DeletedField == "" {
		c.DeletedField = DefaultDeletedField
	}
	c.Sources = append([]string(nil), c.Sources...)
	return c
}

// Engine runs synchronization passes.
//
// Thread-safety model:
//   - Run: at most one pass at a time; a concurrent call gets ErrPassInProgress
//   - State: safe from any goroutine
type Engine struct {
	store     store.RecordStore
	cfg       Config
	logger    *slog.Logger
	projector Projector
	index     *Index

	running atomic.Bool
	state   atomic.Int32
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for per-record decisions.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine over s. The hub and at least one source are required.
func New(s store.RecordStore, cfg Config, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, errors.New("engine: store is required")
	}
	if cfg.Hub == "" {
		return nil, errors.New("engine: hub collection is required")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("engine: at least one source collection is required")
	}
	cfg = cfg.withDefaults()

	e := &Engine{
		store:     s,
		cfg:       cfg,
		logger:    slog.Default(),
		projector: Projector{SourceField: cfg.SourceField, DeletedField: cfg.DeletedField},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.index = NewIndex(s, cfg.Hub, cfg.SourceField, e.logger)
	return e, nil
}

// State returns the phase the engine is in.
func (e *Engine) State() Phase {
	return Phase(e.state.Load())
}

func (e *Engine) setState(p Phase) {
	e.state.Store(int32(p))
}

// Run performs one full pass: reverse then forward.
//
// Per-record and per-collection failures are collected in the Report and do
// not stop the pass. The returned error is non-nil only when the pass could
// not start (ErrPassInProgress) or the context was cancelled, in which case
// the partial Report is returned as well.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrPassInProgress
	}
	defer e.running.Store(false)
	defer e.setState(Idle)

	report := &Report{}
	e.logger.Info("sync pass starting", "hub", e.cfg.Hub, "sources", e.cfg.Sources)

	e.setState(ReverseSync)
	if err := e.reverse(ctx, report); err != nil {
		return report, err
	}

	e.setState(ForwardSync)
	if err := e.forward(ctx, report); err != nil {
		return report, err
	}

	e.logger.Info("sync pass complete",
		"reverse_writes", report.Reverse.Writes(),
		"forward_writes", report.Forward.Writes(),
		"errors", len(report.Errors),
	)
	return report, nil
}

// reverse copies hub changes and tombstones onto sources.
func (e *Engine) reverse(ctx context.Context, report *Report) error {
	hubRecords, err := FetchAll(ctx, e.store, e.cfg.Hub)
	if err != nil {
		e.enumerateFailed(report, ReverseSync, err)
		return ctx.Err()
	}
	e.logger.Info("reverse sync", "hub", e.cfg.Hub, "records", len(hubRecords))

	stats := &report.Reverse
	for _, h := range hubRecords {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reverse sync interrupted: %w", err)
		}
		stats.Scanned++

		sourceID, ok := h.Properties.PlainText(e.cfg.SourceField)
		if !ok {
			e.logger.Debug("hub record has no source link, skipping", "hub_id", h.ID)
			stats.Skipped++
			continue
		}

		src, err := e.store.GetRecord(ctx, sourceID)
		if err != nil {
			report.fail(newReadError(ReverseSync, "", sourceID, "read source of hub record "+h.ID, err))
			e.logger.Warn("reverse sync: source read failed", "hub_id", h.ID, "source_id", sourceID, "error", err)
			continue
		}

		if h.Properties.Checked(e.cfg.DeletedField) {
			e.tombstone(ctx, report, h, src)
			continue
		}

		decision := Resolve(h.LastModified, src.LastModified)
		if decision != HubWins {
			stats.Unchanged++
			continue
		}

		props := e.projector.ToSource(h.Properties)
		if record.Equivalent(props, src.Properties) {
			e.logger.Debug("reverse sync: source already matches hub", "hub_id", h.ID, "source_id", src.ID)
			stats.Unchanged++
			continue
		}

		if _, err := e.store.UpdateRecord(ctx, src.ID, props); err != nil {
			report.fail(newWriteError(ReverseSync, "", src.ID, "update source from hub record "+h.ID, err))
			e.logger.Error("reverse sync: source update failed", "hub_id", h.ID, "source_id", src.ID, "error", err)
			continue
		}
		stats.Updated++
		e.logger.Info("reverse synced hub record to source",
			"hub_id", h.ID,
			"source_id", src.ID,
			"fields", props.Fields(),
		)
	}
	return nil
}

// tombstone marks the source of a deleted hub record as deleted. No other
// field is written.
func (e *Engine) tombstone(ctx context.Context, report *Report, h, src record.Record) {
	stats := &report.Reverse
	if src.Properties.Checked(e.cfg.DeletedField) {
		stats.Unchanged++
		return
	}

	if _, err := e.store.UpdateRecord(ctx, src.ID, e.projector.Tombstone()); err != nil {
		report.fail(newWriteError(ReverseSync, "", src.ID, "tombstone source of hub record "+h.ID, err))
		e.logger.Error("reverse sync: tombstone failed", "hub_id", h.ID, "source_id", src.ID, "error", err)
		return
	}
	stats.Tombstoned++
	e.logger.Info("marked source deleted", "hub_id", h.ID, "source_id", src.ID)
}

// forward copies source records into the hub, creating hub records on first
// sight and overwriting them when the source is newer.
func (e *Engine) forward(ctx context.Context, report *Report) error {
	for _, collection := range e.cfg.Sources {
		if err := e.forwardCollection(ctx, report, collection); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) forwardCollection(ctx context.Context, report *Report, collection string) error {
	records, err := FetchAll(ctx, e.store, collection)
	if err != nil {
		e.enumerateFailed(report, ForwardSync, err)
		return ctx.Err()
	}
	e.logger.Info("forward sync", "collection", collection, "records", len(records))

	stats := &report.Forward
	for _, p := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("forward sync interrupted: %w", err)
		}
		stats.Scanned++

		if p.Properties.Checked(e.cfg.DeletedField) {
			e.logger.Debug("source record deleted, skipping", "source_id", p.ID)
			stats.Skipped++
			continue
		}

		hubID, found, err := e.index.Find(ctx, p.ID)
		if err != nil {
			report.fail(newReadError(ForwardSync, collection, p.ID, "look up hub record", err))
			e.logger.Warn("forward sync: hub lookup failed", "source_id", p.ID, "error", err)
			continue
		}

		props := e.projector.ToHub(p.ID, p.Properties)

		if !found {
			created, err := e.store.CreateRecord(ctx, e.cfg.Hub, props)
			if err != nil {
				report.fail(newWriteError(ForwardSync, collection, p.ID, "create hub record", err))
				e.logger.Error("forward sync: hub create failed", "source_id", p.ID, "error", err)
				continue
			}
			stats.Created++
			e.logger.Info("synced source record to new hub record",
				"source_id", p.ID,
				"hub_id", created.ID,
				"fields", props.Fields(),
			)
			continue
		}

		hub, err := e.store.GetRecord(ctx, hubID)
		if err != nil {
			report.fail(newReadError(ForwardSync, collection, p.ID, "read hub record "+hubID, err))
			e.logger.Warn("forward sync: hub read failed", "source_id", p.ID, "hub_id", hubID, "error", err)
			continue
		}

		if Resolve(hub.LastModified, p.LastModified) != SourceWins {
			stats.Unchanged++
			continue
		}
		if e.projector.HubMatches(p.ID, props, hub.Properties) {
			e.logger.Debug("forward sync: hub already matches source", "source_id", p.ID, "hub_id", hubID)
			stats.Unchanged++
			continue
		}

		if _, err := e.store.UpdateRecord(ctx, hubID, props); err != nil {
			report.fail(newWriteError(ForwardSync, collection, p.ID, "update hub record "+hubID, err))
			e.logger.Error("forward sync: hub update failed", "source_id", p.ID, "hub_id", hubID, "error", err)
			continue
		}
		stats.Updated++
		e.logger.Info("updated hub record from source",
			"source_id", p.ID,
			"hub_id", hubID,
			"fields", props.Fields(),
		)
	}
	return nil
}

// enumerateFailed records a collection that could not be listed. The rest of
// the collection is skipped for this pass.
func (e *Engine) enumerateFailed(report *Report, phase Phase, err error) {
	var se *SyncError
	if !errors.As(err, &se) {
		se = &SyncError{Code: ErrCodeStoreUnavailable, Message: "enumerate collection", Err: err}
	}
	se.Phase = phase
	report.fail(se)
	e.logger.Error("cannot enumerate collection", "phase", phase.String(), "collection", se.Collection, "error", se.Err)
}
