package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hubsync/internal/engine"
	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
	"github.com/roach88/hubsync/internal/testutil"
)

// Harness executes one scenario against a fresh in-process store.
type Harness struct {
	scenario *Scenario
	store    *store.Memory
	logger   *slog.Logger
	result   *Result
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sends engine logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against its own Memory store stamped by a
// DeterministicClock, so repeated runs produce identical traces.
//
// Execution flow:
//  1. Seed the scenario's records with their given ids
//  2. Execute steps in order, capturing the writes of every pass
//  3. Evaluate assertions against the final store and the pass results
//
// A returned error means the scenario could not execute (a bad edit target,
// a pass refused to start). Failed assertions are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		store: store.NewMemory(
			store.WithClock(testutil.NewDeterministicClock()),
			store.WithIDGenerator(testutil.NewSequentialIDs("rec")),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		result: NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.seed(); err != nil {
		return nil, fmt.Errorf("failed to seed records: %w", err)
	}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, h.store, scenario.Hub) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func (h *Harness) seed() error {
	for _, r := range h.scenario.Records {
		props, err := toProperties(r.Properties)
		if err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		if _, err := h.store.Seed(r.Collection, r.ID, props); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch {
	case step.Pass != nil:
		return h.pass(ctx, step.Pass.DryRun)
	case step.Edit != nil:
		return h.edit(ctx, step.Edit)
	case step.Archive != "":
		return h.store.Archive(step.Archive)
	case step.Fail != nil:
		h.store.FailOn(store.Op(step.Fail.Op), step.Fail.Target, injectedError(step.Fail))
		return nil
	case step.Heal:
		h.store.ClearFailures()
		return nil
	default:
		return errors.New("empty step")
	}
}

func (h *Harness) pass(ctx context.Context, dryRun bool) error {
	journal := store.NewJournal(h.store, dryRun)
	eng, err := engine.New(journal, engine.Config{
		Hub:     h.scenario.Hub,
		Sources: h.scenario.Sources,
	}, engine.WithLogger(h.logger))
	if err != nil {
		return err
	}

	report, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("pass %d: %w", len(h.result.Runs)+1, err)
	}

	h.result.Runs = append(h.result.Runs, PassRun{
		Number: len(h.result.Runs) + 1,
		DryRun: dryRun,
		Report: report,
		Writes: journal.Writes(),
	})
	return nil
}

func (h *Harness) edit(ctx context.Context, e *EditStep) error {
	id := e.ID
	if e.HubOf != "" {
		hub, ok := linkedHubRecord(h.store, h.scenario.Hub, e.HubOf)
		if !ok {
			return fmt.Errorf("edit: no hub record links to %s", e.HubOf)
		}
		id = hub.ID
	}

	props, err := toProperties(e.Properties)
	if err != nil {
		return fmt.Errorf("edit %s: %w", id, err)
	}
	if _, err := h.store.UpdateRecord(ctx, id, props); err != nil {
		return fmt.Errorf("edit %s: %w", id, err)
	}
	return nil
}

func injectedError(f *FailStep) error {
	if f.Schema {
		return fmt.Errorf("injected %s failure: %w", f.Op, store.ErrSchemaMismatch)
	}
	return fmt.Errorf("injected %s failure", f.Op)
}

// linkedHubRecord returns the first live hub record whose link field is
// exactly sourceID.
func linkedHubRecord(m *store.Memory, hub, sourceID string) (record.Record, bool) {
	for _, r := range m.Collection(hub) {
		if link, ok := r.Properties.PlainText(engine.DefaultSourceField); ok && link == sourceID {
			return r, true
		}
	}
	return record.Record{}, false
}

// findRecord returns a live record by id from any collection. Injected
// failures do not apply.
func findRecord(m *store.Memory, id string) (record.Record, bool) {
	for _, c := range m.Collections() {
		for _, r := range m.Collection(c) {
			if r.ID == id {
				return r, true
			}
		}
	}
	return record.Record{}, false
}
