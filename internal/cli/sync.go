package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/hubsync/internal/engine"
	"github.com/roach88/hubsync/internal/store"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	DryRun bool
}

// SyncResult is the JSON payload of a finished pass.
type SyncResult struct {
	DryRun  bool               `json:"dry_run"`
	Reverse engine.PhaseStats  `json:"reverse"`
	Forward engine.PhaseStats  `json:"forward"`
	Writes  []string           `json:"writes"`
	Errors  []SyncErrorSummary `json:"errors,omitempty"`
}

// SyncErrorSummary is one contained failure of a pass.
type SyncErrorSummary struct {
	Code       string `json:"code"`
	Phase      string `json:"phase"`
	Collection string `json:"collection,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
	Message    string `json:"message"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass",
		Long: `Run one pass: reverse sync pushes newer hub edits and tombstones back to
the sources, then forward sync mirrors every live source record into the hub.

Per-record failures do not stop the pass. They are listed at the end and the
command exits 1; the next pass retries them.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report the writes a pass would make without making them")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, logger, err := loadConfig(opts.RootOptions, cmd, formatter)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		formatter.Error(ErrCodeStoreOpen, "failed to open store", err.Error())
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer closeStore()

	journal := store.NewJournal(st, opts.DryRun)
	eng, err := engine.New(journal, engine.Config{
		Hub:          cfg.Hub,
		Sources:      cfg.Sources,
		SourceField:  cfg.Fields.Source,
		DeletedField: cfg.Fields.Deleted,
	}, engine.WithLogger(logger))
	if err != nil {
		formatter.Error(ErrCodeConfigInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	// Setup signal handling so an interrupted pass stops between records
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping pass", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Debug("store ready", "driver", cfg.Store.Driver, "dry_run", opts.DryRun)
	report, err := eng.Run(ctx)
	if report == nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "sync failed", err)
	}

	result := buildSyncResult(report, journal)
	code, message := syncFailure(report, err)
	if werr := writeSyncResult(formatter, result, code, message); werr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", werr)
	}

	switch {
	case code == "":
		return nil
	case code == ErrCodeGeneric:
		return WrapExitError(ExitFailure, "sync failed", err)
	default:
		return NewExitError(ExitFailure, message)
	}
}

// syncFailure classifies how a pass ended. An empty code means it succeeded.
func syncFailure(report *engine.Report, err error) (code, message string) {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrCodeInterrupted, "sync interrupted"
	case err != nil:
		return ErrCodeGeneric, err.Error()
	case report.HasErrors():
		return ErrCodeSyncErrors, fmt.Sprintf("sync finished with %d error(s)", len(report.Errors))
	}
	return "", ""
}

func buildSyncResult(report *engine.Report, journal *store.Journal) SyncResult {
	result := SyncResult{
		DryRun:  journal.DryRun(),
		Reverse: report.Reverse,
		Forward: report.Forward,
		Writes:  []string{},
	}
	for _, w := range journal.Writes() {
		result.Writes = append(result.Writes, w.String())
	}
	for _, e := range report.Errors {
		summary := SyncErrorSummary{
			Code:       string(e.Code),
			Phase:      e.Phase.String(),
			Collection: e.Collection,
			RecordID:   e.RecordID,
			Message:    e.Message,
		}
		if e.Err != nil {
			summary.Message += ": " + e.Err.Error()
		}
		result.Errors = append(result.Errors, summary)
	}
	return result
}

// writeSyncResult prints the pass summary. A non-empty code marks the pass as
// failed; JSON output then becomes an error response carrying the summary.
func writeSyncResult(formatter *OutputFormatter, result SyncResult, code, message string) error {
	if formatter.JSON() {
		if code != "" {
			return formatter.Error(code, message, result)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.DryRun {
		fmt.Fprintln(w, "Dry run: no records were written.")
	}

	formatter.Table(
		table.Row{"Phase", "Scanned", "Created", "Updated", "Tombstoned", "Unchanged", "Skipped", "Failed"},
		[]table.Row{
			statsRow("reverse", result.Reverse),
			statsRow("forward", result.Forward),
		},
	)

	if len(result.Writes) > 0 && (result.DryRun || formatter.Verbose) {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Writes:")
		for _, line := range result.Writes {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			target := e.Collection
			if e.RecordID != "" {
				target = e.RecordID
			}
			fmt.Fprintf(w, "  [%s] %s %s: %s\n", e.Code, e.Phase, target, e.Message)
		}
	}

	if code != "" {
		fmt.Fprintln(w)
		return formatter.Error(code, message, nil)
	}
	return nil
}

func statsRow(phase string, s engine.PhaseStats) table.Row {
	return table.Row{phase, s.Scanned, s.Created, s.Updated, s.Tombstoned, s.Unchanged, s.Skipped, s.Failed}
}
