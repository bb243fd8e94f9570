package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DryRun bool
}

// ImportResult is the JSON payload of an import.
type ImportResult struct {
	Collection string   `json:"collection"`
	DryRun     bool     `json:"dry_run"`
	Created    []string `json:"created"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <collection> <file.json>",
		Short: "Create records in a collection from a JSON file",
		Long: `Create one record per element of a JSON array. Each element is an
object of property name to tagged property value, in the same form the store
API returns. Use "-" to read from stdin.`,
		Example: `  hubsync import tasks seed.json --store sqlite --sqlite-path local.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "parse and report without creating records")

	return cmd
}

func runImport(opts *ImportOptions, collection, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	items, err := readImportFile(path, cmd.InOrStdin())
	if err != nil {
		formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read import file", err)
	}

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
	result := ImportResult{Collection: collection, DryRun: opts.DryRun, Created: []string{}}
	for i, props := range items {
		rec, err := journal.CreateRecord(cmd.Context(), collection, props)
		if err != nil {
			formatter.Error(ErrCodeGeneric, fmt.Sprintf("record %d: %v", i, err), result)
			return WrapExitError(ExitFailure, fmt.Sprintf("import stopped after %d record(s)", len(result.Created)), err)
		}
		logger.Debug("imported record", "collection", collection, "id", rec.ID)
		result.Created = append(result.Created, rec.ID)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	verb := "Created"
	if opts.DryRun {
		verb = "Would create"
	}
	fmt.Fprintf(formatter.Writer, "%s %d record(s) in %s\n", verb, len(result.Created), collection)
	for _, id := range result.Created {
		formatter.VerboseLog("  %s", id)
	}
	return nil
}

// readImportFile decodes a JSON array of property maps.
func readImportFile(path string, stdin io.Reader) ([]record.Properties, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var items []record.Properties
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return items, nil
}
