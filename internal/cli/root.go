package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/hubsync/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hubsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hubsync",
		Short: "hubsync - keep a hub collection in step with its sources",
		Long: `hubsync mirrors records from source collections into a single hub
collection and pushes hub edits back to the source each record came from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default hubsync.yaml)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Configuration overrides, read by config.Load when set
	pf.String("hub", "", "hub collection id")
	pf.StringSlice("source", nil, "source collection id (repeatable)")
	pf.String("store", "", "record store driver (notion|sqlite)")
	pf.String("sqlite-path", "", "SQLite database file for the sqlite driver")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-format", "", "log format (text|json)")

	// Add subcommands
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newFormatter builds the formatter for a command.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig loads configuration for a command and installs the default
// logger. Validation problems are reported through the formatter.
func loadConfig(opts *RootOptions, cmd *cobra.Command, formatter *OutputFormatter) (*config.Config, *slog.Logger, error) {
	cfg, used, err := config.Load(opts.ConfigFile, cmd.Flags())
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			formatter.Error(ErrCodeConfigInvalid, verr.Error(), verr.Problems)
			return nil, nil, WrapExitError(ExitFailure, "configuration rejected", err)
		}
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return nil, nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	logger := newLogger(cfg.Log, opts.Verbose, formatter.GetErrWriter())
	slog.SetDefault(logger)
	if used != "" {
		logger.Debug("loaded config file", "path", used)
	}
	return cfg, logger, nil
}

// newLogger builds a slog logger from the log settings. Verbose forces debug.
func newLogger(lc config.Log, verbose bool, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
