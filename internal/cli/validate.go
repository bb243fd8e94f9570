package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration without touching the store",
		Long: `Load configuration from every layer (defaults, config file, environment,
flags), validate it and print the result with secrets masked.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, _, err := loadConfig(opts, cmd, formatter)
	if err != nil {
		return err
	}

	shown := cfg.Redacted()
	if formatter.JSON() {
		return formatter.Success(shown)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "Configuration valid")
	fmt.Fprintf(w, "  hub:     %s\n", shown.Hub)
	fmt.Fprintf(w, "  sources: %s\n", strings.Join(shown.Sources, ", "))
	fmt.Fprintf(w, "  fields:  source=%s deleted=%s", shown.Fields.Source, shown.Fields.Deleted)
	if shown.Fields.Modified != "" {
		fmt.Fprintf(w, " modified=%s", shown.Fields.Modified)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  store:   %s", shown.Store.Driver)
	switch shown.Store.Driver {
	case "sqlite":
		fmt.Fprintf(w, " (%s)", shown.Store.SQLite.Path)
	case "notion":
		fmt.Fprintf(w, " (%s, token %s)", shown.Store.Notion.BaseURL, shown.Store.Notion.Token)
	}
	fmt.Fprintln(w)
	return nil
}
