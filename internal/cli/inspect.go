package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

// InspectResult describes one record as the engine sees it.
type InspectResult struct {
	ID           string            `json:"id"`
	LastModified time.Time         `json:"last_modified"`
	Title        string            `json:"title"`
	Source       string            `json:"source,omitempty"`
	Deleted      bool              `json:"deleted"`
	Properties   []PropertySummary `json:"properties"`
}

// PropertySummary is one property of an inspected record.
type PropertySummary struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <record-id>",
		Short: "Show a record's properties, source link and deletion flag",
		Example: `  # Inspect a hub record
  hubsync inspect 2f1c0d6e-...

  # Machine-readable output
  hubsync inspect 2f1c0d6e-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, logger, err := loadConfig(opts, cmd, formatter)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		formatter.Error(ErrCodeStoreOpen, "failed to open store", err.Error())
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer closeStore()

	rec, err := st.GetRecord(cmd.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("record %s is archived or missing", id), nil)
		return NewExitError(ExitFailure, "record not found")
	}
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read record", err)
	}

	result := describeRecord(rec, cfg.Fields.Source, cfg.Fields.Deleted)
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Record:        %s\n", result.ID)
	fmt.Fprintf(w, "Title:         %s\n", result.Title)
	fmt.Fprintf(w, "Last modified: %s\n", result.LastModified.Format(time.RFC3339))
	if result.Source != "" {
		fmt.Fprintf(w, "Source:        %s\n", result.Source)
	}
	fmt.Fprintf(w, "Deleted:       %t\n", result.Deleted)
	fmt.Fprintln(w)

	rows := make([]table.Row, 0, len(result.Properties))
	for _, p := range result.Properties {
		rows = append(rows, table.Row{p.Name, p.Kind, p.Value})
	}
	formatter.Table(table.Row{"Property", "Kind", "Value"}, rows)
	return nil
}

func describeRecord(rec record.Record, sourceField, deletedField string) InspectResult {
	result := InspectResult{
		ID:           rec.ID,
		LastModified: rec.LastModified,
		Deleted:      rec.Properties.Checked(deletedField),
		Properties:   []PropertySummary{},
	}
	if link, ok := rec.Properties.PlainText(sourceField); ok {
		result.Source = link
	}

	for _, name := range rec.Properties.Fields() {
		v := rec.Properties[name]
		if v.Kind() == record.KindTitle && result.Title == "" {
			result.Title, _ = rec.Properties.PlainText(name)
		}
		result.Properties = append(result.Properties, PropertySummary{
			Name:  name,
			Kind:  string(v.Kind()),
			Value: record.Display(v),
		})
	}
	return result
}
