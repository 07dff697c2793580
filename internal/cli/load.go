package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/execdef/internal/deffile"
	"github.com/roach88/execdef/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Database string
}

// LoadSummary is the JSON payload of the load command.
type LoadSummary struct {
	Workspace string `json:"workspace"`
	Rows      int    `json:"rows"`
	Catalog   int    `json:"catalog"`
	Insights  int    `json:"insights"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <dataset>",
		Short: "Load a workspace dataset into the database",
		Long: `Load a workspace dataset document into the SQLite database.

The document holds the fact table columns and rows, the catalog mapping
labels, facts and date data sets to columns, and optional saved insights.
Loading a workspace again replaces its previous content.

Examples:
  execdef load --db ./execdef.db ./sales.yaml
  execdef load ./sales.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := deffile.LoadDataset(path)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to read dataset", err)
	}
	ds, err := doc.StoreDataset(time.Now().UTC())
	if err != nil {
		return formatter.Fail(ExitFailure, "invalid dataset", err)
	}
	records, err := doc.InsightRecords()
	if err != nil {
		return formatter.Fail(ExitFailure, "invalid insights", err)
	}

	dbPath, err := opts.dbPath(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	slog.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if err := st.LoadDataset(ctx, ds); err != nil {
		return formatter.Fail(ExitFailure, "failed to load dataset", err)
	}
	for _, rec := range records {
		if err := st.WriteInsight(ctx, rec); err != nil {
			return formatter.Fail(ExitFailure, "failed to write insight", err)
		}
	}

	summary := LoadSummary{
		Workspace: ds.Workspace,
		Rows:      len(ds.Rows),
		Catalog:   len(ds.Catalog),
		Insights:  len(records),
	}
	slog.Info("dataset loaded",
		"workspace", summary.Workspace,
		"rows", summary.Rows,
		"catalog", summary.Catalog,
		"insights", summary.Insights,
	)

	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\u2713 Loaded workspace %s: %d rows, %d catalog items, %d insights\n",
		summary.Workspace, summary.Rows, summary.Catalog, summary.Insights)
	return nil
}
