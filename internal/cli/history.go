package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/execdef/internal/ir"
	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database  string
	Workspace string
	Document  string // optional - filter to the executions of one definition
}

// HistoryEntry is one logged execution.
type HistoryEntry struct {
	Seq        int64     `json:"seq"`
	ResultID   string    `json:"result_id"`
	Key        string    `json:"key"`
	Reference  string    `json:"reference,omitempty"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	ExecutedAt time.Time `json:"executed_at"`
}

// HistoryResult holds the complete history output.
type HistoryResult struct {
	Workspace string         `json:"workspace"`
	Entries   []HistoryEntry `json:"entries"`
	Stats     HistoryStats   `json:"stats"`
}

// HistoryStats holds summary statistics for the history.
type HistoryStats struct {
	Executions  int `json:"executions"`
	Definitions int `json:"definitions"`
	ByReference int `json:"by_reference"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged executions of a workspace",
		Long: `List the executions logged for a workspace, oldest first.

Every execution is logged with its result id, the key of its definition,
the insight it was executed by reference to and the size of its result.

Examples:
  execdef history --db ./execdef.db --workspace ws1
  execdef history --workspace ws1 --document ./by_region.yaml
  execdef history --workspace ws1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Workspace, "workspace", "", "workspace to list (default from config)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "only list executions of this definition document")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	workspace := opts.Workspace
	if workspace == "" {
		workspace = cfg.Workspace
	}
	if workspace == "" {
		return NewExitError(ExitCommandError, "--workspace is required when no default workspace is configured")
	}

	fingerprint := ""
	if opts.Document != "" {
		docs, errs := LoadDocuments([]string{opts.Document}, workspace, LoadModeFailFast)
		if len(errs) > 0 {
			return formatter.Fail(ExitFailure, "failed to load document", errs[0])
		}
		resolved, ok := docs[0].Preparation.(model.Resolved)
		if !ok {
			return formatter.Fail(ExitFailure, "cannot filter by document",
				errors.New("insight references have no fingerprint before resolution"))
		}
		fingerprint = model.Fingerprint(resolved.Definition)
	}

	dbPath, err := opts.dbPath(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	var records []store.ExecutionRecord
	if fingerprint == "" {
		records, err = st.ReadExecutions(cmd.Context(), workspace)
	} else {
		records, err = st.ReadExecutionsByFingerprint(cmd.Context(), workspace, fingerprint)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read executions", err)
	}

	result := buildHistory(workspace, records)
	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	return outputHistoryText(cmd, result, opts.Verbose)
}

// buildHistory converts execution records to history entries.
func buildHistory(workspace string, records []store.ExecutionRecord) HistoryResult {
	result := HistoryResult{Workspace: workspace, Entries: []HistoryEntry{}}
	definitions := make(map[string]bool)
	for _, rec := range records {
		key := ir.ExecutionKey(rec.Workspace, rec.Fingerprint)
		result.Entries = append(result.Entries, HistoryEntry{
			Seq:        rec.Seq,
			ResultID:   rec.ResultID,
			Key:        key,
			Reference:  rec.Reference,
			Rows:       rec.RowCount,
			Columns:    rec.ColumnCount,
			ExecutedAt: rec.ExecutedAt,
		})
		definitions[key] = true
		if rec.Reference != "" {
			result.Stats.ByReference++
		}
	}
	result.Stats.Executions = len(result.Entries)
	result.Stats.Definitions = len(definitions)
	return result
}

func outputHistoryText(cmd *cobra.Command, result HistoryResult, verbose bool) error {
	w := cmd.OutOrStdout()
	if len(result.Entries) == 0 {
		fmt.Fprintf(w, "No executions found for workspace: %s\n", result.Workspace)
		return nil
	}

	fmt.Fprintf(w, "Executions of workspace %s\n\n", result.Workspace)
	for _, e := range result.Entries {
		fmt.Fprintf(w, "[%d] %s  %s  %dx%d", e.Seq, e.ExecutedAt.UTC().Format(time.RFC3339), e.ResultID, e.Rows, e.Columns)
		if e.Reference != "" {
			fmt.Fprintf(w, "  ref %s", e.Reference)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "    key: %s\n", e.Key)
		}
	}
	fmt.Fprintf(w, "\n%d execution(s) of %d definition(s), %d by reference\n",
		result.Stats.Executions, result.Stats.Definitions, result.Stats.ByReference)
	return nil
}
