package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/execdef/internal/backend/sqlbackend"
	"github.com/roach88/execdef/internal/callguard"
	"github.com/roach88/execdef/internal/config"
	"github.com/roach88/execdef/internal/execcache"
	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/harness"
	"github.com/roach88/execdef/internal/ir"
	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

// ExecuteOptions holds flags for the execute command.
type ExecuteOptions struct {
	*RootOptions
	Database string
	Offset   []int
	Limit    []int

	// IDGenerator overrides the result id generator (for testing).
	// If nil, defaults to sqlbackend.UUIDv7Generator.
	IDGenerator sqlbackend.IDGenerator

	// Now overrides the clock relative date filters use (for testing).
	Now func() time.Time
}

// ExecutionOutput is the outcome of one executed document.
type ExecutionOutput struct {
	Path       string      `json:"path"`
	Key        string      `json:"key,omitempty"`
	ResultID   string      `json:"result_id,omitempty"`
	TotalCount []int       `json:"total_count,omitempty"`
	Offset     []int       `json:"offset,omitempty"`
	Count      []int       `json:"count,omitempty"`
	Headers    [][]string  `json:"headers,omitempty"`
	Data       [][]*string `json:"data,omitempty"`
	Error      *CLIError   `json:"error,omitempty"`
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	return newExecuteCommand(&ExecuteOptions{RootOptions: rootOpts})
}

func newExecuteCommand(opts *ExecuteOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute <document>...",
		Short: "Execute definitions and print their data views",
		Long: `Execute definitions against a loaded workspace and print data views.

Each document is prepared, executed and read. Without --offset and --limit
the whole result is read; with them one window is read, and windows past
the end of the result print as empty views. Documents with equal
definitions share one execution when the cache is enabled.

Exit codes:
  0 - All documents executed
  1 - One or more documents failed
  2 - Command error (invalid flags, database not found, etc.)

Examples:
  execdef execute --db ./execdef.db ./by_region.yaml
  execdef execute ./by_region.yaml --offset 0,0 --limit 2,1
  execdef execute ./queries --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().IntSliceVar(&opts.Offset, "offset", nil, "window offset per dimension")
	cmd.Flags().IntSliceVar(&opts.Limit, "limit", nil, "window limit per dimension")

	return cmd
}

func runExecute(opts *ExecuteOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if (opts.Offset == nil) != (opts.Limit == nil) {
		return NewExitError(ExitCommandError, "--offset and --limit must be given together")
	}
	if len(opts.Offset) != len(opts.Limit) {
		return NewExitError(ExitCommandError, "--offset and --limit must have the same length")
	}

	cfg, err := opts.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	docs, errs := LoadDocuments(paths, cfg.Workspace, LoadModeFailFast)
	if len(errs) > 0 {
		return formatter.Fail(ExitFailure, "failed to load document", errs[0])
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

	r := newRunner(st, cfg, opts)
	ctx := cmd.Context()

	outputs := make([]ExecutionOutput, 0, len(docs))
	failed := 0
	for _, doc := range docs {
		out := r.run(ctx, doc, opts.Offset, opts.Limit)
		if out.Error != nil {
			failed++
		}
		outputs = append(outputs, out)
	}
	slog.Debug("executions finished", "documents", len(docs), "failed", failed, "cached", r.cached())

	if opts.Format == "json" {
		return outputExecuteJSON(cmd.OutOrStdout(), outputs, failed)
	}
	return outputExecuteText(cmd.OutOrStdout(), outputs, failed)
}

// preparer prepares executions for one workspace.
type preparer interface {
	Prepare(ctx context.Context, p model.Preparation) (execution.PreparedExecution, error)
}

// runner executes documents against one backend, with one factory or
// cache per workspace.
type runner struct {
	backend *sqlbackend.Backend
	guard   *callguard.Guard
	cache   config.CacheConfig
	prep    map[string]preparer
}

func newRunner(st *store.Store, cfg config.Config, opts *ExecuteOptions) *runner {
	bopts := []sqlbackend.Option{sqlbackend.WithMaxResults(cfg.Backend.MaxResults)}
	if opts.IDGenerator != nil {
		bopts = append(bopts, sqlbackend.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Now != nil {
		bopts = append(bopts, sqlbackend.WithClock(opts.Now))
	}
	return &runner{
		backend: sqlbackend.New(st, bopts...),
		guard:   callguard.New(cfg.Backend.Guard()),
		cache:   cfg.Cache,
		prep:    make(map[string]preparer),
	}
}

func (r *runner) preparer(workspace string) preparer {
	if p, ok := r.prep[workspace]; ok {
		return p
	}
	fopts := []execution.FactoryOption{
		execution.WithCallGuard(r.guard),
		execution.WithReferenceResolver(r.backend),
		execution.WithInsightLoader(r.backend),
	}
	var p preparer
	if r.cache.Enabled {
		p = execcache.New(workspace, r.backend, fopts, execcache.WithMaxEntries(r.cache.MaxEntries))
	} else {
		p = execution.NewFactory(workspace, r.backend, fopts...)
	}
	r.prep[workspace] = p
	return p
}

// cached returns the number of results held by all caches.
func (r *runner) cached() int {
	n := 0
	for _, p := range r.prep {
		if c, ok := p.(*execcache.Cache); ok {
			n += c.Len()
		}
	}
	return n
}

func (r *runner) run(ctx context.Context, doc LoadedDocument, offset, limit []int) ExecutionOutput {
	out := ExecutionOutput{Path: doc.Path}
	log := slog.With("path", doc.Path, "workspace", doc.Document.Workspace)

	fail := func(err error) ExecutionOutput {
		log.Debug("execution failed", "error", err)
		out.Error = &CLIError{Code: ErrorCode(err), Message: err.Error()}
		return out
	}

	p := r.preparer(doc.Document.Workspace)
	prepared, err := p.Prepare(ctx, doc.Preparation)
	if err != nil {
		return fail(err)
	}
	out.Key = ir.ExecutionKey(prepared.Definition().Workspace(), prepared.Fingerprint())

	result, err := prepared.Execute(ctx)
	if err != nil {
		return fail(err)
	}
	out.ResultID = result.ResultID()

	var view *execution.DataView
	cache, cached := p.(*execcache.Cache)
	switch {
	case offset == nil:
		view, err = result.ReadAll(ctx)
	case cached:
		view, err = cache.ReadWindow(ctx, result, offset, limit)
	default:
		view, err = result.ReadWindow(ctx, offset, limit)
	}
	if err != nil {
		return fail(err)
	}

	out.TotalCount = view.TotalCount
	out.Offset = view.Offset
	out.Count = view.Count
	out.Headers = headerNames(view)
	out.Data = harness.Grid(view)
	log.Debug("execution read", "result_id", out.ResultID, "total_count", view.TotalCount, "empty", view.IsEmpty())
	return out
}

func outputExecuteJSON(w io.Writer, outputs []ExecutionOutput, failed int) error {
	response := CLIResponse{Status: "ok", Data: outputs}
	if failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    firstErrorCode(outputs),
			Message: fmt.Sprintf("%d execution(s) failed", failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d execution(s) failed", failed))
	}
	return nil
}

func outputExecuteText(w io.Writer, outputs []ExecutionOutput, failed int) error {
	for i, out := range outputs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if out.Error != nil {
			fmt.Fprintf(w, "\u2717 %s\n", out.Path)
			fmt.Fprintf(w, "  Error [%s]: %s\n", out.Error.Code, out.Error.Message)
			continue
		}
		fmt.Fprintf(w, "\u2713 %s\n", out.Path)
		fmt.Fprintf(w, "  result: %s\n", out.ResultID)
		fmt.Fprintf(w, "  total: %v  offset: %v  count: %v\n", out.TotalCount, out.Offset, out.Count)
		if err := writeTable(w, out); err != nil {
			return err
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d execution(s) failed", failed))
	}
	return nil
}

// writeTable prints the data of out with row headers from the first
// dimension and column headers from the last.
func writeTable(w io.Writer, out ExecutionOutput) error {
	if len(out.Headers) == 0 || isEmpty(out.Count) {
		fmt.Fprintln(w, "  (empty)")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var rows []string
	if len(out.Headers) > 1 {
		rows = out.Headers[0]
	}
	columns := out.Headers[len(out.Headers)-1]

	header := []string{""}
	if rows == nil {
		header = nil
	}
	fmt.Fprintln(tw, "  "+strings.Join(append(header, columns...), "\t"))
	for i, row := range out.Data {
		var line []string
		if rows != nil {
			label := ""
			if i < len(rows) {
				label = rows[i]
			}
			line = append(line, label)
		}
		for _, cell := range row {
			line = append(line, cellString(cell))
		}
		fmt.Fprintln(tw, "  "+strings.Join(line, "\t"))
	}
	return tw.Flush()
}

func isEmpty(count []int) bool {
	for _, c := range count {
		if c == 0 {
			return true
		}
	}
	return false
}

func firstErrorCode(outputs []ExecutionOutput) string {
	for _, out := range outputs {
		if out.Error != nil {
			return out.Error.Code
		}
	}
	return ErrCodeGeneric
}

// headerNames returns one label per position of each dimension. Labels of
// stacked header items are joined with " / ".
func headerNames(v *execution.DataView) [][]string {
	out := make([][]string, len(v.Headers))
	for d, items := range v.Headers {
		positions := 0
		if d < len(v.Count) {
			positions = v.Count[d]
		}
		labels := make([]string, positions)
		for p := range labels {
			var parts []string
			for _, item := range items {
				if p < len(item) {
					parts = append(parts, item[p].Name)
				}
			}
			labels[p] = strings.Join(parts, " / ")
		}
		out[d] = labels
	}
	return out
}

func cellString(cell *string) string {
	if cell == nil {
		return "null"
	}
	return *cell
}
