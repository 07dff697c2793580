package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/execdef/internal/backend/sqlbackend"
	"github.com/roach88/execdef/internal/callguard"
	"github.com/roach88/execdef/internal/deffile"
	"github.com/roach88/execdef/internal/execcache"
	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/store"
	"github.com/roach88/execdef/internal/testutil"
)

// maxConcurrentSteps bounds the executions running at once.
const maxConcurrentSteps = 4

// Harness holds the per-run environment of a scenario.
type Harness struct {
	store   *store.Store
	backend *sqlbackend.Backend
	cache   *execcache.Cache
	clock   *testutil.Clock
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh SQLite database in a temporary
// directory. The wall clock is fixed and outcomes do not depend on the
// order steps run in, so repeated runs produce identical outcomes.
//
// Execution flow:
// 1. Load the dataset, catalog and insights
// 2. Prepare, execute and read every step concurrently
// 3. Evaluate assertions against the outcomes
//
// Errors are returned for setup failures only. Failing steps and
// assertions are reported in the result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "execdef-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	now := DefaultNow
	if scenario.Now != nil {
		now = *scenario.Now
	}
	clock := testutil.NewClock(now)

	h := &Harness{
		store:  st,
		clock:  clock,
		logger: slog.With("scenario", scenario.Name),
	}
	if err := h.load(ctx, &scenario.Dataset); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	h.backend = sqlbackend.New(st,
		sqlbackend.WithClock(clock.Now),
		sqlbackend.WithIDGenerator(testutil.NewSequenceGenerator("result")),
	)
	h.cache = execcache.New(scenario.Dataset.Workspace, h.backend, []execution.FactoryOption{
		execution.WithCallGuard(callguard.New(callguard.DefaultConfig())),
		execution.WithReferenceResolver(h.backend),
		execution.WithInsightLoader(h.backend),
	})

	result := NewResult()
	result.Outcomes = make([]*Outcome, len(scenario.Executions))

	var g errgroup.Group
	g.SetLimit(maxConcurrentSteps)
	for i := range scenario.Executions {
		step := scenario.Executions[i]
		if step.Document.Workspace == "" {
			step.Document.Workspace = scenario.Dataset.Workspace
		}
		g.Go(func() error {
			result.Outcomes[i] = h.executeStep(ctx, step)
			return nil
		})
	}
	_ = g.Wait()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// load writes the dataset and its insights into the store.
func (h *Harness) load(ctx context.Context, doc *deffile.DatasetDoc) error {
	ds, err := doc.StoreDataset(h.clock.Now())
	if err != nil {
		return err
	}
	if err := h.store.LoadDataset(ctx, ds); err != nil {
		return err
	}
	records, err := doc.InsightRecords()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := h.store.WriteInsight(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// executeStep prepares, executes and reads one step. Any failure ends the
// step and is kept in the outcome.
func (h *Harness) executeStep(ctx context.Context, step ExecutionStep) *Outcome {
	out := &Outcome{Name: step.Name}
	log := h.logger.With("step", step.Name)

	prep, err := step.Document.Preparation()
	if err != nil {
		out.Err = err
		log.Debug("step rejected", "error", err)
		return out
	}
	p, err := h.cache.Prepare(ctx, prep)
	if err != nil {
		out.Err = err
		log.Debug("step preparation failed", "error", err)
		return out
	}
	out.Fingerprint = p.Fingerprint()

	r, err := p.Execute(ctx)
	if err != nil {
		out.Err = err
		log.Debug("step execution failed", "error", err)
		return out
	}

	var view *execution.DataView
	if step.Offset == nil {
		view, err = r.ReadAll(ctx)
	} else {
		view, err = h.cache.ReadWindow(ctx, r, step.Offset, step.Limit)
	}
	if err != nil {
		out.Err = err
		log.Debug("step read failed", "error", err)
		return out
	}
	out.View = view

	log.Debug("step completed",
		"result_id", r.ResultID(),
		"total_count", view.TotalCount,
		"empty", view.IsEmpty(),
	)
	return out
}
