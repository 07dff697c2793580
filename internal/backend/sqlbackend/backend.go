package sqlbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/deffile"
	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

var (
	_ execution.Backend           = (*Backend)(nil)
	_ execution.ReferenceResolver = (*Backend)(nil)
	_ execution.InsightLoader     = (*Backend)(nil)
)

// Backend executes definitions against the fact tables of a store.
//
// Thread-safety: Backend is safe for concurrent use. The store serializes
// database access; results are guarded by their own mutex.
type Backend struct {
	store   *store.Store
	ids     IDGenerator
	now     func() time.Time
	results *resultStore
}

// Option configures a Backend.
type Option func(*Backend)

// WithIDGenerator sets the result id generator.
//
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) Option {
	return func(b *Backend) {
		b.ids = g
	}
}

// WithClock sets the wall clock relative date filters are evaluated
// against and executions are stamped with.
//
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithMaxResults bounds the number of results kept for paging. Older
// results are dropped first; reading them fails with
// execution.ErrResultNotFound. Zero keeps everything.
//
// Default: DefaultMaxResults
func WithMaxResults(n int) Option {
	return func(b *Backend) {
		b.results = newResultStore(n)
	}
}

// New creates a backend over st.
func New(st *store.Store, opts ...Option) *Backend {
	b := &Backend{
		store:   st,
		ids:     UUIDv7Generator{},
		now:     time.Now,
		results: newResultStore(DefaultMaxResults),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs req and keeps the result for ReadPage.
func (b *Backend) Execute(ctx context.Context, req execution.Request) (*execution.Response, error) {
	if req.Definition == nil {
		return nil, errors.New("execute: request without definition")
	}
	def := req.Definition
	if req.ByReference() {
		var err error
		if def, err = b.definitionByReference(ctx, req); err != nil {
			return nil, err
		}
	}
	workspace := def.Workspace()

	factTable, err := b.store.FactTable(ctx, workspace)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	now := b.now()
	pl, err := buildPlan(ctx, def, newCatalog(b.store, workspace), factTable, now)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	tbl, err := runQuery(ctx, b.store, pl.query, len(pl.attributes), len(pl.measures))
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	totals, err := computeTotals(ctx, pl.layout.totals, pl, tbl, func(ctx context.Context) ([]decimal.NullDecimal, error) {
		grand, err := runQuery(ctx, b.store, pl.grand, 0, len(pl.measures))
		if err != nil {
			return nil, err
		}
		if len(grand.values) == 0 {
			return make([]decimal.NullDecimal, len(pl.measures)), nil
		}
		return grand.values[0], nil
	})
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	resp, page := assemble(pl, tbl, totals)
	resp.ResultID = b.ids.Generate()

	seq, err := b.store.AppendExecution(ctx, store.ExecutionRecord{
		ResultID:    resp.ResultID,
		Workspace:   workspace,
		Fingerprint: model.Fingerprint(def),
		Reference:   req.Reference,
		RowCount:    len(tbl.keys),
		ColumnCount: len(pl.measures),
		ExecutedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	for _, id := range b.results.put(resp.ResultID, &storedResult{workspace: workspace, full: page}) {
		slog.Debug("result evicted", "result_id", id)
	}
	slog.Debug("execution completed",
		"workspace", workspace,
		"result_id", resp.ResultID,
		"seq", seq,
		"rows", len(tbl.keys),
	)
	return resp, nil
}

// definitionByReference loads the referenced insight, merges the request
// filters into its own and applies the result spec of req.Definition.
func (b *Backend) definitionByReference(ctx context.Context, req execution.Request) (*model.Definition, error) {
	workspace := req.Definition.Workspace()
	insight, err := b.LoadInsight(ctx, workspace, model.URI(req.Reference))
	if err != nil {
		return nil, err
	}
	def, err := model.NewDefForInsight(workspace, insight, req.Filters...)
	if err != nil {
		return nil, fmt.Errorf("insight %s: %w", req.Reference, err)
	}

	dims := req.Definition.Dimensions()
	specs := make([]model.DimensionSpec, len(dims))
	for i, d := range dims {
		specs[i] = d
	}
	if def, err = model.WithDimensions(def, specs...); err != nil {
		return nil, fmt.Errorf("insight %s: %w", req.Reference, err)
	}
	if def, err = model.WithSorting(def, req.Definition.SortBy()...); err != nil {
		return nil, fmt.Errorf("insight %s: %w", req.Reference, err)
	}
	if def, err = model.WithPostProcessing(def, req.Definition.PostProcessing()); err != nil {
		return nil, fmt.Errorf("insight %s: %w", req.Reference, err)
	}
	return def, nil
}

// ReadPage returns window w of a result kept by Execute.
func (b *Backend) ReadPage(ctx context.Context, workspace, resultID string, w execution.Window) (*execution.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := b.results.get(workspace, resultID)
	if !ok {
		return nil, fmt.Errorf("result %q: %w", resultID, execution.ErrResultNotFound)
	}
	return slicePage(r.full, w)
}

// ResolveReferenceToURI returns the URI of a saved insight or catalog
// object. Unknown objects fail with execution.ErrReferenceNotFound.
func (b *Backend) ResolveReferenceToURI(ctx context.Context, ref model.Ref, workspace string) (string, error) {
	switch r := ref.(type) {
	case model.URIRef:
		return r.URI, nil
	case model.IdentifierRef:
		if r.Type == "" || r.Type == model.ObjectTypeInsight {
			rec, err := b.store.ReadInsight(ctx, workspace, r.Identifier)
			if err == nil {
				return rec.URI, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return "", err
			}
			if r.Type == model.ObjectTypeInsight {
				return "", fmt.Errorf("insight %q: %w", r.Identifier, execution.ErrReferenceNotFound)
			}
		}
		item, err := b.store.LookupCatalogItem(ctx, workspace, r.Identifier)
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("object %s: %w", ref, execution.ErrReferenceNotFound)
		}
		if err != nil {
			return "", err
		}
		return item.URI, nil
	}
	return "", fmt.Errorf("reference %v has no uri: %w", ref, execution.ErrReferenceNotFound)
}

// LoadInsight reads a saved insight by identifier or URI.
func (b *Backend) LoadInsight(ctx context.Context, workspace string, ref model.Ref) (*model.Insight, error) {
	var rec store.InsightRecord
	var err error
	switch r := ref.(type) {
	case model.IdentifierRef:
		rec, err = b.store.ReadInsight(ctx, workspace, r.Identifier)
	case model.URIRef:
		rec, err = b.store.ReadInsightByURI(ctx, workspace, r.URI)
	default:
		return nil, fmt.Errorf("insight reference %v: %w", ref, execution.ErrReferenceNotFound)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("insight %s: %w", ref, execution.ErrReferenceNotFound)
	}
	if err != nil {
		return nil, err
	}
	insight, err := deffile.DecodeInsight(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("insight %s: %w", ref, err)
	}
	return insight, nil
}
