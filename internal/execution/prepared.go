package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/execdef/internal/ir"
	"github.com/roach88/execdef/internal/model"
)

// PreparedExecution is a definition bound to a backend, ready to execute.
type PreparedExecution interface {
	// Definition returns the definition to execute.
	Definition() *model.Definition

	// Execute runs the definition on the backend.
	Execute(ctx context.Context) (*Result, error)

	// WithDimensions, WithSorting and WithPostProcessing derive a new
	// prepared execution through the owning ExecutionFactory.
	WithDimensions(specs ...model.DimensionSpec) (PreparedExecution, error)
	WithSorting(items ...model.SortItem) (PreparedExecution, error)
	WithPostProcessing(pp *model.PostProcessing) (PreparedExecution, error)

	// Fingerprint returns the memoized fingerprint of the definition.
	Fingerprint() string

	// Equals reports whether both definitions are structurally equal. The
	// backends are not compared.
	Equals(other PreparedExecution) bool
}

// ExecutionFactory creates prepared executions for definitions.
type ExecutionFactory interface {
	ForDefinition(def *model.Definition) PreparedExecution
}

// preparedExecution is the PreparedExecution created by Factory.
type preparedExecution struct {
	def     *model.Definition
	factory ExecutionFactory
	env     environment

	// insight reference and the filters sent with it; nil for
	// executions by definition
	insightRef   model.Ref
	extraFilters []model.Filter

	fingerprint atomic.Pointer[string]
}

// environment is what a prepared execution needs from its factory.
type environment struct {
	backend  Backend
	guard    CallGuard
	resolver ReferenceResolver
}

func (p *preparedExecution) Definition() *model.Definition {
	return p.def
}

func (p *preparedExecution) Fingerprint() string {
	if fp := p.fingerprint.Load(); fp != nil {
		return *fp
	}
	fp := model.Fingerprint(p.def)
	p.fingerprint.CompareAndSwap(nil, &fp)
	return fp
}

func (p *preparedExecution) Equals(other PreparedExecution) bool {
	if other == nil {
		return false
	}
	return model.Equal(p.def, other.Definition())
}

func (p *preparedExecution) WithDimensions(specs ...model.DimensionSpec) (PreparedExecution, error) {
	def, err := model.WithDimensions(p.def, specs...)
	if err != nil {
		return nil, err
	}
	return p.factory.ForDefinition(def), nil
}

func (p *preparedExecution) WithSorting(items ...model.SortItem) (PreparedExecution, error) {
	def, err := model.WithSorting(p.def, items...)
	if err != nil {
		return nil, err
	}
	return p.factory.ForDefinition(def), nil
}

func (p *preparedExecution) WithPostProcessing(pp *model.PostProcessing) (PreparedExecution, error) {
	def, err := model.WithPostProcessing(p.def, pp)
	if err != nil {
		return nil, err
	}
	return p.factory.ForDefinition(def), nil
}

// Execute resolves the insight reference, if any, and calls the backend
// exactly once. Failures are returned as *ExecutionError; nothing is
// retried here.
func (p *preparedExecution) Execute(ctx context.Context) (*Result, error) {
	workspace := p.def.Workspace()
	fp := p.Fingerprint()
	log := slog.With(
		"workspace", workspace,
		"execution_key", ir.ExecutionKey(workspace, fp),
	)

	req := Request{Definition: p.def}
	if p.insightRef != nil {
		uri, err := p.resolve(ctx, workspace, fp)
		if err != nil {
			log.Error("reference resolution failed", "ref", p.insightRef.String(), "error", err)
			return nil, err
		}
		req.Reference = uri
		req.Filters = p.extraFilters
	}

	log.Debug("executing", "by_reference", req.ByReference())

	resp, err := guarded(ctx, p.env.guard, "execute", backendErrorMapper(workspace, fp, "execute"),
		func(ctx context.Context) (*Response, error) {
			return p.env.backend.Execute(ctx, req)
		})
	if err != nil {
		log.Error("execution failed", "error", err)
		return nil, err
	}
	if err := checkResponse(p.def, resp); err != nil {
		err = &ExecutionError{
			Code:        ErrCodeBackendExecution,
			Message:     "malformed execution response",
			Workspace:   workspace,
			Fingerprint: fp,
			Err:         err,
		}
		log.Error("execution failed", "error", err)
		return nil, err
	}

	log.Info("execution finished", "result_id", resp.ResultID, "total_count", resp.TotalCount)
	return newResult(p.def, fp, p.factory, p.env, resp), nil
}

// resolve turns the insight reference into a backend URI.
func (p *preparedExecution) resolve(ctx context.Context, workspace, fp string) (string, error) {
	mapper := referenceErrorMapper(workspace, fp, p.insightRef.String())
	if uri, ok := p.insightRef.(model.URIRef); ok {
		return uri.URI, nil
	}
	if p.env.resolver == nil {
		return "", mapper(fmt.Errorf("no reference resolver for %s", p.insightRef))
	}
	return guarded(ctx, p.env.guard, "resolve reference", mapper,
		func(ctx context.Context) (string, error) {
			return p.env.resolver.ResolveReferenceToURI(ctx, p.insightRef, workspace)
		})
}

func checkResponse(def *model.Definition, resp *Response) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}
	if resp.ResultID == "" {
		return fmt.Errorf("response without result id")
	}
	want := len(def.Dimensions())
	if len(resp.Dimensions) != want || len(resp.TotalCount) != want {
		return fmt.Errorf("response has %d dimensions and %d counts, want %d",
			len(resp.Dimensions), len(resp.TotalCount), want)
	}
	for i, n := range resp.TotalCount {
		if n < 0 {
			return fmt.Errorf("dimension %d has negative size %d", i, n)
		}
	}
	return nil
}
