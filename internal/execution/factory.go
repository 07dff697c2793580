package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/execdef/internal/model"
)

// Factory creates prepared executions for one workspace and backend.
type Factory struct {
	workspace string
	env       environment
	insights  InsightLoader
	owner     ExecutionFactory
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithCallGuard sets the guard every backend call goes through.
// Default: DirectCallGuard.
func WithCallGuard(g CallGuard) FactoryOption {
	return func(f *Factory) {
		f.env.guard = g
	}
}

// WithReferenceResolver sets the resolver used by executions by reference.
func WithReferenceResolver(r ReferenceResolver) FactoryOption {
	return func(f *Factory) {
		f.env.resolver = r
	}
}

// WithInsightLoader sets the loader used by Prepare for unresolved
// preparations.
func WithInsightLoader(l InsightLoader) FactoryOption {
	return func(f *Factory) {
		f.insights = l
	}
}

// WithOwner makes prepared executions derive through owner instead of the
// factory itself. Wrapping factories use it so that withX transforms return
// their own prepared executions.
func WithOwner(owner ExecutionFactory) FactoryOption {
	return func(f *Factory) {
		f.owner = owner
	}
}

// NewFactory creates a Factory for workspace.
func NewFactory(workspace string, backend Backend, opts ...FactoryOption) *Factory {
	f := &Factory{
		workspace: workspace,
		env: environment{
			backend: backend,
			guard:   DirectCallGuard{},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.owner == nil {
		f.owner = f
	}
	return f
}

// Workspace returns the factory's workspace.
func (f *Factory) Workspace() string {
	return f.workspace
}

// ForDefinition implements ExecutionFactory.
func (f *Factory) ForDefinition(def *model.Definition) PreparedExecution {
	return &preparedExecution{def: def, factory: f.owner, env: f.env}
}

// ForItems prepares an execution of loose attributes and measures.
func (f *Factory) ForItems(items []model.BucketItem, filters ...model.Filter) (PreparedExecution, error) {
	def, err := model.NewDefForItems(f.workspace, items, filters...)
	if err != nil {
		return nil, err
	}
	return f.owner.ForDefinition(def), nil
}

// ForBuckets prepares an execution of buckets.
func (f *Factory) ForBuckets(buckets []model.Bucket, filters ...model.Filter) (PreparedExecution, error) {
	def, err := model.NewDefForBuckets(f.workspace, buckets, filters...)
	if err != nil {
		return nil, err
	}
	return f.owner.ForDefinition(def), nil
}

// ForInsight prepares an execution of an insight's content. The backend
// receives the full definition; the insight reference is not sent.
func (f *Factory) ForInsight(insight *model.Insight, filters ...model.Filter) (PreparedExecution, error) {
	def, err := model.NewDefForInsight(f.workspace, insight, filters...)
	if err != nil {
		return nil, err
	}
	return f.owner.ForDefinition(def), nil
}

// ForInsightByRef prepares an execution of a saved insight by reference.
// The definition is built from the insight with filters merged in, so the
// fingerprint covers the extra filters; at execute time the backend
// receives the resolved insight URI, the extra filters and the result spec.
// Transforms of the returned execution execute by definition.
func (f *Factory) ForInsightByRef(insight *model.Insight, filters ...model.Filter) (PreparedExecution, error) {
	if insight == nil || insight.Ref == nil {
		return nil, errors.New("execution by reference needs an insight with a ref")
	}
	def, err := model.NewDefForInsight(f.workspace, insight, filters...)
	if err != nil {
		return nil, err
	}
	extra := make([]model.Filter, len(filters))
	copy(extra, filters)
	return &preparedExecution{
		def:          def,
		factory:      f.owner,
		env:          f.env,
		insightRef:   insight.Ref,
		extraFilters: extra,
	}, nil
}

// Prepare turns a preparation into a prepared execution. Unresolved
// preparations are loaded with the InsightLoader and executed by
// reference; load failures are UNRESOLVED_REFERENCE errors.
func (f *Factory) Prepare(ctx context.Context, p model.Preparation) (PreparedExecution, error) {
	switch x := p.(type) {
	case model.Resolved:
		if x.Definition == nil {
			return nil, errors.New("resolved preparation without definition")
		}
		return f.owner.ForDefinition(x.Definition), nil
	case model.Unresolved:
		if x.Workspace != "" && x.Workspace != f.workspace {
			return nil, fmt.Errorf("preparation for workspace %q used with factory for %q", x.Workspace, f.workspace)
		}
		if x.Ref == nil {
			return nil, errors.New("unresolved preparation without ref")
		}
		mapper := referenceErrorMapper(f.workspace, "", x.Ref.String())
		if f.insights == nil {
			return nil, mapper(errors.New("no insight loader"))
		}
		insight, err := guarded(ctx, f.env.guard, "load insight", mapper,
			func(ctx context.Context) (*model.Insight, error) {
				return f.insights.LoadInsight(ctx, f.workspace, x.Ref)
			})
		if err != nil {
			return nil, err
		}
		if insight.Ref == nil {
			insight.Ref = x.Ref
		}
		return f.ForInsightByRef(insight, x.ExtraFilters...)
	}
	return nil, fmt.Errorf("unknown preparation %T", p)
}
