package execution

import (
	"context"

	"github.com/roach88/execdef/internal/model"
)

// CallGuard wraps every backend call. Implementations own authentication,
// throttling and retry; the caller supplies the operation and an ErrorMapper
// that translates the backend error into the execution error taxonomy.
type CallGuard interface {
	Call(ctx context.Context, operation string, fn func(ctx context.Context) error, mapper ErrorMapper) error
}

// DirectCallGuard calls the operation once and maps its error.
type DirectCallGuard struct{}

// Call implements CallGuard.
func (DirectCallGuard) Call(ctx context.Context, operation string, fn func(ctx context.Context) error, mapper ErrorMapper) error {
	if err := fn(ctx); err != nil {
		return mapper(err)
	}
	return nil
}

// guarded runs fn through g and returns its value.
func guarded[T any](ctx context.Context, g CallGuard, operation string, mapper ErrorMapper, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Call(ctx, operation, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	}, mapper)
	return out, err
}

// ReferenceResolver translates a reference into a URI the backend
// understands.
type ReferenceResolver interface {
	ResolveReferenceToURI(ctx context.Context, ref model.Ref, workspace string) (string, error)
}

// InsightLoader loads saved insights by reference.
type InsightLoader interface {
	LoadInsight(ctx context.Context, workspace string, ref model.Ref) (*model.Insight, error)
}
