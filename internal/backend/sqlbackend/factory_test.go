package sqlbackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/execdef/internal/callguard"
	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/model"
)

func newTestFactory(t *testing.T, opts ...Option) (*execution.Factory, *Backend) {
	t.Helper()
	b, st := newTestBackend(t, opts...)
	saveInsight(t, st, salesInsightDoc())
	f := execution.NewFactory("ws1", b,
		execution.WithCallGuard(callguard.New(callguard.DefaultConfig())),
		execution.WithReferenceResolver(b),
		execution.WithInsightLoader(b),
	)
	return f, b
}

func TestFactory_ExecuteAndReadAll(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	prep, err := f.ForItems([]model.BucketItem{region(), sumAmount("m1")})
	require.NoError(t, err)
	result, err := prep.Execute(ctx)
	require.NoError(t, err)

	view, err := result.ReadAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int{4, 1}, view.TotalCount)
	assert.Equal(t, []int{4, 1}, view.Count)
	assert.Equal(t, []string{"", "East", "North", "West"}, headerNames(view.Headers[0][0]))
	assert.Equal(t, [][]string{{"7.5"}, {"150"}, {"20"}, {"30"}}, nullGrid(view.Data))
	assert.Equal(t, prep.Fingerprint()+"/"+result.ResultID(), result.Fingerprint())
}

func TestFactory_ReadWindow(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	prep, err := f.ForItems([]model.BucketItem{region(), sumAmount("m1")})
	require.NoError(t, err)
	result, err := prep.Execute(ctx)
	require.NoError(t, err)

	view, err := result.ReadWindow(ctx, []int{2, 0}, []int{10, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, view.Count)
	assert.Equal(t, []string{"North", "West"}, headerNames(view.Headers[0][0]))

	empty, err := result.ReadWindow(ctx, []int{10, 0}, []int{1, 1})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, []int{4, 1}, empty.TotalCount)
}

func TestFactory_PrepareByReference(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	prep, err := f.Prepare(ctx, model.Unresolved{
		Workspace:    "ws1",
		Ref:          model.IDRef("insight.sales", model.ObjectTypeInsight),
		ExtraFilters: []model.Filter{model.NewPositiveAttributeFilter(regionLabel, "East", "North")},
	})
	require.NoError(t, err)
	result, err := prep.Execute(ctx)
	require.NoError(t, err)

	view, err := result.ReadAll(ctx)
	require.NoError(t, err)
	// The saved insight sorts by region descending.
	assert.Equal(t, []string{"North", "East"}, headerNames(view.Headers[0][0]))
	assert.Equal(t, [][]string{{"20"}, {"150"}}, nullGrid(view.Data))
}

func TestFactory_ByReferenceTransform(t *testing.T) {
	f, _ := newTestFactory(t)
	ctx := context.Background()

	prep, err := f.Prepare(ctx, model.Unresolved{Ref: model.IDRef("insight.sales", model.ObjectTypeInsight)})
	require.NoError(t, err)
	sorted, err := prep.WithSorting(model.NewMeasureSort("m1", model.SortAsc))
	require.NoError(t, err)
	result, err := sorted.Execute(ctx)
	require.NoError(t, err)

	view, err := result.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "North", "West", "East"}, headerNames(view.Headers[0][0]))
}

func TestFactory_UnknownInsight(t *testing.T) {
	f, _ := newTestFactory(t)

	_, err := f.Prepare(context.Background(), model.Unresolved{Ref: model.IDRef("insight.nope", model.ObjectTypeInsight)})

	require.Error(t, err)
	assert.True(t, execution.IsUnresolvedReference(err))
}

func TestFactory_PlanningErrorIsBackendExecution(t *testing.T) {
	f, _ := newTestFactory(t)

	prep, err := f.ForItems([]model.BucketItem{model.NewAttribute("a1", model.IDRef("label.nope", ""))})
	require.NoError(t, err)
	_, err = prep.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, execution.IsBackendExecution(err))
}

func TestFactory_EvictedResultExpires(t *testing.T) {
	f, _ := newTestFactory(t, WithMaxResults(1))
	ctx := context.Background()

	prep, err := f.ForItems([]model.BucketItem{region(), sumAmount("m1")})
	require.NoError(t, err)
	first, err := prep.Execute(ctx)
	require.NoError(t, err)
	_, err = prep.Execute(ctx)
	require.NoError(t, err)

	_, err = first.ReadAll(ctx)

	require.Error(t, err)
	assert.True(t, execution.IsResultExpired(err))
}
