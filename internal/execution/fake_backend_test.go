package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/model"
)

var (
	regionLabel = model.IDRef("label.region", model.ObjectTypeDisplayForm)
	amountFact  = model.IDRef("fact.amount", model.ObjectTypeFact)
	orderDate   = model.IDRef("dataset.order_date", model.ObjectTypeDataSet)
)

// fakeBackend serves a grid of rows x 1 measure. The value at row i is
// i*10; row headers are rowNames[i] or "r<i>".
type fakeBackend struct {
	mu       sync.Mutex
	rows     int
	rowNames []string
	dateRows bool

	executeErr error
	pageErr    error
	response   *Response // overrides the generated response

	requests  []Request
	windows   []Window
	nextID    int
	pageCalls int
}

func newFakeBackend(rows int) *fakeBackend {
	return &fakeBackend{rows: rows}
}

func (b *fakeBackend) Execute(ctx context.Context, req Request) (*Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.executeErr != nil {
		return nil, b.executeErr
	}
	if b.response != nil {
		return b.response, nil
	}
	b.nextID++
	return &Response{
		ResultID: fmt.Sprintf("result-%d", b.nextID),
		Dimensions: []DimensionDescriptor{
			{Headers: []HeaderDescriptor{{
				Kind:        HeaderAttribute,
				LocalID:     "a1",
				Name:        "Region",
				DisplayForm: "label.region",
				Date:        b.dateRows,
			}}},
			{Headers: []HeaderDescriptor{{
				Kind:     HeaderMeasureGroup,
				LocalID:  model.MeasureGroupIdentifier,
				Measures: []MeasureDescriptor{{LocalID: "m1", Name: "Amount"}},
			}}},
		},
		TotalCount: []int{b.rows, 1},
	}, nil
}

func (b *fakeBackend) ReadPage(ctx context.Context, workspace, resultID string, w Window) (*Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pageCalls++
	b.windows = append(b.windows, w)
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	p := &Page{
		Offset:  append([]int(nil), w.Offset...),
		Count:   append([]int(nil), w.Limit...),
		Headers: [][][]ResultHeader{{{}}, {{}}},
		Totals:  [][]TotalRow{{{Type: model.TotalSum, Values: []decimal.NullDecimal{nullDec(int64(b.sum()))}}}, nil},
	}
	for i := w.Offset[0]; i < w.Offset[0]+w.Limit[0]; i++ {
		name := fmt.Sprintf("r%d", i)
		if i < len(b.rowNames) {
			name = b.rowNames[i]
		}
		p.Headers[0][0] = append(p.Headers[0][0], ResultHeader{Name: name})
		p.Data = append(p.Data, []decimal.NullDecimal{nullDec(int64(i * 10))})
	}
	p.Headers[1][0] = []ResultHeader{{Name: "Amount", MeasureIndex: 0}}
	return p, nil
}

func (b *fakeBackend) sum() int {
	total := 0
	for i := range b.rows {
		total += i * 10
	}
	return total
}

func (b *fakeBackend) executeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *fakeBackend) pageCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pageCalls
}

func nullDec(n int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(n))
}

// fakeResolver maps identifiers to URIs.
type fakeResolver struct {
	uris  map[string]string
	calls int
}

func (r *fakeResolver) ResolveReferenceToURI(ctx context.Context, ref model.Ref, workspace string) (string, error) {
	r.calls++
	id, ok := ref.(model.IdentifierRef)
	if !ok {
		return "", fmt.Errorf("unsupported ref %s", ref)
	}
	uri, ok := r.uris[id.Identifier]
	if !ok {
		return "", fmt.Errorf("%s: %w", id.Identifier, ErrReferenceNotFound)
	}
	return uri, nil
}

// fakeLoader serves insights by identifier.
type fakeLoader struct {
	insights map[string]*model.Insight
}

func (l *fakeLoader) LoadInsight(ctx context.Context, workspace string, ref model.Ref) (*model.Insight, error) {
	id, ok := ref.(model.IdentifierRef)
	if !ok {
		return nil, fmt.Errorf("unsupported ref %s", ref)
	}
	insight, ok := l.insights[id.Identifier]
	if !ok {
		return nil, fmt.Errorf("insight %s: %w", id.Identifier, ErrReferenceNotFound)
	}
	cp := *insight
	return &cp, nil
}

// recordingFactory wraps a Factory and counts ForDefinition calls.
type recordingFactory struct {
	inner *Factory
	calls int
}

func (f *recordingFactory) ForDefinition(def *model.Definition) PreparedExecution {
	f.calls++
	return f.inner.ForDefinition(def)
}

func salesItems() []model.BucketItem {
	return []model.BucketItem{
		model.NewAttribute("a1", regionLabel),
		model.NewMeasure("m1", amountFact, model.AggregationSum),
	}
}

func salesInsight() *model.Insight {
	return &model.Insight{
		Ref:   model.IDRef("insight.sales", model.ObjectTypeInsight),
		Title: "Sales",
		Buckets: []model.Bucket{
			model.NewBucket("measures", model.NewMeasure("m1", amountFact, model.AggregationSum)),
			model.NewBucket("view", model.NewAttribute("a1", regionLabel)),
		},
		Filters: []model.Filter{
			model.NewPositiveAttributeFilter(regionLabel, "East", "West"),
		},
	}
}
