package sqlbackend

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/execdef/internal/deffile"
	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

const (
	regionURI   = "/gdc/md/ws1/obj/1"
	customerURI = "/gdc/md/ws1/obj/4"
	insightURI  = "/gdc/md/ws1/obj/100"
)

var (
	regionLabel   = model.IDRef("label.region", model.ObjectTypeDisplayForm)
	customerLabel = model.IDRef("label.customer", model.ObjectTypeDisplayForm)
	orderDate     = model.IDRef("dataset.order_date", model.ObjectTypeDataSet)
	amountFact    = model.IDRef("fact.amount", model.ObjectTypeFact)

	// marchNow is the wall clock of every test backend.
	marchNow = time.Date(2024, 3, 20, 15, 4, 5, 0, time.UTC)
)

// salesDataset groups by region as
//
//	NULL   7.5   1 customer
//	East   150   2 customers
//	North  20    1 customer
//	West   30    2 customers (one row without amount)
func salesDataset() store.Dataset {
	return store.Dataset{
		Workspace: "ws1",
		Columns: []store.Column{
			{Name: "region", Type: store.ColumnText},
			{Name: "order_date", Type: store.ColumnDate},
			{Name: "amount", Type: store.ColumnNumber},
			{Name: "customer", Type: store.ColumnText},
		},
		Rows: [][]any{
			{"East", "2024-01-05", 100, "c1"},
			{"East", "2024-02-10", 50, "c2"},
			{"West", "2024-01-20", 30, "c1"},
			{"West", "2024-03-01", nil, "c3"},
			{"North", "2024-03-15", 20, "c2"},
			{nil, "2024-03-02", decimal.RequireFromString("7.5"), "c1"},
		},
		Catalog: []store.CatalogItem{
			{Kind: store.KindLabel, Identifier: "label.region", URI: regionURI, Column: "region", Title: "Region"},
			{Kind: store.KindDataSet, Identifier: "dataset.order_date", URI: "/gdc/md/ws1/obj/2", Column: "order_date", Title: "Order date"},
			{Kind: store.KindFact, Identifier: "fact.amount", URI: "/gdc/md/ws1/obj/3", Column: "amount", Title: "Amount"},
			{Kind: store.KindLabel, Identifier: "label.customer", URI: customerURI, Column: "customer", Title: "Customer"},
		},
		LoadedAt: marchNow,
	}
}

// newTestBackend opens a store in a temporary directory, loads
// salesDataset and returns a backend over it.
func newTestBackend(t *testing.T, opts ...Option) (*Backend, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.LoadDataset(context.Background(), salesDataset()))

	opts = append([]Option{WithClock(func() time.Time { return marchNow })}, opts...)
	return New(st, opts...), st
}

// saveInsight stores doc as a saved insight of ws1.
func saveInsight(t *testing.T, st *store.Store, doc deffile.InsightDoc) {
	t.Helper()
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, st.WriteInsight(context.Background(), store.InsightRecord{
		Workspace:  "ws1",
		Identifier: doc.Identifier,
		URI:        doc.URI,
		Title:      doc.Title,
		Document:   body,
	}))
}

// salesInsightDoc is "amount by region", sorted by region descending.
func salesInsightDoc() deffile.InsightDoc {
	return deffile.InsightDoc{
		Identifier: "insight.sales",
		URI:        insightURI,
		Title:      "Sales by region",
		Buckets: []deffile.BucketDoc{
			{LocalIdentifier: "measures", Items: []deffile.ItemDoc{{
				Measure: &deffile.MeasureDoc{LocalIdentifier: "m1", Item: deffile.RefDoc{Identifier: "fact.amount", Type: "fact"}},
			}}},
			{LocalIdentifier: "view", Items: []deffile.ItemDoc{{
				Attribute: &deffile.AttributeDoc{LocalIdentifier: "a1", DisplayForm: deffile.RefDoc{Identifier: "label.region", Type: "displayForm"}},
			}}},
		},
		SortBy: []deffile.SortDoc{{AttributeSortItem: &deffile.AttributeSortDoc{AttributeIdentifier: "a1", Direction: "desc"}}},
	}
}

func region() model.Attribute {
	return model.NewAttribute("a1", regionLabel)
}

func sumAmount(localID string, filters ...model.Filter) model.Measure {
	return model.NewMeasure(localID, amountFact, model.AggregationSum, filters...)
}

// mustDef returns a function that unwraps a (definition, error) pair,
// failing the test on error.
func mustDef(t *testing.T) func(*model.Definition, error) *model.Definition {
	return func(def *model.Definition, err error) *model.Definition {
		t.Helper()
		require.NoError(t, err)
		return def
	}
}

func itemsDef(t *testing.T, items ...model.BucketItem) *model.Definition {
	t.Helper()
	return mustDef(t)(model.NewDefForItems("ws1", items))
}

// executeAll executes def and reads the whole result.
func executeAll(t *testing.T, b *Backend, def *model.Definition) (*execution.Response, *execution.Page) {
	t.Helper()
	ctx := context.Background()
	resp, err := b.Execute(ctx, execution.Request{Definition: def})
	require.NoError(t, err)

	w := execution.Window{Offset: make([]int, len(resp.TotalCount)), Limit: make([]int, len(resp.TotalCount))}
	for i, n := range resp.TotalCount {
		w.Limit[i] = n
	}
	page, err := b.ReadPage(ctx, def.Workspace(), resp.ResultID, w)
	require.NoError(t, err)
	return resp, page
}

// grid renders page data as strings; null values are "null".
func grid(p *execution.Page) [][]string {
	return nullGrid(p.Data)
}

func nullGrid(data [][]decimal.NullDecimal) [][]string {
	if data == nil {
		return nil
	}
	out := make([][]string, len(data))
	for i, row := range data {
		out[i] = nullStrings(row)
	}
	return out
}

func nullStrings(values []decimal.NullDecimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = "null"
		if v.Valid {
			out[i] = v.Decimal.String()
		}
	}
	return out
}

func headerNames(headers []execution.ResultHeader) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = h.Name
	}
	return out
}
