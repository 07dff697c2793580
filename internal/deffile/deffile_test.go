package deffile

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

func loadDefinition(t *testing.T, name string) *model.Definition {
	t.Helper()
	doc, err := LoadDocument(filepath.Join("testdata", name))
	require.NoError(t, err)
	def, err := doc.Definition()
	require.NoError(t, err)
	return def
}

func TestLoadDocument_YAML(t *testing.T) {
	def := loadDefinition(t, "sales.yaml")

	assert.Equal(t, "ws1", def.Workspace())
	require.Len(t, def.Measures(), 3)
	require.Len(t, def.Attributes(), 1)

	m1, ok := def.Measure("m1")
	require.True(t, ok)
	assert.Equal(t, "Amount", m1.Title)

	m3, ok := def.Measure("m3")
	require.True(t, ok)
	assert.Equal(t, model.ArithmeticMeasure{
		Operator:           model.ArithmeticRatio,
		MeasureIdentifiers: []string{"m1", "m2"},
	}, m3.Definition)

	filters := def.Filters()
	require.Len(t, filters, 4)
	mvf, ok := filters[2].(model.MeasureValueFilter)
	require.True(t, ok)
	cond := mvf.Condition.(model.ComparisonCondition)
	assert.True(t, cond.Value.Equal(decimal.RequireFromString("10.5")))

	require.Len(t, def.SortBy(), 2)
	assert.Equal(t, model.CasingUpper, def.PostProcessing().HeaderCasing)

	dims := def.Dimensions()
	require.Len(t, dims, 2)
	assert.Equal(t, []model.Total{model.NewTotal(model.TotalSum, "m1", "a1")}, dims[0].Totals)
}

func TestLoadDocument_CUEMatchesYAML(t *testing.T) {
	fromYAML := loadDefinition(t, "sales.yaml")
	fromCUE := loadDefinition(t, "sales.cue")

	assert.True(t, model.Equal(fromYAML, fromCUE))
	assert.Equal(t, model.Fingerprint(fromYAML), model.Fingerprint(fromCUE))
}

func TestParseDocument_ExplicitDimensions(t *testing.T) {
	src := `
workspace: ws1
buckets:
  - localIdentifier: b
    items:
      - attribute: {localIdentifier: a1, displayForm: {identifier: label.region}}
      - measure: {localIdentifier: m1, item: {identifier: fact.amount}}
dimensions:
  - itemIdentifiers: [measureGroup]
  - itemIdentifiers: [a1]
`
	doc, err := ParseDocument([]byte(src), FormatYAML, "inline.yaml")
	require.NoError(t, err)
	def, err := doc.Definition()
	require.NoError(t, err)

	dims := def.Dimensions()
	require.Len(t, dims, 2)
	assert.Equal(t, []string{model.MeasureGroupIdentifier}, dims[0].ItemIdentifiers)
	assert.Equal(t, []string{"a1"}, dims[1].ItemIdentifiers)

	m1, _ := def.Measure("m1")
	assert.Equal(t, model.AggregationSum, m1.Definition.(model.SimpleMeasure).Aggregation)
}

func TestParseDocument_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", "workspace: ws1\nbukets: []\n"},
		{"empty document", ""},
		{"item with two kinds", `
workspace: ws1
buckets:
  - localIdentifier: b
    items:
      - attribute: {localIdentifier: a1, displayForm: {identifier: x}}
        measure: {localIdentifier: m1, item: {identifier: y}}
`},
		{"ref with two targets", `
workspace: ws1
buckets:
  - localIdentifier: b
    items:
      - attribute: {localIdentifier: a1, displayForm: {identifier: x, uri: /obj/1}}
`},
		{"filter without kind", "workspace: ws1\nfilters: [{}]\n"},
		{"values and uris", `
workspace: ws1
filters:
  - positiveAttributeFilter: {displayForm: {identifier: x}, in: [a], inUris: [/obj/1]}
`},
		{"positive filter with notIn", `
workspace: ws1
filters:
  - positiveAttributeFilter: {displayForm: {identifier: x}, notIn: [a]}
`},
		{"measure value filter without condition", `
workspace: ws1
filters:
  - measureValueFilter: {measure: {localIdentifier: m1}}
`},
		{"bad number", `
workspace: ws1
filters:
  - measureValueFilter: {measure: {localIdentifier: m1}, comparison: {operator: EQUAL_TO, value: abc}}
`},
		{"locator without kind", `
workspace: ws1
sortBy:
  - measureSortItem: {direction: asc, locators: [{}]}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.src), FormatYAML, "inline.yaml")
			if err == nil {
				_, err = doc.Definition()
			}
			require.Error(t, err)
			assert.True(t, IsDocumentError(err), "got %T: %v", err, err)
		})
	}
}

func TestParseDocument_ModelErrorsPassThrough(t *testing.T) {
	src := `
workspace: ws1
buckets:
  - localIdentifier: b
    items:
      - attribute: {localIdentifier: a1, displayForm: {identifier: label.region}}
sortBy:
  - attributeSortItem: {attributeIdentifier: a9, direction: asc}
`
	doc, err := ParseDocument([]byte(src), FormatYAML, "inline.yaml")
	require.NoError(t, err)

	_, err = doc.Definition()
	require.Error(t, err)
	assert.True(t, model.IsInvalidReference(err))
	assert.False(t, IsDocumentError(err))
}

func TestParseDocument_CUEError(t *testing.T) {
	src := "workspace: \"ws1\"\nworkspace: \"ws2\"\n"
	_, err := ParseDocument([]byte(src), FormatCUE, "conflict.cue")
	require.Error(t, err)

	var de *DocumentError
	require.ErrorAs(t, err, &de)
	assert.True(t, de.Pos.IsValid())
	assert.Contains(t, err.Error(), "conflict.cue")
}

func TestParseDocument_CUEIncomplete(t *testing.T) {
	src := "workspace: string\n"
	_, err := ParseDocument([]byte(src), FormatCUE, "incomplete.cue")
	assert.True(t, IsDocumentError(err))
}

func TestPreparation(t *testing.T) {
	doc, err := LoadDocument(filepath.Join("testdata", "by_ref.yaml"))
	require.NoError(t, err)

	prep, err := doc.Preparation()
	require.NoError(t, err)
	unresolved, ok := prep.(model.Unresolved)
	require.True(t, ok)
	assert.Equal(t, "ws1", unresolved.Workspace)
	assert.Equal(t, model.IDRef("insight.sales", model.ObjectTypeInsight), unresolved.Ref)
	require.Len(t, unresolved.ExtraFilters, 1)

	_, err = doc.Definition()
	assert.True(t, IsDocumentError(err))

	defDoc, err := LoadDocument(filepath.Join("testdata", "sales.yaml"))
	require.NoError(t, err)
	prep, err = defDoc.Preparation()
	require.NoError(t, err)
	assert.IsType(t, model.Resolved{}, prep)
}

func TestPreparation_RejectsMixedDocument(t *testing.T) {
	src := `
workspace: ws1
insight: {ref: {identifier: insight.sales}}
sortBy:
  - attributeSortItem: {attributeIdentifier: a1, direction: asc}
`
	doc, err := ParseDocument([]byte(src), FormatYAML, "inline.yaml")
	require.NoError(t, err)
	_, err = doc.Preparation()
	assert.True(t, IsDocumentError(err))
}

func TestFormatFor(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatYAML,
		"a.cue":  FormatCUE,
	} {
		got, err := FormatFor(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatFor("a.toml")
	assert.Error(t, err)
}

func TestNumber_JSONRoundTrip(t *testing.T) {
	var n Number
	require.NoError(t, json.Unmarshal([]byte(`12.50`), &n))
	assert.Equal(t, "12.5", n.Decimal().String())

	require.NoError(t, json.Unmarshal([]byte(`"7"`), &n))
	assert.Equal(t, "7", n.Decimal().String())

	out, err := json.Marshal(NewNumber(decimal.RequireFromString("0.25")))
	require.NoError(t, err)
	assert.Equal(t, `0.25`, string(out))
}

func TestDatasetDoc_StoreDataset(t *testing.T) {
	loadedAt := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, name := range []string{"dataset.yaml", "dataset.cue"} {
		t.Run(name, func(t *testing.T) {
			doc, err := LoadDataset(filepath.Join("testdata", name))
			require.NoError(t, err)

			ds, err := doc.StoreDataset(loadedAt)
			require.NoError(t, err)

			assert.Equal(t, "ws1", ds.Workspace)
			assert.Equal(t, loadedAt, ds.LoadedAt)
			assert.Equal(t, store.Column{Name: "amount", Type: store.ColumnNumber}, ds.Columns[2])
			require.Len(t, ds.Rows, 4)

			assert.Equal(t, "East", ds.Rows[0][0])
			assert.Equal(t, "2024-01-05", ds.Rows[0][1])
			assertDecimal(t, "100", ds.Rows[0][2])
			assertDecimal(t, "50.25", ds.Rows[1][2])
			assertDecimal(t, "30", ds.Rows[2][2])
			assert.Nil(t, ds.Rows[3][0])
			assert.Nil(t, ds.Rows[3][2])

			require.Len(t, ds.Catalog, 3)
			assert.Equal(t, store.KindFact, ds.Catalog[2].Kind)
			assert.Equal(t, "amount", ds.Catalog[2].Column)
		})
	}
}

func TestDatasetDoc_BadCells(t *testing.T) {
	doc := &DatasetDoc{
		Workspace: "ws1",
		Columns:   []ColumnDoc{{Name: "amount", Type: "number"}},
		Rows:      [][]any{{"many"}},
	}
	_, err := doc.StoreDataset(time.Now())
	assert.True(t, IsDocumentError(err))

	doc.Rows = [][]any{{1, 2}}
	_, err = doc.StoreDataset(time.Now())
	assert.True(t, IsDocumentError(err))
}

func TestDatasetDoc_InsightRecords(t *testing.T) {
	doc, err := LoadDataset(filepath.Join("testdata", "dataset.yaml"))
	require.NoError(t, err)

	records, err := doc.InsightRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "insight.sales", rec.Identifier)
	assert.Equal(t, "/gdc/md/ws1/obj/100", rec.URI)
	assert.Equal(t, "Sales by region", rec.Title)

	insight, err := DecodeInsight(rec.Document)
	require.NoError(t, err)
	assert.Equal(t, model.IDRef("insight.sales", model.ObjectTypeInsight), insight.Ref)
	require.Len(t, insight.Filters, 1)
	mvf := insight.Filters[0].(model.MeasureValueFilter)
	rng := mvf.Condition.(model.RangeCondition)
	assert.True(t, rng.To.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, rng.TreatNullValuesAs)
	assert.True(t, rng.TreatNullValuesAs.IsZero())
	assert.Equal(t, []model.SortItem{model.NewAttributeSort("a1", model.SortDesc)}, insight.Sorts)

	original, err := doc.Insights[0].Insight()
	require.NoError(t, err)
	d1, err := model.NewDefForInsight("ws1", original)
	require.NoError(t, err)
	d2, err := model.NewDefForInsight("ws1", insight)
	require.NoError(t, err)
	assert.True(t, model.Equal(d1, d2))
}

func TestDatasetDoc_InsightRecordsRejectsDanglingReference(t *testing.T) {
	doc := &DatasetDoc{
		Workspace: "ws1",
		Insights: []InsightDoc{{
			Identifier: "i1",
			URI:        "/obj/1",
			Buckets: []BucketDoc{{LocalIdentifier: "b", Items: []ItemDoc{{
				Measure: &MeasureDoc{LocalIdentifier: "m1", Item: RefDoc{Identifier: "fact.amount"}},
			}}}},
			SortBy: []SortDoc{{AttributeSortItem: &AttributeSortDoc{AttributeIdentifier: "a1", Direction: "asc"}}},
		}},
	}
	_, err := doc.InsightRecords()
	assert.True(t, model.IsInvalidReference(err))
}

func assertDecimal(t *testing.T, want string, got any) {
	t.Helper()
	d, ok := got.(decimal.Decimal)
	require.True(t, ok, "got %T", got)
	assert.True(t, d.Equal(decimal.RequireFromString(want)), "got %s, want %s", d, want)
}
