package sqlbackend

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

func TestExecute_SumByRegion(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t, region(), sumAmount("m1"))

	resp, page := executeAll(t, b, def)

	assert.NotEmpty(t, resp.ResultID)
	assert.Equal(t, []int{4, 1}, resp.TotalCount)
	require.Len(t, resp.Dimensions, 2)

	attr := resp.Dimensions[0].Headers
	require.Len(t, attr, 1)
	assert.Equal(t, execution.HeaderAttribute, attr[0].Kind)
	assert.Equal(t, "a1", attr[0].LocalID)
	assert.Equal(t, "Region", attr[0].Name)
	assert.Equal(t, "label.region", attr[0].DisplayForm)
	assert.False(t, attr[0].Date)

	group := resp.Dimensions[1].Headers
	require.Len(t, group, 1)
	assert.Equal(t, execution.HeaderMeasureGroup, group[0].Kind)
	assert.Equal(t, model.MeasureGroupIdentifier, group[0].LocalID)
	assert.Equal(t, []execution.MeasureDescriptor{{LocalID: "m1", Name: "Amount"}}, group[0].Measures)

	// Keys sort ascending with NULL first.
	assert.Equal(t, []string{"", "East", "North", "West"}, headerNames(page.Headers[0][0]))
	assert.Equal(t, "", page.Headers[0][0][0].URI)
	assert.Equal(t, ElementURI(regionURI, "East"), page.Headers[0][0][1].URI)
	assert.Equal(t, [][]string{{"7.5"}, {"150"}, {"20"}, {"30"}}, grid(page))
	assert.Equal(t, []execution.ResultHeader{{Name: "Amount", MeasureIndex: 0}}, page.Headers[1][0])
}

func TestExecute_Aggregations(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t,
		region(),
		sumAmount("m1"),
		model.NewMeasure("m2", amountFact, model.AggregationCount),
		model.NewMeasure("m3", customerLabel, model.AggregationCount),
		model.NewMeasure("m4", amountFact, model.AggregationMax),
		model.NewMeasure("m5", amountFact, model.AggregationMedian),
	)

	_, page := executeAll(t, b, def)

	assert.Equal(t, [][]string{
		{"7.5", "1", "1", "7.5", "7.5"},
		{"150", "2", "2", "100", "75"},
		{"20", "1", "1", "20", "20"},
		{"30", "1", "2", "30", "30"},
	}, grid(page))
}

func TestExecute_MeasureNames(t *testing.T) {
	b, _ := newTestBackend(t)
	titled := sumAmount("m2")
	titled.Title = "Revenue"
	aliased := sumAmount("m3")
	aliased.Title = "Revenue"
	aliased.Alias = "Rev"
	aliased.Format = "#,##0"
	def := itemsDef(t, region(), sumAmount("m1"), titled, aliased)

	resp, _ := executeAll(t, b, def)

	assert.Equal(t, []execution.MeasureDescriptor{
		{LocalID: "m1", Name: "Amount"},
		{LocalID: "m2", Name: "Revenue"},
		{LocalID: "m3", Name: "Rev", Format: "#,##0"},
	}, resp.Dimensions[1].Headers[0].Measures)
}

func TestExecute_EqualDefinitionsSameLayout(t *testing.T) {
	b, _ := newTestBackend(t)
	customer := model.NewAttribute("a2", customerLabel)
	count := model.NewMeasure("m2", amountFact, model.AggregationCount)

	a := itemsDef(t, region(), customer, sumAmount("m1"), count)
	z := itemsDef(t, count, customer, sumAmount("m1"), region())
	require.True(t, model.Equal(a, z))

	respA, pageA := executeAll(t, b, a)
	respZ, pageZ := executeAll(t, b, z)

	assert.Equal(t, respA.Dimensions, respZ.Dimensions)
	assert.Equal(t, []execution.MeasureDescriptor{
		{LocalID: "m1", Name: "Amount"},
		{LocalID: "m2", Name: "Amount"},
	}, respZ.Dimensions[1].Headers[0].Measures)
	assert.Equal(t, pageA.Headers, pageZ.Headers)
	assert.Equal(t, grid(pageA), grid(pageZ))
}

func TestExecute_LabelMeasureOnlyCounts(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t, region(), model.NewMeasure("m1", customerLabel, model.AggregationSum))

	_, err := b.Execute(context.Background(), execution.Request{Definition: def})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "only count is supported")
}

func TestExecute_ArithmeticMeasures(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t,
		region(),
		sumAmount("m1"),
		model.NewMeasure("m2", amountFact, model.AggregationCount),
		model.NewArithmeticMeasure("m3", model.ArithmeticRatio, "m1", "m2"),
		model.NewArithmeticMeasure("m4", model.ArithmeticSum, "m1", "m2", "m3"),
		model.NewArithmeticMeasure("m5", model.ArithmeticDifference, "m1", "m2"),
	)

	_, page := executeAll(t, b, def)

	assert.Equal(t, [][]string{
		{"7.5", "1", "7.5", "16", "6.5"},
		{"150", "2", "75", "227", "148"},
		{"20", "1", "20", "41", "19"},
		{"30", "1", "30", "61", "29"},
	}, grid(page))
}

func TestExecute_ChangeMeasure(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t,
		region(),
		sumAmount("m1"),
		model.NewMeasure("m2", amountFact, model.AggregationCount),
		model.NewArithmeticMeasure("m3", model.ArithmeticChange, "m1", "m2"),
	)
	def = mustDef(t)(model.WithFilters(def, model.NewPositiveAttributeFilter(regionLabel, "East")))

	_, page := executeAll(t, b, def)

	// (150 - 2) / 2
	assert.Equal(t, [][]string{{"150", "2", "74"}}, grid(page))
}

func TestExecute_AttributeFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter model.Filter
		want   []string
	}{
		{
			name:   "positive by value",
			filter: model.NewPositiveAttributeFilter(regionLabel, "East", "West"),
			want:   []string{"East", "West"},
		},
		{
			name:   "positive by uri",
			filter: model.PositiveAttributeFilter{DisplayForm: model.URI(regionURI), In: model.ElementURIs(ElementURI(regionURI, "North"))},
			want:   []string{"North"},
		},
		{
			name:   "negative keeps null elements",
			filter: model.NewNegativeAttributeFilter(regionLabel, "East"),
			want:   []string{"", "North", "West"},
		},
		{
			name:   "empty positive selects everything",
			filter: model.NewPositiveAttributeFilter(regionLabel),
			want:   []string{"", "East", "North", "West"},
		},
		{
			name:   "filter on another label",
			filter: model.NewPositiveAttributeFilter(customerLabel, "c3"),
			want:   []string{"West"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, tt.filter))

			_, page := executeAll(t, b, def)

			assert.Equal(t, tt.want, headerNames(page.Headers[0][0]))
		})
	}
}

func TestExecute_ElementURIOfOtherLabel(t *testing.T) {
	b, _ := newTestBackend(t)
	filter := model.PositiveAttributeFilter{DisplayForm: regionLabel, In: model.ElementURIs(ElementURI(customerURI, "c1"))}
	def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, filter))

	_, err := b.Execute(context.Background(), execution.Request{Definition: def})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong to label")
}

func TestExecute_DateFilters(t *testing.T) {
	t.Run("absolute", func(t *testing.T) {
		b, _ := newTestBackend(t)
		filter := model.AbsoluteDateFilter{DataSet: orderDate, From: "2024-01-01", To: "2024-01-31"}
		def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, filter))

		_, page := executeAll(t, b, def)

		assert.Equal(t, []string{"East", "West"}, headerNames(page.Headers[0][0]))
		assert.Equal(t, [][]string{{"100"}, {"30"}}, grid(page))
	})

	t.Run("relative months", func(t *testing.T) {
		b, _ := newTestBackend(t)
		filter := model.RelativeDateFilter{DataSet: orderDate, Granularity: model.GranularityMonth, From: -1, To: 0}
		def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, filter))

		_, page := executeAll(t, b, def)

		assert.Equal(t, []string{"", "East", "North", "West"}, headerNames(page.Headers[0][0]))
		assert.Equal(t, [][]string{{"7.5"}, {"50"}, {"20"}, {"null"}}, grid(page))
	})
}

func TestExecute_DateAttribute(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t, model.NewAttribute("d1", orderDate), sumAmount("m1"))
	def = mustDef(t)(model.WithFilters(def, model.NewPositiveAttributeFilter(regionLabel, "East")))

	resp, page := executeAll(t, b, def)

	assert.True(t, resp.Dimensions[0].Headers[0].Date)
	assert.Equal(t, "Order date", resp.Dimensions[0].Headers[0].Name)
	assert.Equal(t, []string{"2024-01-05", "2024-02-10"}, headerNames(page.Headers[0][0]))
}

func TestExecute_ConditionalMeasure(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t, region(), sumAmount("m1"), sumAmount("m2", model.NewPositiveAttributeFilter(customerLabel, "c1")))

	_, page := executeAll(t, b, def)

	assert.Equal(t, [][]string{
		{"7.5", "7.5"},
		{"150", "100"},
		{"20", "null"},
		{"30", "30"},
	}, grid(page))
}

func TestExecute_MeasureValueFilters(t *testing.T) {
	zero := decimal.Zero
	lastMonths := model.RelativeDateFilter{DataSet: orderDate, Granularity: model.GranularityMonth, From: -1, To: 0}

	tests := []struct {
		name    string
		filters []model.Filter
		want    []string
	}{
		{
			name:    "comparison",
			filters: []model.Filter{model.NewMeasureValueFilter("m1", model.GreaterThan, decimal.NewFromInt(25))},
			want:    []string{"East", "West"},
		},
		{
			name: "between",
			filters: []model.Filter{model.MeasureValueFilter{
				Measure:   model.LocalRef("m1"),
				Condition: model.RangeCondition{Operator: model.Between, From: decimal.NewFromInt(20), To: decimal.NewFromInt(30)},
			}},
			want: []string{"North", "West"},
		},
		{
			name: "not between",
			filters: []model.Filter{model.MeasureValueFilter{
				Measure:   model.LocalRef("m1"),
				Condition: model.RangeCondition{Operator: model.NotBetween, From: decimal.NewFromInt(20), To: decimal.NewFromInt(30)},
			}},
			want: []string{"", "East"},
		},
		{
			name:    "null values are dropped",
			filters: []model.Filter{lastMonths, model.NewMeasureValueFilter("m1", model.LessThan, decimal.NewFromInt(10))},
			want:    []string{""},
		},
		{
			name: "null values treated as zero",
			filters: []model.Filter{lastMonths, model.MeasureValueFilter{
				Measure:   model.LocalRef("m1"),
				Condition: model.ComparisonCondition{Operator: model.LessThan, Value: decimal.NewFromInt(10), TreatNullValuesAs: &zero},
			}},
			want: []string{"", "West"},
		},
		{
			name:    "without condition",
			filters: []model.Filter{model.MeasureValueFilter{Measure: model.LocalRef("m1")}},
			want:    []string{"", "East", "North", "West"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, tt.filters...))

			_, page := executeAll(t, b, def)

			assert.Equal(t, tt.want, headerNames(page.Headers[0][0]))
		})
	}
}

func TestExecute_RankingFilters(t *testing.T) {
	distinct := model.NewMeasure("m2", customerLabel, model.AggregationCount)

	tests := []struct {
		name   string
		filter model.Filter
		want   []string
	}{
		{
			name:   "top",
			filter: model.NewRankingFilter("m1", model.RankTop, 2),
			want:   []string{"East", "West"},
		},
		{
			name:   "bottom",
			filter: model.NewRankingFilter("m1", model.RankBottom, 1),
			want:   []string{""},
		},
		{
			name:   "ties are kept",
			filter: model.NewRankingFilter("m2", model.RankTop, 1),
			want:   []string{"East", "West"},
		},
		{
			name:   "scope of every attribute",
			filter: model.NewRankingFilter("m1", model.RankTop, 1, regionLabel),
			want:   []string{"East"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1"), distinct}, tt.filter))

			_, page := executeAll(t, b, def)

			assert.Equal(t, tt.want, headerNames(page.Headers[0][0]))
		})
	}
}

func TestExecute_RankingSubsetScope(t *testing.T) {
	b, _ := newTestBackend(t)
	filter := model.NewRankingFilter("m1", model.RankTop, 1, customerLabel)
	def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, filter))

	_, err := b.Execute(context.Background(), execution.Request{Definition: def})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "subset of the attributes")
}

func TestExecute_PostFilterOrderMatters(t *testing.T) {
	lessThan100 := model.NewMeasureValueFilter("m1", model.LessThan, decimal.NewFromInt(100))
	top1 := model.NewRankingFilter("m1", model.RankTop, 1)

	t.Run("filter then rank", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, lessThan100, top1))

		_, page := executeAll(t, b, def)

		assert.Equal(t, []string{"West"}, headerNames(page.Headers[0][0]))
	})

	t.Run("rank then filter", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")}, top1, lessThan100))

		resp, page := executeAll(t, b, def)

		assert.Equal(t, []int{0, 1}, resp.TotalCount)
		assert.Empty(t, page.Data)
		assert.Empty(t, page.Headers[0][0])
	})
}

func TestExecute_Sorting(t *testing.T) {
	tests := []struct {
		name  string
		sorts []model.SortItem
		want  []string
	}{
		{
			name:  "measure descending",
			sorts: []model.SortItem{model.NewMeasureSort("m1", model.SortDesc)},
			want:  []string{"East", "West", "North", ""},
		},
		{
			name:  "measure ascending",
			sorts: []model.SortItem{model.NewMeasureSort("m1", model.SortAsc)},
			want:  []string{"", "North", "West", "East"},
		},
		{
			name:  "attribute descending",
			sorts: []model.SortItem{model.NewAttributeSort("a1", model.SortDesc)},
			want:  []string{"West", "North", "East", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			def := mustDef(t)(model.WithSorting(itemsDef(t, region(), sumAmount("m1")), tt.sorts...))

			_, page := executeAll(t, b, def)

			assert.Equal(t, tt.want, headerNames(page.Headers[0][0]))
		})
	}
}

func TestExecute_SortWithAttributeLocator(t *testing.T) {
	b, _ := newTestBackend(t)
	sort := model.NewMeasureSort("m1", model.SortDesc, model.AttributeLocator{AttributeIdentifier: "a1", Element: "East"})
	def := mustDef(t)(model.WithSorting(itemsDef(t, region(), sumAmount("m1")), sort))

	_, err := b.Execute(context.Background(), execution.Request{Definition: def})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribute locators are not supported")
}

func TestExecute_Layouts(t *testing.T) {
	t.Run("transposed", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := mustDef(t)(model.WithDimensions(itemsDef(t, region(), sumAmount("m1")),
			model.NewDimension(model.MeasureGroupIdentifier), model.NewDimension("a1")))

		resp, page := executeAll(t, b, def)

		assert.Equal(t, []int{1, 4}, resp.TotalCount)
		assert.Equal(t, [][]string{{"7.5", "150", "20", "30"}}, grid(page))
		assert.Equal(t, []string{"", "East", "North", "West"}, headerNames(page.Headers[1][0]))
	})

	t.Run("measures only", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := itemsDef(t, sumAmount("m1"))

		resp, page := executeAll(t, b, def)

		assert.Equal(t, []int{1, 1}, resp.TotalCount)
		assert.Empty(t, resp.Dimensions[0].Headers)
		assert.Equal(t, [][]string{{"207.5"}}, grid(page))
	})

	t.Run("measure group alone", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := mustDef(t)(model.WithDimensions(
			itemsDef(t, sumAmount("m1"), model.NewMeasure("m2", amountFact, model.AggregationCount)),
			model.NewDimension(model.MeasureGroupIdentifier)))

		resp, page := executeAll(t, b, def)

		assert.Equal(t, []int{2}, resp.TotalCount)
		assert.Equal(t, [][]string{{"207.5", "5"}}, grid(page))
	})

	t.Run("attributes only", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := itemsDef(t, region())

		resp, page := executeAll(t, b, def)

		assert.Equal(t, []int{4}, resp.TotalCount)
		assert.Nil(t, page.Data)
		assert.Equal(t, []string{"", "East", "North", "West"}, headerNames(page.Headers[0][0]))
	})

	t.Run("two attributes", func(t *testing.T) {
		b, _ := newTestBackend(t)
		def := itemsDef(t, region(), model.NewAttribute("a2", customerLabel), sumAmount("m1"))
		def = mustDef(t)(model.WithFilters(def, model.NewPositiveAttributeFilter(regionLabel, "West")))

		_, page := executeAll(t, b, def)

		assert.Equal(t, []string{"West", "West"}, headerNames(page.Headers[0][0]))
		assert.Equal(t, []string{"c1", "c3"}, headerNames(page.Headers[0][1]))
		assert.Equal(t, [][]string{{"30"}, {"null"}}, grid(page))
	})
}

func TestExecute_UnsupportedLayouts(t *testing.T) {
	base := func(t *testing.T) *model.Definition {
		return itemsDef(t, region(), model.NewAttribute("a2", customerLabel), sumAmount("m1"))
	}

	tests := []struct {
		name string
		dims []model.DimensionSpec
		want string
	}{
		{
			name: "pivot",
			dims: []model.DimensionSpec{model.NewDimension("a1"), model.NewDimension("a2", model.MeasureGroupIdentifier)},
			want: "mixes the measure group",
		},
		{
			name: "attributes in both dimensions",
			dims: []model.DimensionSpec{model.NewDimension("a1"), model.NewDimension("a2")},
			want: "more than one dimension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			def, err := model.WithDimensions(base(t), tt.dims...)
			if err != nil {
				// Rejected by the definition itself.
				return
			}

			_, err = b.Execute(context.Background(), execution.Request{Definition: def})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExecute_Totals(t *testing.T) {
	b, _ := newTestBackend(t)
	dim := model.NewDimension("a1")
	dim.Totals = []model.Total{
		model.NewTotal(model.TotalSum, "m1", "a1"),
		model.NewTotal(model.TotalAvg, "m1", "a1"),
		model.NewTotal(model.TotalMax, "m1", "a1"),
		model.NewTotal(model.TotalMin, "m1", "a1"),
		model.NewTotal(model.TotalMed, "m1", "a1"),
		model.NewTotal(model.TotalSum, "m2", "a1"),
		model.NewTotal(model.TotalNat, "m2", "a1"),
	}
	def := itemsDef(t, region(), sumAmount("m1"), model.NewMeasure("m2", customerLabel, model.AggregationCount))
	def = mustDef(t)(model.WithDimensions(def, dim, model.NewDimension(model.MeasureGroupIdentifier)))

	_, page := executeAll(t, b, def)

	totals := page.Totals[0]
	require.Len(t, totals, 6)
	types := make([]model.TotalType, len(totals))
	for i, row := range totals {
		types[i] = row.Type
	}
	assert.Equal(t, []model.TotalType{
		model.TotalSum, model.TotalAvg, model.TotalMax, model.TotalMin, model.TotalMed, model.TotalNat,
	}, types)

	assert.Equal(t, []string{"207.5", "6"}, nullStrings(totals[0].Values))
	assert.Equal(t, []string{"51.875", "null"}, nullStrings(totals[1].Values))
	assert.Equal(t, []string{"150", "null"}, nullStrings(totals[2].Values))
	assert.Equal(t, []string{"7.5", "null"}, nullStrings(totals[3].Values))
	assert.Equal(t, []string{"25", "null"}, nullStrings(totals[4].Values))
	// Distinct customers over all rows, not the sum of the groups.
	assert.Equal(t, []string{"null", "3"}, nullStrings(totals[5].Values))
	assert.Empty(t, page.Totals[1])
}

func TestExecute_BucketTotals(t *testing.T) {
	b, _ := newTestBackend(t)
	def := mustDef(t)(model.NewDefForBuckets("ws1", []model.Bucket{
		model.NewBucket("measures", sumAmount("m1")),
		{LocalID: "view", Items: []model.BucketItem{region()}, Totals: []model.Total{model.NewTotal(model.TotalSum, "m1", "a1")}},
	}))

	_, page := executeAll(t, b, def)

	require.Len(t, page.Totals[0], 1)
	assert.Equal(t, []string{"207.5"}, nullStrings(page.Totals[0][0].Values))
}

func TestExecute_TotalErrors(t *testing.T) {
	t.Run("subtotal", func(t *testing.T) {
		b, _ := newTestBackend(t)
		dim := model.NewDimension("a1", "a2")
		dim.Totals = []model.Total{model.NewTotal(model.TotalSum, "m1", "a2")}
		def := itemsDef(t, region(), model.NewAttribute("a2", customerLabel), sumAmount("m1"))
		def = mustDef(t)(model.WithDimensions(def, dim, model.NewDimension(model.MeasureGroupIdentifier)))

		_, err := b.Execute(context.Background(), execution.Request{Definition: def})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "only grand totals")
	})

	t.Run("native with measure value filter", func(t *testing.T) {
		b, _ := newTestBackend(t)
		dim := model.NewDimension("a1")
		dim.Totals = []model.Total{model.NewTotal(model.TotalNat, "m1", "a1")}
		def := mustDef(t)(model.NewDefForItems("ws1", []model.BucketItem{region(), sumAmount("m1")},
			model.NewMeasureValueFilter("m1", model.GreaterThan, decimal.Zero)))
		def = mustDef(t)(model.WithDimensions(def, dim, model.NewDimension(model.MeasureGroupIdentifier)))

		_, err := b.Execute(context.Background(), execution.Request{Definition: def})

		require.Error(t, err)
		assert.True(t, errors.Is(err, errNativeWithPostFilters))
	})
}

func TestExecute_CatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		item model.BucketItem
		want string
	}{
		{
			name: "unknown label",
			item: model.NewAttribute("a1", model.IDRef("label.nope", model.ObjectTypeDisplayForm)),
			want: "unknown catalog object",
		},
		{
			name: "fact used as attribute",
			item: model.NewAttribute("a1", amountFact),
			want: "is a fact",
		},
		{
			name: "unknown fact by uri",
			item: model.NewMeasure("m1", model.URI("/gdc/md/ws1/obj/999"), model.AggregationSum),
			want: "unknown catalog object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBackend(t)
			def := itemsDef(t, tt.item)

			_, err := b.Execute(context.Background(), execution.Request{Definition: def})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExecute_UnknownWorkspace(t *testing.T) {
	b, _ := newTestBackend(t)
	def := mustDef(t)(model.NewDefForItems("ws2", []model.BucketItem{sumAmount("m1")}))

	_, err := b.Execute(context.Background(), execution.Request{Definition: def})

	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestExecute_NilDefinition(t *testing.T) {
	b, _ := newTestBackend(t)

	_, err := b.Execute(context.Background(), execution.Request{})

	assert.Error(t, err)
}

func TestExecute_AppendsExecutionLog(t *testing.T) {
	b, st := newTestBackend(t, WithIDGenerator(NewFixedGenerator("r1", "r2")))
	ctx := context.Background()
	def := itemsDef(t, region(), sumAmount("m1"))

	first, err := b.Execute(ctx, execution.Request{Definition: def})
	require.NoError(t, err)
	second, err := b.Execute(ctx, execution.Request{Definition: def})
	require.NoError(t, err)
	assert.Equal(t, "r1", first.ResultID)
	assert.Equal(t, "r2", second.ResultID)

	records, err := st.ReadExecutions(ctx, "ws1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ResultID)
	assert.Equal(t, model.Fingerprint(def), records[0].Fingerprint)
	assert.Equal(t, 4, records[0].RowCount)
	assert.Equal(t, 1, records[0].ColumnCount)
	assert.True(t, records[0].ExecutedAt.Equal(marchNow))
	assert.Less(t, records[0].Seq, records[1].Seq)
}

func TestReadPage_Windows(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	def := itemsDef(t, region(), sumAmount("m1"), model.NewMeasure("m2", amountFact, model.AggregationCount))
	resp, err := b.Execute(ctx, execution.Request{Definition: def})
	require.NoError(t, err)

	page, err := b.ReadPage(ctx, "ws1", resp.ResultID, execution.Window{Offset: []int{1, 1}, Limit: []int{2, 5}})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 1}, page.Offset)
	assert.Equal(t, []int{2, 1}, page.Count)
	assert.Equal(t, [][]string{{"2"}, {"1"}}, grid(page))
	assert.Equal(t, []string{"East", "North"}, headerNames(page.Headers[0][0]))
	assert.Equal(t, []execution.ResultHeader{{Name: "Amount", MeasureIndex: 1}}, page.Headers[1][0])
}

func TestReadPage_Errors(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()
	resp, err := b.Execute(ctx, execution.Request{Definition: itemsDef(t, region(), sumAmount("m1"))})
	require.NoError(t, err)
	full := execution.Window{Offset: []int{0, 0}, Limit: []int{4, 1}}

	_, err = b.ReadPage(ctx, "ws1", "nope", full)
	assert.True(t, errors.Is(err, execution.ErrResultNotFound))

	_, err = b.ReadPage(ctx, "ws2", resp.ResultID, full)
	assert.True(t, errors.Is(err, execution.ErrResultNotFound))

	_, err = b.ReadPage(ctx, "ws1", resp.ResultID, execution.Window{Offset: []int{0}, Limit: []int{1}})
	assert.Error(t, err)

	_, err = b.ReadPage(ctx, "ws1", resp.ResultID, execution.Window{Offset: []int{-1, 0}, Limit: []int{1, 1}})
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.ReadPage(cancelled, "ws1", resp.ResultID, full)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadPage_Eviction(t *testing.T) {
	b, _ := newTestBackend(t, WithMaxResults(1))
	ctx := context.Background()
	def := itemsDef(t, region(), sumAmount("m1"))
	full := execution.Window{Offset: []int{0, 0}, Limit: []int{4, 1}}

	first, err := b.Execute(ctx, execution.Request{Definition: def})
	require.NoError(t, err)
	second, err := b.Execute(ctx, execution.Request{Definition: def})
	require.NoError(t, err)

	_, err = b.ReadPage(ctx, "ws1", first.ResultID, full)
	assert.True(t, errors.Is(err, execution.ErrResultNotFound))
	_, err = b.ReadPage(ctx, "ws1", second.ResultID, full)
	assert.NoError(t, err)
	assert.Equal(t, 1, b.results.len())
}

func TestResolveReferenceToURI(t *testing.T) {
	b, st := newTestBackend(t)
	ctx := context.Background()
	saveInsight(t, st, salesInsightDoc())

	tests := []struct {
		name    string
		ref     model.Ref
		want    string
		missing bool
	}{
		{name: "insight identifier", ref: model.IDRef("insight.sales", model.ObjectTypeInsight), want: insightURI},
		{name: "untyped identifier", ref: model.IDRef("insight.sales", ""), want: insightURI},
		{name: "catalog identifier", ref: regionLabel, want: regionURI},
		{name: "untyped catalog identifier", ref: model.IDRef("label.region", ""), want: regionURI},
		{name: "uri", ref: model.URI("/gdc/md/ws1/obj/42"), want: "/gdc/md/ws1/obj/42"},
		{name: "unknown insight", ref: model.IDRef("insight.nope", model.ObjectTypeInsight), missing: true},
		{name: "unknown object", ref: model.IDRef("label.nope", ""), missing: true},
		{name: "local reference", ref: model.LocalRef("m1"), missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uri, err := b.ResolveReferenceToURI(ctx, tt.ref, "ws1")
			if tt.missing {
				assert.True(t, errors.Is(err, execution.ErrReferenceNotFound), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, uri)
		})
	}
}

func TestLoadInsight(t *testing.T) {
	b, st := newTestBackend(t)
	ctx := context.Background()
	saveInsight(t, st, salesInsightDoc())

	byID, err := b.LoadInsight(ctx, "ws1", model.IDRef("insight.sales", model.ObjectTypeInsight))
	require.NoError(t, err)
	byURI, err := b.LoadInsight(ctx, "ws1", model.URI(insightURI))
	require.NoError(t, err)

	assert.Equal(t, "Sales by region", byID.Title)
	assert.Equal(t, model.IDRef("insight.sales", model.ObjectTypeInsight), byURI.Ref)
	assert.Len(t, byID.Buckets, 2)
	assert.Equal(t, []model.SortItem{model.NewAttributeSort("a1", model.SortDesc)}, byURI.Sorts)

	_, err = b.LoadInsight(ctx, "ws2", model.URI(insightURI))
	assert.True(t, errors.Is(err, execution.ErrReferenceNotFound))
	_, err = b.LoadInsight(ctx, "ws1", model.LocalRef("x"))
	assert.True(t, errors.Is(err, execution.ErrReferenceNotFound))
}

func TestExecute_ByReference(t *testing.T) {
	b, st := newTestBackend(t, WithIDGenerator(NewFixedGenerator("r1")))
	ctx := context.Background()
	saveInsight(t, st, salesInsightDoc())

	insight, err := b.LoadInsight(ctx, "ws1", model.URI(insightURI))
	require.NoError(t, err)
	extra := model.NewNegativeAttributeFilter(regionLabel, "North")
	def := mustDef(t)(model.NewDefForInsight("ws1", insight, extra))

	resp, err := b.Execute(ctx, execution.Request{Definition: def, Reference: insightURI, Filters: []model.Filter{extra}})
	require.NoError(t, err)

	page, err := b.ReadPage(ctx, "ws1", resp.ResultID, execution.Window{Offset: []int{0, 0}, Limit: []int{10, 10}})
	require.NoError(t, err)
	assert.Equal(t, []string{"West", "East", ""}, headerNames(page.Headers[0][0]))

	records, err := st.ReadExecutions(ctx, "ws1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, insightURI, records[0].Reference)
	assert.Equal(t, model.Fingerprint(def), records[0].Fingerprint)
}

func TestExecute_ByReferenceTakesResultSpecFromRequest(t *testing.T) {
	b, st := newTestBackend(t)
	ctx := context.Background()
	saveInsight(t, st, salesInsightDoc())

	insight, err := b.LoadInsight(ctx, "ws1", model.URI(insightURI))
	require.NoError(t, err)
	def := mustDef(t)(model.NewDefForInsight("ws1", insight))
	def = mustDef(t)(model.WithSorting(def, model.NewMeasureSort("m1", model.SortDesc)))

	resp, err := b.Execute(ctx, execution.Request{Definition: def, Reference: insightURI})
	require.NoError(t, err)

	page, err := b.ReadPage(ctx, "ws1", resp.ResultID, execution.Window{Offset: []int{0, 0}, Limit: []int{10, 10}})
	require.NoError(t, err)
	assert.Equal(t, []string{"East", "West", "North", ""}, headerNames(page.Headers[0][0]))
}

func TestExecute_ByReferenceUnknownInsight(t *testing.T) {
	b, _ := newTestBackend(t)
	def := itemsDef(t, region(), sumAmount("m1"))

	_, err := b.Execute(context.Background(), execution.Request{Definition: def, Reference: "/gdc/md/ws1/obj/404"})

	assert.True(t, errors.Is(err, execution.ErrReferenceNotFound))
}
