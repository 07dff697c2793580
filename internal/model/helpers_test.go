package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	regionLabel = IDRef("label.region", ObjectTypeDisplayForm)
	cityLabel   = IDRef("label.city", ObjectTypeDisplayForm)
	amountFact  = IDRef("fact.amount", ObjectTypeFact)
	qtyFact     = IDRef("fact.quantity", ObjectTypeFact)
	orderDate   = IDRef("dataset.orderdate", ObjectTypeDataSet)
)

// exampleDef builds ws1 / m1 / a1 with a positive filter on a1 and an
// ascending sort on a1.
func exampleDef(t *testing.T) *Definition {
	t.Helper()
	def, err := NewDefForItems("ws1",
		[]BucketItem{
			NewAttribute("a1", regionLabel),
			NewMeasure("m1", amountFact, AggregationSum),
		},
		NewPositiveAttributeFilter(LocalRef("a1"), "v2", "v1"),
	)
	require.NoError(t, err)
	def, err = WithSorting(def, NewAttributeSort("a1", SortAsc))
	require.NoError(t, err)
	return def
}

// mustDef returns a function that unwraps a (definition, error) pair,
// failing the test on error: mustDef(t)(WithSorting(def, ...)).
func mustDef(t *testing.T) func(*Definition, error) *Definition {
	return func(def *Definition, err error) *Definition {
		t.Helper()
		require.NoError(t, err)
		require.NotNil(t, def)
		return def
	}
}
