package model

import "slices"

// MeasureGroupIdentifier is the reserved dimension item standing for all
// measures of a definition.
const MeasureGroupIdentifier = "measureGroup"

// TotalType is the aggregation of a total.
type TotalType string

const (
	TotalSum TotalType = "sum"
	TotalAvg TotalType = "avg"
	TotalMax TotalType = "max"
	TotalMin TotalType = "min"
	TotalMed TotalType = "med"
	TotalNat TotalType = "nat"
)

// Valid reports whether t is a known total type.
func (t TotalType) Valid() bool {
	switch t {
	case TotalSum, TotalAvg, TotalMax, TotalMin, TotalMed, TotalNat:
		return true
	}
	return false
}

// Total aggregates one measure across the values of an attribute.
type Total struct {
	Type                TotalType
	MeasureIdentifier   string
	AttributeIdentifier string
}

// NewTotal creates a total.
func NewTotal(typ TotalType, measureLocalID, attributeLocalID string) Total {
	return Total{Type: typ, MeasureIdentifier: measureLocalID, AttributeIdentifier: attributeLocalID}
}

// DimensionSpec is accepted by WithDimensions: either a Dimension or a
// DimensionGenerator.
type DimensionSpec interface {
	dimensionSpec()
}

// Dimension lists the items sliced into one response dimension, in order.
type Dimension struct {
	ItemIdentifiers []string
	Totals          []Total
}

func (Dimension) dimensionSpec() {}

// NewDimension creates a dimension with the given items.
func NewDimension(itemIdentifiers ...string) Dimension {
	return Dimension{ItemIdentifiers: itemIdentifiers}
}

// DimensionGenerator derives dimensions from a definition. Generators must
// be deterministic: equal definitions produce equal dimensions.
type DimensionGenerator func(def *Definition) []Dimension

func (DimensionGenerator) dimensionSpec() {}

// DefaultDimensions puts every attribute, in local identifier order, into
// the first dimension together with the bucket totals, and the measure group
// into the second dimension. A definition without measures gets the first
// dimension only. It reads only what the definition's identity covers.
func DefaultDimensions(def *Definition) []Dimension {
	return defaultDimensions(def.attributes, def.measures, def.buckets)
}

func defaultDimensions(attrs []Attribute, measures []Measure, buckets []Bucket) []Dimension {
	first := Dimension{ItemIdentifiers: make([]string, 0, len(attrs))}
	for _, a := range sortedAttributes(attrs) {
		first.ItemIdentifiers = append(first.ItemIdentifiers, a.LocalID)
	}
	first.Totals = bucketTotals(buckets)
	if len(measures) == 0 {
		return []Dimension{first}
	}
	return []Dimension{first, {ItemIdentifiers: []string{MeasureGroupIdentifier}}}
}

// bucketTotals collects the totals of all buckets as a set: sorted by type,
// measure and attribute, without duplicates.
func bucketTotals(buckets []Bucket) []Total {
	var out []Total
	for _, b := range buckets {
		out = append(out, cloneTotals(b.Totals)...)
	}
	slices.SortStableFunc(out, compareTotals)
	return slices.CompactFunc(out, totalEqual)
}

func compareTotals(a, b Total) int {
	if c := compareText(string(a.Type), string(b.Type)); c != 0 {
		return c
	}
	if c := compareText(a.MeasureIdentifier, b.MeasureIdentifier); c != 0 {
		return c
	}
	return compareText(a.AttributeIdentifier, b.AttributeIdentifier)
}

// HeaderCasing controls header text casing in data views.
type HeaderCasing string

const (
	CasingNone  HeaderCasing = ""
	CasingUpper HeaderCasing = "upper"
	CasingLower HeaderCasing = "lower"
)

// Valid reports whether c is a known casing.
func (c HeaderCasing) Valid() bool {
	return c == CasingNone || c == CasingUpper || c == CasingLower
}

// PostProcessing transforms result headers after execution. DateFormat is a
// Go time layout applied to date attribute headers.
type PostProcessing struct {
	DateFormat   string
	HeaderCasing HeaderCasing
}

// IsZero reports whether pp changes nothing.
func (pp PostProcessing) IsZero() bool {
	return pp.DateFormat == "" && pp.HeaderCasing == CasingNone
}
