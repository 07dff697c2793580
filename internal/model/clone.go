package model

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Definitions own their data. Everything entering or leaving a Definition
// goes through these copies.

func cloneAttributes(in []Attribute) []Attribute {
	return slices.Clone(in)
}

func cloneMeasure(m Measure) Measure {
	switch d := m.Definition.(type) {
	case SimpleMeasure:
		d.Filters = cloneFilters(d.Filters)
		m.Definition = d
	case ArithmeticMeasure:
		d.MeasureIdentifiers = slices.Clone(d.MeasureIdentifiers)
		m.Definition = d
	}
	return m
}

func cloneMeasures(in []Measure) []Measure {
	if in == nil {
		return nil
	}
	out := make([]Measure, len(in))
	for i, m := range in {
		out[i] = cloneMeasure(m)
	}
	return out
}

func cloneBucketItem(item BucketItem) BucketItem {
	if m, ok := item.(Measure); ok {
		return cloneMeasure(m)
	}
	return item
}

func cloneBuckets(in []Bucket) []Bucket {
	if in == nil {
		return nil
	}
	out := make([]Bucket, len(in))
	for i, b := range in {
		items := make([]BucketItem, len(b.Items))
		for j, item := range b.Items {
			items[j] = cloneBucketItem(item)
		}
		out[i] = Bucket{LocalID: b.LocalID, Items: items, Totals: cloneTotals(b.Totals)}
	}
	return out
}

func cloneDecimalPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneFilter(f Filter) Filter {
	switch x := f.(type) {
	case PositiveAttributeFilter:
		x.In.Items = slices.Clone(x.In.Items)
		return x
	case NegativeAttributeFilter:
		x.NotIn.Items = slices.Clone(x.NotIn.Items)
		return x
	case MeasureValueFilter:
		switch c := x.Condition.(type) {
		case ComparisonCondition:
			c.TreatNullValuesAs = cloneDecimalPtr(c.TreatNullValuesAs)
			x.Condition = c
		case RangeCondition:
			c.TreatNullValuesAs = cloneDecimalPtr(c.TreatNullValuesAs)
			x.Condition = c
		}
		return x
	case RankingFilter:
		x.Attributes = slices.Clone(x.Attributes)
		return x
	}
	return f
}

func cloneFilters(in []Filter) []Filter {
	if in == nil {
		return nil
	}
	out := make([]Filter, len(in))
	for i, f := range in {
		out[i] = cloneFilter(f)
	}
	return out
}

func cloneSorts(in []SortItem) []SortItem {
	if in == nil {
		return nil
	}
	out := make([]SortItem, len(in))
	for i, s := range in {
		if ms, ok := s.(MeasureSort); ok {
			ms.Locators = slices.Clone(ms.Locators)
			s = ms
		}
		out[i] = s
	}
	return out
}

func cloneTotals(in []Total) []Total {
	return slices.Clone(in)
}

func cloneDimensions(in []Dimension) []Dimension {
	if in == nil {
		return nil
	}
	out := make([]Dimension, len(in))
	for i, d := range in {
		out[i] = Dimension{
			ItemIdentifiers: slices.Clone(d.ItemIdentifiers),
			Totals:          cloneTotals(d.Totals),
		}
	}
	return out
}
