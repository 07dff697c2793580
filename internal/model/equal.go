package model

import "github.com/shopspring/decimal"

// Equal reports whether a and b describe the same execution. It walks both
// trees directly and never serializes; Equal(a, b) holds exactly when
// Fingerprint(a) == Fingerprint(b).
func Equal(a, b *Definition) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return textEqual(a.workspace, b.workspace) &&
		listEqual(sortedAttributes(a.attributes), sortedAttributes(b.attributes), attributeEqual) &&
		listEqual(sortedMeasures(a.measures), sortedMeasures(b.measures), measureEqual) &&
		listEqual(bucketTotals(a.buckets), bucketTotals(b.buckets), totalEqual) &&
		listEqual(a.filters, b.filters, filterEqual) &&
		listEqual(a.sortBy, b.sortBy, sortEqual) &&
		listEqual(a.dimensions, b.dimensions, dimensionEqual) &&
		postProcessingEqual(a.postProcessing, b.postProcessing)
}

func listEqual[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}

func attributeEqual(a, b Attribute) bool {
	return textEqual(a.LocalID, b.LocalID) &&
		refEqual(a.DisplayForm, b.DisplayForm) &&
		textEqual(a.Alias, b.Alias)
}

func measureEqual(a, b Measure) bool {
	if !textEqual(a.LocalID, b.LocalID) || !textEqual(a.Title, b.Title) ||
		!textEqual(a.Alias, b.Alias) || !textEqual(a.Format, b.Format) {
		return false
	}
	switch x := a.Definition.(type) {
	case SimpleMeasure:
		y, ok := b.Definition.(SimpleMeasure)
		return ok && refEqual(x.Item, y.Item) &&
			x.Aggregation == y.Aggregation &&
			listEqual(x.Filters, y.Filters, filterEqual)
	case ArithmeticMeasure:
		y, ok := b.Definition.(ArithmeticMeasure)
		return ok && x.Operator == y.Operator &&
			listEqual(x.MeasureIdentifiers, y.MeasureIdentifiers, textEqual)
	}
	return false
}

func elementsEqual(a, b AttributeElements) bool {
	return a.ByURI == b.ByURI &&
		listEqual(normalizeElements(a.Items), normalizeElements(b.Items), textEqual)
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func conditionEqual(a, b MeasureValueCondition) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case ComparisonCondition:
		y, ok := b.(ComparisonCondition)
		return ok && x.Operator == y.Operator && x.Value.Equal(y.Value) &&
			decimalPtrEqual(x.TreatNullValuesAs, y.TreatNullValuesAs)
	case RangeCondition:
		y, ok := b.(RangeCondition)
		return ok && x.Operator == y.Operator && x.From.Equal(y.From) && x.To.Equal(y.To) &&
			decimalPtrEqual(x.TreatNullValuesAs, y.TreatNullValuesAs)
	}
	return false
}

func filterEqual(a, b Filter) bool {
	switch x := a.(type) {
	case PositiveAttributeFilter:
		y, ok := b.(PositiveAttributeFilter)
		return ok && refEqual(x.DisplayForm, y.DisplayForm) && elementsEqual(x.In, y.In)
	case NegativeAttributeFilter:
		y, ok := b.(NegativeAttributeFilter)
		return ok && refEqual(x.DisplayForm, y.DisplayForm) && elementsEqual(x.NotIn, y.NotIn)
	case AbsoluteDateFilter:
		y, ok := b.(AbsoluteDateFilter)
		return ok && refEqual(x.DataSet, y.DataSet) && x.From == y.From && x.To == y.To
	case RelativeDateFilter:
		y, ok := b.(RelativeDateFilter)
		return ok && refEqual(x.DataSet, y.DataSet) && x.Granularity == y.Granularity &&
			x.From == y.From && x.To == y.To
	case MeasureValueFilter:
		y, ok := b.(MeasureValueFilter)
		return ok && refEqual(x.Measure, y.Measure) && conditionEqual(x.Condition, y.Condition)
	case RankingFilter:
		y, ok := b.(RankingFilter)
		return ok && refEqual(x.Measure, y.Measure) && x.Operator == y.Operator &&
			x.Value == y.Value &&
			listEqual(normalizeRefSet(x.Attributes), normalizeRefSet(y.Attributes), refEqual)
	}
	return false
}

func locatorEqual(a, b Locator) bool {
	switch x := a.(type) {
	case AttributeLocator:
		y, ok := b.(AttributeLocator)
		return ok && textEqual(x.AttributeIdentifier, y.AttributeIdentifier) &&
			textEqual(x.Element, y.Element)
	case MeasureLocator:
		y, ok := b.(MeasureLocator)
		return ok && textEqual(x.MeasureIdentifier, y.MeasureIdentifier)
	}
	return false
}

func sortEqual(a, b SortItem) bool {
	switch x := a.(type) {
	case AttributeSort:
		y, ok := b.(AttributeSort)
		return ok && textEqual(x.AttributeIdentifier, y.AttributeIdentifier) && x.Direction == y.Direction
	case MeasureSort:
		y, ok := b.(MeasureSort)
		return ok && x.Direction == y.Direction && listEqual(x.Locators, y.Locators, locatorEqual)
	}
	return false
}

func totalEqual(a, b Total) bool {
	return a.Type == b.Type &&
		textEqual(a.MeasureIdentifier, b.MeasureIdentifier) &&
		textEqual(a.AttributeIdentifier, b.AttributeIdentifier)
}

func dimensionEqual(a, b Dimension) bool {
	return listEqual(a.ItemIdentifiers, b.ItemIdentifiers, textEqual) &&
		listEqual(a.Totals, b.Totals, totalEqual)
}

func postProcessingEqual(a, b *PostProcessing) bool {
	var x, y PostProcessing
	if a != nil {
		x = *a
	}
	if b != nil {
		y = *b
	}
	return textEqual(x.DateFormat, y.DateFormat) && x.HeaderCasing == y.HeaderCasing
}
