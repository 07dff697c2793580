package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/ir"
)

// Fingerprint returns the canonical identity of def: the canonical JSON of
// its normalized tree. Equal definitions, and only those, share a
// fingerprint.
func Fingerprint(def *Definition) string {
	b, err := ir.MarshalCanonical(Canonical(def))
	if err != nil {
		// Validation rejects text the canonical encoding cannot hold.
		panic(fmt.Sprintf("model: canonical definition did not marshal: %v", err))
	}
	return string(b)
}

// Canonical returns the normalized tree that Fingerprint serializes.
func Canonical(def *Definition) ir.IRObject {
	obj := ir.IRObject{"workspace": ir.IRString(def.workspace)}

	attrs := sortedAttributes(def.attributes)
	list := make(ir.IRArray, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, canonicalAttribute(a))
	}
	obj.SetArray("attributes", list)

	measures := sortedMeasures(def.measures)
	list = make(ir.IRArray, 0, len(measures))
	for _, m := range measures {
		list = append(list, canonicalMeasure(m))
	}
	obj.SetArray("measures", list)

	obj.SetArray("bucketTotals", canonicalTotals(bucketTotals(def.buckets)))

	obj.SetArray("filters", canonicalFilters(def.filters))

	list = make(ir.IRArray, 0, len(def.sortBy))
	for _, s := range def.sortBy {
		list = append(list, canonicalSort(s))
	}
	obj.SetArray("sortBy", list)

	list = make(ir.IRArray, 0, len(def.dimensions))
	for _, d := range def.dimensions {
		list = append(list, canonicalDimension(d))
	}
	obj.SetArray("dimensions", list)

	if pp := def.postProcessing; pp != nil && !pp.IsZero() {
		p := ir.IRObject{}
		p.SetString("dateFormat", pp.DateFormat)
		p.SetString("headerCasing", string(pp.HeaderCasing))
		obj["postProcessing"] = p
	}
	return obj
}

func tagged(tag string, body ir.IRValue) ir.IRObject {
	return ir.IRObject{tag: body}
}

func canonicalRef(r Ref) ir.IRObject {
	obj := ir.IRObject{}
	switch x := r.(type) {
	case IdentifierRef:
		obj["identifier"] = ir.IRString(x.Identifier)
		obj.SetString("type", string(x.Type))
	case URIRef:
		obj["uri"] = ir.IRString(x.URI)
	case LocalIDRef:
		obj["localIdentifier"] = ir.IRString(x.LocalID)
	}
	return obj
}

func canonicalAttribute(a Attribute) ir.IRObject {
	obj := ir.IRObject{
		"localIdentifier": ir.IRString(a.LocalID),
		"displayForm":     canonicalRef(a.DisplayForm),
	}
	obj.SetString("alias", a.Alias)
	return obj
}

func canonicalMeasure(m Measure) ir.IRObject {
	obj := ir.IRObject{"localIdentifier": ir.IRString(m.LocalID)}
	obj.SetString("title", m.Title)
	obj.SetString("alias", m.Alias)
	obj.SetString("format", m.Format)
	switch d := m.Definition.(type) {
	case SimpleMeasure:
		body := ir.IRObject{
			"item":        canonicalRef(d.Item),
			"aggregation": ir.IRString(d.Aggregation),
		}
		body.SetArray("filters", canonicalFilters(d.Filters))
		obj["definition"] = tagged("measure", body)
	case ArithmeticMeasure:
		obj["definition"] = tagged("arithmeticMeasure", ir.IRObject{
			"operator":           ir.IRString(d.Operator),
			"measureIdentifiers": ir.Strings(d.MeasureIdentifiers),
		})
	}
	return obj
}

func canonicalFilters(filters []Filter) ir.IRArray {
	out := make(ir.IRArray, 0, len(filters))
	for _, f := range filters {
		out = append(out, canonicalFilter(f))
	}
	return out
}

func canonicalElements(e AttributeElements) ir.IRObject {
	key := "values"
	if e.ByURI {
		key = "uris"
	}
	return ir.IRObject{key: ir.Strings(normalizeElements(e.Items))}
}

func canonicalDecimal(d decimal.Decimal) ir.IRString {
	return ir.IRString(d.String())
}

func canonicalFilter(f Filter) ir.IRObject {
	switch x := f.(type) {
	case PositiveAttributeFilter:
		return tagged("positiveAttributeFilter", ir.IRObject{
			"displayForm": canonicalRef(x.DisplayForm),
			"in":          canonicalElements(x.In),
		})
	case NegativeAttributeFilter:
		return tagged("negativeAttributeFilter", ir.IRObject{
			"displayForm": canonicalRef(x.DisplayForm),
			"notIn":       canonicalElements(x.NotIn),
		})
	case AbsoluteDateFilter:
		return tagged("absoluteDateFilter", ir.IRObject{
			"dataSet": canonicalRef(x.DataSet),
			"from":    ir.IRString(x.From),
			"to":      ir.IRString(x.To),
		})
	case RelativeDateFilter:
		return tagged("relativeDateFilter", ir.IRObject{
			"dataSet":     canonicalRef(x.DataSet),
			"granularity": ir.IRString(x.Granularity),
			"from":        ir.IRInt(x.From),
			"to":          ir.IRInt(x.To),
		})
	case MeasureValueFilter:
		body := ir.IRObject{"measure": canonicalRef(x.Measure)}
		switch c := x.Condition.(type) {
		case ComparisonCondition:
			cond := ir.IRObject{
				"operator": ir.IRString(c.Operator),
				"value":    canonicalDecimal(c.Value),
			}
			if c.TreatNullValuesAs != nil {
				cond["treatNullValuesAs"] = canonicalDecimal(*c.TreatNullValuesAs)
			}
			body["condition"] = tagged("comparison", cond)
		case RangeCondition:
			cond := ir.IRObject{
				"operator": ir.IRString(c.Operator),
				"from":     canonicalDecimal(c.From),
				"to":       canonicalDecimal(c.To),
			}
			if c.TreatNullValuesAs != nil {
				cond["treatNullValuesAs"] = canonicalDecimal(*c.TreatNullValuesAs)
			}
			body["condition"] = tagged("range", cond)
		}
		return tagged("measureValueFilter", body)
	case RankingFilter:
		body := ir.IRObject{
			"measure":  canonicalRef(x.Measure),
			"operator": ir.IRString(x.Operator),
			"value":    ir.IRInt(x.Value),
		}
		attrs := make(ir.IRArray, 0, len(x.Attributes))
		for _, a := range normalizeRefSet(x.Attributes) {
			attrs = append(attrs, canonicalRef(a))
		}
		body.SetArray("attributes", attrs)
		return tagged("rankingFilter", body)
	}
	return ir.IRObject{}
}

func canonicalSort(s SortItem) ir.IRObject {
	switch x := s.(type) {
	case AttributeSort:
		return tagged("attributeSortItem", ir.IRObject{
			"attributeIdentifier": ir.IRString(x.AttributeIdentifier),
			"direction":           ir.IRString(x.Direction),
		})
	case MeasureSort:
		locators := make(ir.IRArray, 0, len(x.Locators))
		for _, l := range x.Locators {
			switch ll := l.(type) {
			case AttributeLocator:
				locators = append(locators, tagged("attributeLocatorItem", ir.IRObject{
					"attributeIdentifier": ir.IRString(ll.AttributeIdentifier),
					"element":             ir.IRString(ll.Element),
				}))
			case MeasureLocator:
				locators = append(locators, tagged("measureLocatorItem", ir.IRObject{
					"measureIdentifier": ir.IRString(ll.MeasureIdentifier),
				}))
			}
		}
		return tagged("measureSortItem", ir.IRObject{
			"direction": ir.IRString(x.Direction),
			"locators":  locators,
		})
	}
	return ir.IRObject{}
}

func canonicalTotals(in []Total) ir.IRArray {
	totals := make(ir.IRArray, 0, len(in))
	for _, t := range in {
		totals = append(totals, ir.IRObject{
			"type":                ir.IRString(t.Type),
			"measureIdentifier":   ir.IRString(t.MeasureIdentifier),
			"attributeIdentifier": ir.IRString(t.AttributeIdentifier),
		})
	}
	return totals
}

func canonicalDimension(d Dimension) ir.IRObject {
	obj := ir.IRObject{"itemIdentifiers": ir.Strings(d.ItemIdentifiers)}
	obj.SetArray("totals", canonicalTotals(d.Totals))
	return obj
}
