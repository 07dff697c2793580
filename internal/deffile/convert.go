package deffile

import (
	"fmt"

	"github.com/roach88/execdef/internal/model"
)

// Definition builds the model definition described by d. Documents that
// reference an insight have no definition of their own; use Preparation.
func (d *Document) Definition() (*model.Definition, error) {
	if d.Insight != nil {
		return nil, docErr("insight", "document references an insight; use Preparation")
	}
	buckets, err := convertBuckets("buckets", d.Buckets)
	if err != nil {
		return nil, err
	}
	filters, err := convertFilters("filters", d.Filters)
	if err != nil {
		return nil, err
	}
	def, err := model.NewDefForBuckets(d.Workspace, buckets, filters...)
	if err != nil {
		return nil, err
	}

	if len(d.SortBy) > 0 {
		sorts, err := convertSorts("sortBy", d.SortBy)
		if err != nil {
			return nil, err
		}
		if def, err = model.WithSorting(def, sorts...); err != nil {
			return nil, err
		}
	}
	if len(d.Dimensions) > 0 {
		specs := make([]model.DimensionSpec, len(d.Dimensions))
		for i, dim := range d.Dimensions {
			specs[i] = model.Dimension{
				ItemIdentifiers: append([]string(nil), dim.ItemIdentifiers...),
				Totals:          convertTotals(dim.Totals),
			}
		}
		if def, err = model.WithDimensions(def, specs...); err != nil {
			return nil, err
		}
	}
	if d.PostProcessing != nil {
		pp := &model.PostProcessing{
			DateFormat:   d.PostProcessing.DateFormat,
			HeaderCasing: model.HeaderCasing(d.PostProcessing.HeaderCasing),
		}
		if def, err = model.WithPostProcessing(def, pp); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// Preparation returns an Unresolved preparation for insight documents and
// a Resolved one otherwise.
func (d *Document) Preparation() (model.Preparation, error) {
	if d.Insight == nil {
		def, err := d.Definition()
		if err != nil {
			return nil, err
		}
		return model.Resolved{Definition: def}, nil
	}
	if len(d.Buckets) > 0 || len(d.Filters) > 0 || len(d.SortBy) > 0 || len(d.Dimensions) > 0 || d.PostProcessing != nil {
		return nil, docErr("insight", "an insight reference cannot be combined with buckets, filters, sorts, dimensions or post-processing")
	}
	ref, err := convertRef("insight.ref", d.Insight.Ref)
	if err != nil {
		return nil, err
	}
	filters, err := convertFilters("insight.filters", d.Insight.Filters)
	if err != nil {
		return nil, err
	}
	return model.Unresolved{Workspace: d.Workspace, Ref: ref, ExtraFilters: filters}, nil
}

// Insight builds the model insight described by d.
func (d *InsightDoc) Insight() (*model.Insight, error) {
	if d.Identifier == "" {
		return nil, docErr("identifier", "insight identifier is required")
	}
	buckets, err := convertBuckets("buckets", d.Buckets)
	if err != nil {
		return nil, err
	}
	filters, err := convertFilters("filters", d.Filters)
	if err != nil {
		return nil, err
	}
	sorts, err := convertSorts("sortBy", d.SortBy)
	if err != nil {
		return nil, err
	}
	return &model.Insight{
		Ref:     model.IDRef(d.Identifier, model.ObjectTypeInsight),
		Title:   d.Title,
		Buckets: buckets,
		Filters: filters,
		Sorts:   sorts,
	}, nil
}

func convertRef(path string, r RefDoc) (model.Ref, error) {
	set := 0
	for _, s := range []string{r.Identifier, r.URI, r.LocalIdentifier} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, docErr(path, "reference needs exactly one of identifier, uri or localIdentifier")
	}
	switch {
	case r.Identifier != "":
		return model.IDRef(r.Identifier, model.ObjectType(r.Type)), nil
	case r.URI != "":
		return model.URI(r.URI), nil
	default:
		return model.LocalRef(r.LocalIdentifier), nil
	}
}

func convertBuckets(path string, docs []BucketDoc) ([]model.Bucket, error) {
	buckets := make([]model.Bucket, 0, len(docs))
	for i, b := range docs {
		bp := fmt.Sprintf("%s[%d]", path, i)
		bucket := model.Bucket{LocalID: b.LocalIdentifier, Totals: convertTotals(b.Totals)}
		for j, item := range b.Items {
			converted, err := convertItem(fmt.Sprintf("%s.items[%d]", bp, j), item)
			if err != nil {
				return nil, err
			}
			bucket.Items = append(bucket.Items, converted)
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

func convertItem(path string, item ItemDoc) (model.BucketItem, error) {
	switch {
	case item.Attribute != nil && item.Measure == nil && item.ArithmeticMeasure == nil:
		a := item.Attribute
		df, err := convertRef(path+".attribute.displayForm", a.DisplayForm)
		if err != nil {
			return nil, err
		}
		return model.Attribute{LocalID: a.LocalIdentifier, DisplayForm: df, Alias: a.Alias}, nil

	case item.Measure != nil && item.Attribute == nil && item.ArithmeticMeasure == nil:
		m := item.Measure
		ref, err := convertRef(path+".measure.item", m.Item)
		if err != nil {
			return nil, err
		}
		filters, err := convertFilters(path+".measure.filters", m.Filters)
		if err != nil {
			return nil, err
		}
		return model.Measure{
			LocalID: m.LocalIdentifier,
			Title:   m.Title,
			Alias:   m.Alias,
			Format:  m.Format,
			Definition: model.SimpleMeasure{
				Item:        ref,
				Aggregation: model.Aggregation(m.Aggregation),
				Filters:     filters,
			},
		}, nil

	case item.ArithmeticMeasure != nil && item.Attribute == nil && item.Measure == nil:
		m := item.ArithmeticMeasure
		return model.Measure{
			LocalID: m.LocalIdentifier,
			Title:   m.Title,
			Alias:   m.Alias,
			Format:  m.Format,
			Definition: model.ArithmeticMeasure{
				Operator:           model.ArithmeticOperator(m.Operator),
				MeasureIdentifiers: append([]string(nil), m.MeasureIdentifiers...),
			},
		}, nil
	}
	return nil, docErr(path, "item needs exactly one of attribute, measure or arithmeticMeasure")
}

func convertTotals(docs []TotalDoc) []model.Total {
	if len(docs) == 0 {
		return nil
	}
	totals := make([]model.Total, len(docs))
	for i, t := range docs {
		totals[i] = model.NewTotal(model.TotalType(t.Type), t.MeasureIdentifier, t.AttributeIdentifier)
	}
	return totals
}

func convertFilters(path string, docs []FilterDoc) ([]model.Filter, error) {
	filters := make([]model.Filter, 0, len(docs))
	for i, f := range docs {
		converted, err := convertFilter(fmt.Sprintf("%s[%d]", path, i), f)
		if err != nil {
			return nil, err
		}
		filters = append(filters, converted)
	}
	return filters, nil
}

func countSet(ptrs ...bool) int {
	n := 0
	for _, set := range ptrs {
		if set {
			n++
		}
	}
	return n
}

func convertFilter(path string, f FilterDoc) (model.Filter, error) {
	if countSet(
		f.PositiveAttributeFilter != nil,
		f.NegativeAttributeFilter != nil,
		f.AbsoluteDateFilter != nil,
		f.RelativeDateFilter != nil,
		f.MeasureValueFilter != nil,
		f.RankingFilter != nil,
	) != 1 {
		return nil, docErr(path, "filter needs exactly one filter kind")
	}

	switch {
	case f.PositiveAttributeFilter != nil:
		x := f.PositiveAttributeFilter
		p := path + ".positiveAttributeFilter"
		if len(x.NotIn) > 0 || len(x.NotInURIs) > 0 {
			return nil, docErr(p, "positive filter uses in or inUris")
		}
		df, elements, err := attributeFilter(p, x.DisplayForm, x.In, x.InURIs)
		if err != nil {
			return nil, err
		}
		return model.PositiveAttributeFilter{DisplayForm: df, In: elements}, nil

	case f.NegativeAttributeFilter != nil:
		x := f.NegativeAttributeFilter
		p := path + ".negativeAttributeFilter"
		if len(x.In) > 0 || len(x.InURIs) > 0 {
			return nil, docErr(p, "negative filter uses notIn or notInUris")
		}
		df, elements, err := attributeFilter(p, x.DisplayForm, x.NotIn, x.NotInURIs)
		if err != nil {
			return nil, err
		}
		return model.NegativeAttributeFilter{DisplayForm: df, NotIn: elements}, nil

	case f.AbsoluteDateFilter != nil:
		x := f.AbsoluteDateFilter
		ds, err := convertRef(path+".absoluteDateFilter.dataSet", x.DataSet)
		if err != nil {
			return nil, err
		}
		return model.AbsoluteDateFilter{DataSet: ds, From: x.From, To: x.To}, nil

	case f.RelativeDateFilter != nil:
		x := f.RelativeDateFilter
		ds, err := convertRef(path+".relativeDateFilter.dataSet", x.DataSet)
		if err != nil {
			return nil, err
		}
		return model.RelativeDateFilter{
			DataSet:     ds,
			Granularity: model.DateGranularity(x.Granularity),
			From:        x.From,
			To:          x.To,
		}, nil

	case f.MeasureValueFilter != nil:
		x := f.MeasureValueFilter
		p := path + ".measureValueFilter"
		measure, err := convertRef(p+".measure", x.Measure)
		if err != nil {
			return nil, err
		}
		switch {
		case x.Comparison != nil && x.Range == nil:
			c := x.Comparison
			return model.MeasureValueFilter{Measure: measure, Condition: model.ComparisonCondition{
				Operator:          model.ComparisonOperator(c.Operator),
				Value:             c.Value.Decimal(),
				TreatNullValuesAs: numberPtr(c.TreatNullValuesAs),
			}}, nil
		case x.Range != nil && x.Comparison == nil:
			r := x.Range
			return model.MeasureValueFilter{Measure: measure, Condition: model.RangeCondition{
				Operator:          model.RangeOperator(r.Operator),
				From:              r.From.Decimal(),
				To:                r.To.Decimal(),
				TreatNullValuesAs: numberPtr(r.TreatNullValuesAs),
			}}, nil
		}
		return nil, docErr(p, "measure value filter needs exactly one of comparison or range")

	default:
		x := f.RankingFilter
		p := path + ".rankingFilter"
		measure, err := convertRef(p+".measure", x.Measure)
		if err != nil {
			return nil, err
		}
		var attrs []model.Ref
		for i, a := range x.Attributes {
			ref, err := convertRef(fmt.Sprintf("%s.attributes[%d]", p, i), a)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, ref)
		}
		return model.RankingFilter{
			Measure:    measure,
			Attributes: attrs,
			Operator:   model.RankingOperator(x.Operator),
			Value:      x.Value,
		}, nil
	}
}

func attributeFilter(path string, displayForm RefDoc, values, uris []string) (model.Ref, model.AttributeElements, error) {
	df, err := convertRef(path+".displayForm", displayForm)
	if err != nil {
		return nil, model.AttributeElements{}, err
	}
	if len(values) > 0 && len(uris) > 0 {
		return nil, model.AttributeElements{}, docErr(path, "elements are given either by value or by uri")
	}
	if len(uris) > 0 {
		return df, model.ElementURIs(uris...), nil
	}
	return df, model.Values(values...), nil
}

func convertSorts(path string, docs []SortDoc) ([]model.SortItem, error) {
	sorts := make([]model.SortItem, 0, len(docs))
	for i, s := range docs {
		sp := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case s.AttributeSortItem != nil && s.MeasureSortItem == nil:
			x := s.AttributeSortItem
			sorts = append(sorts, model.AttributeSort{
				AttributeIdentifier: x.AttributeIdentifier,
				Direction:           model.SortDirection(x.Direction),
			})
		case s.MeasureSortItem != nil && s.AttributeSortItem == nil:
			x := s.MeasureSortItem
			sort := model.MeasureSort{Direction: model.SortDirection(x.Direction)}
			for j, l := range x.Locators {
				lp := fmt.Sprintf("%s.measureSortItem.locators[%d]", sp, j)
				switch {
				case l.AttributeLocatorItem != nil && l.MeasureLocatorItem == nil:
					sort.Locators = append(sort.Locators, model.AttributeLocator{
						AttributeIdentifier: l.AttributeLocatorItem.AttributeIdentifier,
						Element:             l.AttributeLocatorItem.Element,
					})
				case l.MeasureLocatorItem != nil && l.AttributeLocatorItem == nil:
					sort.Locators = append(sort.Locators, model.MeasureLocator{
						MeasureIdentifier: l.MeasureLocatorItem.MeasureIdentifier,
					})
				default:
					return nil, docErr(lp, "locator needs exactly one of attributeLocatorItem or measureLocatorItem")
				}
			}
			sorts = append(sorts, sort)
		default:
			return nil, docErr(sp, "sort item needs exactly one of attributeSortItem or measureSortItem")
		}
	}
	return sorts, nil
}
