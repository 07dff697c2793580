package sqlbackend

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/queryir"
	"github.com/roach88/execdef/internal/store"
)

// layout places the attributes and the measure group of a definition in
// the result dimensions.
type layout struct {
	dims int

	// attrDim and measureDim index the dimensions; -1 when absent.
	attrDim    int
	measureDim int

	// attributes lists attribute local identifiers in dimension order.
	attributes []string
	totals     []model.Total
}

func newLayout(def *model.Definition) (layout, error) {
	dims := def.Dimensions()
	if len(dims) == 0 || len(dims) > 2 {
		return layout{}, fmt.Errorf("unsupported layout: %d dimensions", len(dims))
	}
	l := layout{dims: len(dims), attrDim: -1, measureDim: -1}
	for i, dim := range dims {
		if slices.Contains(dim.ItemIdentifiers, model.MeasureGroupIdentifier) {
			if len(dim.ItemIdentifiers) > 1 {
				return layout{}, fmt.Errorf("unsupported layout: dimension %d mixes the measure group with attributes", i)
			}
			l.measureDim = i
			continue
		}
		if l.attrDim >= 0 {
			return layout{}, errors.New("unsupported layout: attributes in more than one dimension")
		}
		l.attrDim = i
		l.attributes = dim.ItemIdentifiers
		l.totals = dim.Totals
	}

	if len(def.Measures()) > 0 && l.measureDim < 0 {
		return layout{}, errors.New("unsupported layout: the measure group is not placed in any dimension")
	}
	for _, a := range def.Attributes() {
		if !slices.Contains(l.attributes, a.LocalID) {
			return layout{}, fmt.Errorf("unsupported layout: attribute %q is not placed in any dimension", a.LocalID)
		}
	}
	for _, t := range l.totals {
		if len(l.attributes) == 0 || t.AttributeIdentifier != l.attributes[0] {
			return layout{}, fmt.Errorf("unsupported total on %q: only grand totals on the first attribute are supported", t.AttributeIdentifier)
		}
	}
	return l, nil
}

// plannedAttribute is an attribute bound to its catalog label.
type plannedAttribute struct {
	localID string
	alias   string
	title   string
	item    store.CatalogItem
}

// plannedMeasure is a measure bound to its output column.
type plannedMeasure struct {
	localID string
	alias   string
	name    string
	format  string
}

// plan is a definition translated into queries over one fact table.
type plan struct {
	layout     layout
	attributes []plannedAttribute
	measures   []plannedMeasure

	// query returns one row per attribute element combination: the
	// attribute columns followed by the measure columns.
	query queryir.Query

	// grand aggregates every measure over all filtered rows, ignoring
	// measure value and ranking filters. Native totals read it.
	grand queryir.Query

	// postFiltered is set when measure value or ranking filters apply.
	postFiltered bool
}

// planner builds a plan for one execution.
type planner struct {
	def *model.Definition
	cat *catalog
	now time.Time

	attributes map[string]plannedAttribute
	measures   map[string]model.Measure
	aliases    map[string]string
}

func buildPlan(ctx context.Context, def *model.Definition, cat *catalog, table string, now time.Time) (*plan, error) {
	l, err := newLayout(def)
	if err != nil {
		return nil, err
	}
	p := &planner{
		def:        def,
		cat:        cat,
		now:        now,
		attributes: make(map[string]plannedAttribute),
		measures:   make(map[string]model.Measure),
		aliases:    make(map[string]string),
	}
	pl := &plan{layout: l}

	for i, id := range l.attributes {
		a, _ := def.Attribute(id)
		item, err := cat.resolve(ctx, a.DisplayForm, store.KindLabel, store.KindDataSet)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", id, err)
		}
		pa := plannedAttribute{localID: id, alias: fmt.Sprintf("a%d", i), title: firstNonEmpty(a.Alias, item.Title, id), item: item}
		p.attributes[id] = pa
		pl.attributes = append(pl.attributes, pa)
	}

	var simple []queryir.Named
	hasArithmetic := false
	for i, m := range def.MeasureGroup() {
		alias := fmt.Sprintf("m%d", i)
		p.measures[m.LocalID] = m
		p.aliases[m.LocalID] = alias
		pm := plannedMeasure{localID: m.LocalID, alias: alias, format: m.Format}

		switch md := m.Definition.(type) {
		case model.SimpleMeasure:
			agg, title, err := p.aggregation(ctx, md)
			if err != nil {
				return nil, fmt.Errorf("measure %q: %w", m.LocalID, err)
			}
			pm.name = firstNonEmpty(m.Alias, m.Title, title, m.LocalID)
			simple = append(simple, queryir.Named{Alias: alias, Expr: agg})
		case model.ArithmeticMeasure:
			pm.name = firstNonEmpty(m.Alias, m.Title, m.LocalID)
			hasArithmetic = true
		default:
			return nil, fmt.Errorf("measure %q has no definition", m.LocalID)
		}
		pl.measures = append(pl.measures, pm)
	}

	where, err := p.where(ctx, def.Filters())
	if err != nil {
		return nil, err
	}

	var groupBy []queryir.Named
	for _, a := range pl.attributes {
		groupBy = append(groupBy, queryir.Named{Alias: a.alias, Expr: queryir.Col{Name: a.item.Column}})
	}

	pl.query, err = p.measureStage(pl, queryir.Aggregate{From: table, Where: where, GroupBy: groupBy, Values: simple}, hasArithmetic)
	if err != nil {
		return nil, err
	}
	if len(simple) > 0 {
		pl.grand, err = p.measureStage(pl, queryir.Aggregate{From: table, Where: where, Values: simple}, hasArithmetic)
		if err != nil {
			return nil, err
		}
	}

	for i, f := range def.Filters() {
		switch x := f.(type) {
		case model.MeasureValueFilter:
			pred, err := p.measureValuePredicate(x)
			if err != nil {
				return nil, fmt.Errorf("filters[%d]: %w", i, err)
			}
			if pred == nil {
				continue
			}
			pl.query = queryir.Filter{Input: pl.query, Where: pred}
			pl.postFiltered = true
		case model.RankingFilter:
			rank, err := p.rank(ctx, pl.query, x)
			if err != nil {
				return nil, fmt.Errorf("filters[%d]: %w", i, err)
			}
			pl.query = rank
			pl.postFiltered = true
		}
	}

	if sorts := def.SortBy(); len(sorts) > 0 {
		keys, err := p.orderKeys(sorts)
		if err != nil {
			return nil, err
		}
		pl.query = queryir.Order{Input: pl.query, Keys: keys}
	}
	return pl, nil
}

// measureStage adds the arithmetic measures on top of agg. The output
// columns are the group columns followed by every measure in definition
// order.
func (p *planner) measureStage(pl *plan, agg queryir.Aggregate, hasArithmetic bool) (queryir.Query, error) {
	if !hasArithmetic {
		return agg, nil
	}
	cols := make([]queryir.Named, 0, len(agg.GroupBy)+len(pl.measures))
	for _, g := range agg.GroupBy {
		cols = append(cols, queryir.Named{Alias: g.Alias, Expr: queryir.Col{Name: g.Alias}})
	}
	for _, m := range pl.measures {
		expr, err := p.measureExpr(m.localID)
		if err != nil {
			return nil, fmt.Errorf("measure %q: %w", m.localID, err)
		}
		cols = append(cols, queryir.Named{Alias: m.alias, Expr: expr})
	}
	return queryir.Project{Input: agg, Columns: cols}, nil
}

// measureExpr returns the expression computing a measure from the simple
// measure columns of the aggregate stage.
func (p *planner) measureExpr(localID string) (queryir.Expr, error) {
	m, ok := p.measures[localID]
	if !ok {
		return nil, fmt.Errorf("unknown measure %q", localID)
	}
	md, ok := m.Definition.(model.ArithmeticMeasure)
	if !ok {
		return queryir.Col{Name: p.aliases[localID]}, nil
	}
	operands := make([]queryir.Expr, len(md.MeasureIdentifiers))
	for i, id := range md.MeasureIdentifiers {
		e, err := p.measureExpr(id)
		if err != nil {
			return nil, err
		}
		operands[i] = e
	}
	switch md.Operator {
	case model.ArithmeticSum:
		return chain(queryir.OpAdd, operands), nil
	case model.ArithmeticMultiplication:
		return chain(queryir.OpMul, operands), nil
	case model.ArithmeticDifference:
		return queryir.Arith{Op: queryir.OpSub, Left: operands[0], Right: operands[1]}, nil
	case model.ArithmeticRatio:
		return queryir.Arith{Op: queryir.OpDiv, Left: operands[0], Right: operands[1]}, nil
	case model.ArithmeticChange:
		diff := queryir.Arith{Op: queryir.OpSub, Left: operands[0], Right: operands[1]}
		return queryir.Arith{Op: queryir.OpDiv, Left: diff, Right: operands[1]}, nil
	}
	return nil, fmt.Errorf("unsupported arithmetic operator %q", md.Operator)
}

func chain(op queryir.ArithOp, operands []queryir.Expr) queryir.Expr {
	out := operands[0]
	for _, e := range operands[1:] {
		out = queryir.Arith{Op: op, Left: out, Right: e}
	}
	return out
}

// aggregation translates a simple measure. It returns the aggregate and
// the catalog title of the measured item.
func (p *planner) aggregation(ctx context.Context, m model.SimpleMeasure) (queryir.Agg, string, error) {
	item, err := p.cat.resolve(ctx, m.Item, store.KindFact, store.KindLabel, store.KindDataSet)
	if err != nil {
		return queryir.Agg{}, "", err
	}
	agg := queryir.Agg{Arg: queryir.Col{Name: item.Column}}
	if item.Kind != store.KindFact {
		if m.Aggregation != model.AggregationCount {
			return queryir.Agg{}, "", fmt.Errorf("%s aggregation of %s %s: only count is supported", m.Aggregation, item.Kind, item.Identifier)
		}
		agg.Func = queryir.AggCount
		agg.Distinct = true
	} else {
		fn, ok := aggFuncs[m.Aggregation]
		if !ok {
			return queryir.Agg{}, "", fmt.Errorf("unsupported aggregation %q", m.Aggregation)
		}
		agg.Func = fn
	}

	if len(m.Filters) > 0 {
		preds := make([]queryir.Predicate, 0, len(m.Filters))
		for i, f := range m.Filters {
			pred, err := p.predicate(ctx, f)
			if err != nil {
				return queryir.Agg{}, "", fmt.Errorf("filters[%d]: %w", i, err)
			}
			if pred != nil {
				preds = append(preds, pred)
			}
		}
		if len(preds) > 0 {
			agg.Filter = queryir.And{Predicates: preds}
		}
	}
	return agg, item.Title, nil
}

var aggFuncs = map[model.Aggregation]queryir.AggFunc{
	model.AggregationSum:    queryir.AggSum,
	model.AggregationCount:  queryir.AggCount,
	model.AggregationAvg:    queryir.AggAvg,
	model.AggregationMin:    queryir.AggMin,
	model.AggregationMax:    queryir.AggMax,
	model.AggregationMedian: queryir.AggMedian,
}

// where combines the attribute and date filters of the definition.
func (p *planner) where(ctx context.Context, filters []model.Filter) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	for i, f := range filters {
		switch f.(type) {
		case model.MeasureValueFilter, model.RankingFilter:
			continue
		}
		pred, err := p.predicate(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		if pred != nil {
			preds = append(preds, pred)
		}
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return queryir.And{Predicates: preds}, nil
}

// predicate translates an attribute or date filter. Attribute filters
// without elements select everything and yield nil.
func (p *planner) predicate(ctx context.Context, f model.Filter) (queryir.Predicate, error) {
	switch x := f.(type) {
	case model.PositiveAttributeFilter:
		return p.attributeFilter(ctx, x.DisplayForm, x.In, false)
	case model.NegativeAttributeFilter:
		return p.attributeFilter(ctx, x.DisplayForm, x.NotIn, true)
	case model.AbsoluteDateFilter:
		item, err := p.cat.resolve(ctx, x.DataSet, store.KindDataSet)
		if err != nil {
			return nil, err
		}
		return dateBetween(item, x.From, x.To), nil
	case model.RelativeDateFilter:
		item, err := p.cat.resolve(ctx, x.DataSet, store.KindDataSet)
		if err != nil {
			return nil, err
		}
		from, to, err := relativeRange(x.Granularity, x.From, x.To, p.now)
		if err != nil {
			return nil, err
		}
		return dateBetween(item, from, to), nil
	}
	return nil, fmt.Errorf("unsupported filter %T", f)
}

func dateBetween(item store.CatalogItem, from, to string) queryir.Predicate {
	return queryir.Between{
		Expr: queryir.Col{Name: item.Column},
		Low:  queryir.Str{Value: from},
		High: queryir.Str{Value: to},
	}
}

func (p *planner) attributeFilter(ctx context.Context, displayForm model.Ref, elements model.AttributeElements, negate bool) (queryir.Predicate, error) {
	if len(elements.Items) == 0 {
		return nil, nil
	}
	item, err := p.labelItem(ctx, displayForm)
	if err != nil {
		return nil, err
	}
	values := elements.Items
	if elements.ByURI {
		values = make([]string, len(elements.Items))
		for i, uri := range elements.Items {
			if values[i], err = elementValue(item.URI, uri); err != nil {
				return nil, err
			}
		}
	}
	return queryir.In{Expr: queryir.Col{Name: item.Column}, Values: values, Negate: negate}, nil
}

// labelItem resolves the label an attribute filter or ranking scope refers
// to; local references name an attribute of the definition.
func (p *planner) labelItem(ctx context.Context, ref model.Ref) (store.CatalogItem, error) {
	if local, ok := ref.(model.LocalIDRef); ok {
		a, found := p.def.Attribute(local.LocalID)
		if !found {
			return store.CatalogItem{}, fmt.Errorf("unknown attribute %q", local.LocalID)
		}
		ref = a.DisplayForm
	}
	return p.cat.resolve(ctx, ref, store.KindLabel, store.KindDataSet)
}

func (p *planner) measureAlias(ref model.Ref) (string, error) {
	local, ok := ref.(model.LocalIDRef)
	if !ok {
		return "", fmt.Errorf("measure %s must be a local reference", ref)
	}
	alias, ok := p.aliases[local.LocalID]
	if !ok {
		return "", fmt.Errorf("unknown measure %q", local.LocalID)
	}
	return alias, nil
}

var comparisonOps = map[model.ComparisonOperator]queryir.CompareOp{
	model.GreaterThan:        queryir.CmpGt,
	model.GreaterThanOrEqual: queryir.CmpGe,
	model.LessThan:           queryir.CmpLt,
	model.LessThanOrEqual:    queryir.CmpLe,
	model.EqualTo:            queryir.CmpEq,
	model.NotEqualTo:         queryir.CmpNe,
}

// measureValuePredicate translates a measure value filter. A filter
// without condition keeps every row and yields nil.
func (p *planner) measureValuePredicate(f model.MeasureValueFilter) (queryir.Predicate, error) {
	alias, err := p.measureAlias(f.Measure)
	if err != nil {
		return nil, err
	}
	var value queryir.Expr = queryir.Col{Name: alias}
	switch c := f.Condition.(type) {
	case nil:
		return nil, nil
	case model.ComparisonCondition:
		op, ok := comparisonOps[c.Operator]
		if !ok {
			return nil, fmt.Errorf("unsupported comparison %q", c.Operator)
		}
		if c.TreatNullValuesAs != nil {
			value = queryir.Coalesce{Expr: value, Default: *c.TreatNullValuesAs}
		}
		return queryir.Compare{Left: value, Op: op, Right: queryir.Num{Value: c.Value}}, nil
	case model.RangeCondition:
		if c.TreatNullValuesAs != nil {
			value = queryir.Coalesce{Expr: value, Default: *c.TreatNullValuesAs}
		}
		return queryir.Between{
			Expr:   value,
			Low:    queryir.Num{Value: c.From},
			High:   queryir.Num{Value: c.To},
			Negate: c.Operator == model.NotBetween,
		}, nil
	}
	return nil, fmt.Errorf("unsupported condition %T", f.Condition)
}

// rank translates a ranking filter. Rankings are computed over the full
// attribute set of the definition; a narrower scope is not supported.
func (p *planner) rank(ctx context.Context, input queryir.Query, f model.RankingFilter) (queryir.Query, error) {
	alias, err := p.measureAlias(f.Measure)
	if err != nil {
		return nil, err
	}
	if len(f.Attributes) > 0 {
		want := make(map[string]bool, len(p.attributes))
		for _, a := range p.attributes {
			want[a.item.Identifier] = true
		}
		got := make(map[string]bool, len(f.Attributes))
		for _, ref := range f.Attributes {
			item, err := p.labelItem(ctx, ref)
			if err != nil {
				return nil, err
			}
			got[item.Identifier] = true
		}
		if !maps.Equal(want, got) {
			return nil, errors.New("ranking within a subset of the attributes is not supported")
		}
	}
	return queryir.Rank{
		Input:      input,
		By:         queryir.Col{Name: alias},
		Descending: f.Operator == model.RankTop,
		Limit:      f.Value,
	}, nil
}

func (p *planner) orderKeys(sorts []model.SortItem) ([]queryir.OrderKey, error) {
	keys := make([]queryir.OrderKey, 0, len(sorts))
	for i, s := range sorts {
		switch x := s.(type) {
		case model.AttributeSort:
			a, ok := p.attributes[x.AttributeIdentifier]
			if !ok {
				return nil, fmt.Errorf("sortBy[%d]: unknown attribute %q", i, x.AttributeIdentifier)
			}
			keys = append(keys, queryir.OrderKey{Expr: queryir.Col{Name: a.alias}, Descending: x.Direction == model.SortDesc})
		case model.MeasureSort:
			var alias string
			for _, l := range x.Locators {
				switch ll := l.(type) {
				case model.AttributeLocator:
					return nil, fmt.Errorf("sortBy[%d]: attribute locators are not supported", i)
				case model.MeasureLocator:
					alias = p.aliases[ll.MeasureIdentifier]
				}
			}
			if alias == "" {
				return nil, fmt.Errorf("sortBy[%d]: no measure locator", i)
			}
			keys = append(keys, queryir.OrderKey{Expr: queryir.Col{Name: alias}, Descending: x.Direction == model.SortDesc})
		default:
			return nil, fmt.Errorf("sortBy[%d]: unsupported sort %T", i, s)
		}
	}
	return keys, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
