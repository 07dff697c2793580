package model

import (
	"fmt"
	"maps"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/roach88/execdef/internal/ir"
)

// Definition is an immutable, validated execution definition. The zero
// value is not usable; build one with NewDefForBuckets, NewDefForItems or
// NewDefForInsight.
type Definition struct {
	workspace      string
	buckets        []Bucket
	attributes     []Attribute
	measures       []Measure
	filters        []Filter
	sortBy         []SortItem
	dimensions     []Dimension
	postProcessing *PostProcessing
}

// NewDefForBuckets creates a definition whose attributes and measures are
// the items of buckets, in bucket order. Dimensions are generated by
// DefaultDimensions.
func NewDefForBuckets(workspace string, buckets []Bucket, filters ...Filter) (*Definition, error) {
	def := &Definition{
		workspace: workspace,
		buckets:   cloneBuckets(buckets),
		filters:   cloneFilters(filters),
	}
	for i, b := range def.buckets {
		for j, item := range b.Items {
			switch x := item.(type) {
			case Attribute:
				def.attributes = append(def.attributes, x)
			case Measure:
				def.measures = append(def.measures, normalizeMeasure(x))
			default:
				return nil, defErr(fmt.Sprintf("buckets[%d].items[%d]", i, j), "missing item")
			}
		}
	}
	def.dimensions = defaultDimensions(def.attributes, def.measures, def.buckets)
	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// NewDefForItems creates a definition from loose items, as if they were
// placed in a single bucket.
func NewDefForItems(workspace string, items []BucketItem, filters ...Filter) (*Definition, error) {
	return NewDefForBuckets(workspace, []Bucket{{LocalID: "items", Items: items}}, filters...)
}

// NewDefForInsight creates a definition from a saved insight: its buckets,
// its filters merged with extraFilters (see MergeFilters) and its sorts.
func NewDefForInsight(workspace string, insight *Insight, extraFilters ...Filter) (*Definition, error) {
	if insight == nil {
		return nil, defErr("insight", "missing insight")
	}
	def, err := NewDefForBuckets(workspace, insight.Buckets, MergeFilters(insight.Filters, extraFilters)...)
	if err != nil {
		return nil, err
	}
	if len(insight.Sorts) == 0 {
		return def, nil
	}
	return WithSorting(def, insight.Sorts...)
}

func normalizeMeasure(m Measure) Measure {
	if s, ok := m.Definition.(SimpleMeasure); ok && s.Aggregation == "" {
		s.Aggregation = AggregationSum
		m.Definition = s
	}
	return m
}

// Workspace returns the workspace the definition targets.
func (d *Definition) Workspace() string { return d.workspace }

// Buckets returns a copy of the buckets the definition was built from.
func (d *Definition) Buckets() []Bucket { return cloneBuckets(d.buckets) }

// Attributes returns a copy of the attributes in bucket order.
func (d *Definition) Attributes() []Attribute { return cloneAttributes(d.attributes) }

// Measures returns a copy of the measures in bucket order.
func (d *Definition) Measures() []Measure { return cloneMeasures(d.measures) }

// MeasureGroup returns a copy of the measures in the order the measure group
// lists them: sorted by local identifier, as in the definition's identity.
func (d *Definition) MeasureGroup() []Measure { return sortedMeasures(cloneMeasures(d.measures)) }

// Filters returns a copy of the filters in order.
func (d *Definition) Filters() []Filter { return cloneFilters(d.filters) }

// SortBy returns a copy of the sort items in order.
func (d *Definition) SortBy() []SortItem { return cloneSorts(d.sortBy) }

// Dimensions returns a copy of the dimensions in order.
func (d *Definition) Dimensions() []Dimension { return cloneDimensions(d.dimensions) }

// PostProcessing returns a copy of the post-processing, or nil.
func (d *Definition) PostProcessing() *PostProcessing {
	if d.postProcessing == nil {
		return nil
	}
	pp := *d.postProcessing
	return &pp
}

// Attribute looks up an attribute by local identifier.
func (d *Definition) Attribute(localID string) (Attribute, bool) {
	for _, a := range d.attributes {
		if a.LocalID == localID {
			return a, true
		}
	}
	return Attribute{}, false
}

// Measure looks up a measure by local identifier.
func (d *Definition) Measure(localID string) (Measure, bool) {
	for _, m := range d.measures {
		if m.LocalID == localID {
			return cloneMeasure(m), true
		}
	}
	return Measure{}, false
}

func (d *Definition) clone() *Definition {
	c := &Definition{
		workspace:  d.workspace,
		buckets:    cloneBuckets(d.buckets),
		attributes: cloneAttributes(d.attributes),
		measures:   cloneMeasures(d.measures),
		filters:    cloneFilters(d.filters),
		sortBy:     cloneSorts(d.sortBy),
		dimensions: cloneDimensions(d.dimensions),
	}
	c.postProcessing = d.PostProcessing()
	return c
}

type itemKind int

const (
	kindAttribute itemKind = iota + 1
	kindMeasure
)

// validate checks the whole definition. It returns the first problem found.
func (d *Definition) validate() error {
	if d.workspace == "" {
		return defErr("workspace", "must not be empty")
	}

	ids := make(map[string]itemKind, len(d.attributes)+len(d.measures))
	add := func(field, id string, kind itemKind) error {
		if id == "" {
			return defErr(field, "local identifier must not be empty")
		}
		if id == MeasureGroupIdentifier {
			return defErr(field, "local identifier %q is reserved", id)
		}
		if _, dup := ids[nfc(id)]; dup {
			return &DuplicateIdentifierError{Identifier: id}
		}
		ids[nfc(id)] = kind
		return nil
	}
	for i, a := range d.attributes {
		field := fmt.Sprintf("attributes[%d]", i)
		if err := add(field, a.LocalID, kindAttribute); err != nil {
			return err
		}
		if err := checkGlobalRef(field+".displayForm", a.DisplayForm); err != nil {
			return err
		}
	}
	for i, m := range d.measures {
		if err := add(fmt.Sprintf("measures[%d]", i), m.LocalID, kindMeasure); err != nil {
			return err
		}
	}

	v := validator{ids: ids}
	for i, m := range d.measures {
		if err := v.measure(fmt.Sprintf("measures[%d]", i), m); err != nil {
			return err
		}
	}
	if err := v.arithmeticCycles(d.measures); err != nil {
		return err
	}
	for i, b := range d.buckets {
		for j, t := range b.Totals {
			if err := v.total(fmt.Sprintf("buckets[%d].totals[%d]", i, j), t, nil); err != nil {
				return err
			}
		}
	}
	for i, f := range d.filters {
		if err := v.filter(fmt.Sprintf("filters[%d]", i), f, false); err != nil {
			return err
		}
	}
	for i, s := range d.sortBy {
		if err := v.sort(fmt.Sprintf("sortBy[%d]", i), s); err != nil {
			return err
		}
	}
	if err := v.dimensions(d.dimensions, len(d.measures) > 0); err != nil {
		return err
	}
	if pp := d.postProcessing; pp != nil && !pp.HeaderCasing.Valid() {
		return defErr("postProcessing.headerCasing", "unknown casing %q", pp.HeaderCasing)
	}
	return checkUTF8("", Canonical(d))
}

// checkUTF8 rejects text that is not valid UTF-8 anywhere in a canonical
// tree. Such text has no canonical encoding.
func checkUTF8(path string, v ir.IRValue) error {
	switch x := v.(type) {
	case ir.IRString:
		if !utf8.ValidString(string(x)) {
			return defErr(path, "invalid UTF-8 in %q", string(x))
		}
	case ir.IRArray:
		for i, e := range x {
			if err := checkUTF8(fmt.Sprintf("%s[%d]", path, i), e); err != nil {
				return err
			}
		}
	case ir.IRObject:
		for _, k := range slices.Sorted(maps.Keys(x)) {
			child := k
			if path != "" {
				child = path + "." + k
			}
			if !utf8.ValidString(k) {
				return defErr(path, "invalid UTF-8 in key %q", k)
			}
			if err := checkUTF8(child, x[k]); err != nil {
				return err
			}
		}
	}
	return nil
}

type validator struct {
	ids map[string]itemKind
}

func (v validator) expect(location, id string, kind itemKind) error {
	if v.ids[nfc(id)] != kind {
		return invalidRef(location, id)
	}
	return nil
}

// expectRef validates a ref that may be local. Global refs name catalog
// objects and are left to the backend.
func (v validator) expectRef(location string, r Ref, kind itemKind) error {
	switch x := r.(type) {
	case nil:
		return defErr(location, "missing reference")
	case LocalIDRef:
		return v.expect(location, x.LocalID, kind)
	case IdentifierRef:
		if x.Identifier == "" {
			return defErr(location, "empty identifier")
		}
	case URIRef:
		if x.URI == "" {
			return defErr(location, "empty uri")
		}
	}
	return nil
}

func checkGlobalRef(location string, r Ref) error {
	if _, ok := r.(LocalIDRef); ok {
		return defErr(location, "must reference a catalog object")
	}
	return validator{}.expectRef(location, r, 0)
}

func (v validator) measure(location string, m Measure) error {
	switch d := m.Definition.(type) {
	case SimpleMeasure:
		if err := checkGlobalRef(location+".item", d.Item); err != nil {
			return err
		}
		if !d.Aggregation.Valid() {
			return defErr(location+".aggregation", "unknown aggregation %q", d.Aggregation)
		}
		for i, f := range d.Filters {
			if err := v.filter(fmt.Sprintf("%s.filters[%d]", location, i), f, true); err != nil {
				return err
			}
		}
	case ArithmeticMeasure:
		if !d.Operator.Valid() {
			return defErr(location+".operator", "unknown operator %q", d.Operator)
		}
		if d.Operator.binary() && len(d.MeasureIdentifiers) != 2 {
			return defErr(location+".measureIdentifiers", "operator %s takes exactly 2 operands, got %d", d.Operator, len(d.MeasureIdentifiers))
		}
		if len(d.MeasureIdentifiers) < 2 {
			return defErr(location+".measureIdentifiers", "at least 2 operands required, got %d", len(d.MeasureIdentifiers))
		}
		for i, id := range d.MeasureIdentifiers {
			if err := v.expect(fmt.Sprintf("%s.measureIdentifiers[%d]", location, i), id, kindMeasure); err != nil {
				return err
			}
		}
	default:
		return defErr(location+".definition", "missing measure definition")
	}
	return nil
}

// arithmeticCycles rejects arithmetic measures that depend on themselves.
func (v validator) arithmeticCycles(measures []Measure) error {
	operands := make(map[string][]string)
	for _, m := range measures {
		if a, ok := m.Definition.(ArithmeticMeasure); ok {
			operands[m.LocalID] = a.MeasureIdentifiers
		}
	}
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(operands))
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return defErr("measures", "arithmetic measure %q depends on itself", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, op := range operands[id] {
			if err := visit(op); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, m := range measures {
		if err := visit(m.LocalID); err != nil {
			return err
		}
	}
	return nil
}

// filter validates one filter. Measure filters may only hold attribute and
// date filters.
func (v validator) filter(location string, f Filter, measureScope bool) error {
	switch x := f.(type) {
	case PositiveAttributeFilter:
		return v.expectRef(location+".displayForm", x.DisplayForm, kindAttribute)
	case NegativeAttributeFilter:
		return v.expectRef(location+".displayForm", x.DisplayForm, kindAttribute)
	case AbsoluteDateFilter:
		if err := checkGlobalRef(location+".dataSet", x.DataSet); err != nil {
			return err
		}
		from, err := time.Parse(DateFormat, x.From)
		if err != nil {
			return defErr(location+".from", "invalid date %q", x.From)
		}
		to, err := time.Parse(DateFormat, x.To)
		if err != nil {
			return defErr(location+".to", "invalid date %q", x.To)
		}
		if to.Before(from) {
			return defErr(location, "from %s is after to %s", x.From, x.To)
		}
		return nil
	case RelativeDateFilter:
		if err := checkGlobalRef(location+".dataSet", x.DataSet); err != nil {
			return err
		}
		if !x.Granularity.Valid() {
			return defErr(location+".granularity", "unknown granularity %q", x.Granularity)
		}
		if x.To < x.From {
			return defErr(location, "from %d is after to %d", x.From, x.To)
		}
		return nil
	case MeasureValueFilter:
		if measureScope {
			return defErr(location, "measure value filters are not allowed in measure filters")
		}
		if err := v.expectRef(location+".measure", x.Measure, kindMeasure); err != nil {
			return err
		}
		switch c := x.Condition.(type) {
		case ComparisonCondition:
			if !c.Operator.Valid() {
				return defErr(location+".condition.operator", "unknown operator %q", c.Operator)
			}
		case RangeCondition:
			if !c.Operator.Valid() {
				return defErr(location+".condition.operator", "unknown operator %q", c.Operator)
			}
			if c.To.LessThan(c.From) {
				return defErr(location+".condition", "from %s is greater than to %s", c.From, c.To)
			}
		}
		return nil
	case RankingFilter:
		if measureScope {
			return defErr(location, "ranking filters are not allowed in measure filters")
		}
		if err := v.expectRef(location+".measure", x.Measure, kindMeasure); err != nil {
			return err
		}
		for i, a := range x.Attributes {
			if err := v.expectRef(fmt.Sprintf("%s.attributes[%d]", location, i), a, kindAttribute); err != nil {
				return err
			}
		}
		if !x.Operator.Valid() {
			return defErr(location+".operator", "unknown operator %q", x.Operator)
		}
		if x.Value < 1 {
			return defErr(location+".value", "must be positive, got %d", x.Value)
		}
		return nil
	}
	return defErr(location, "missing filter")
}

func (v validator) sort(location string, s SortItem) error {
	switch x := s.(type) {
	case AttributeSort:
		if !x.Direction.Valid() {
			return defErr(location+".direction", "unknown direction %q", x.Direction)
		}
		return v.expect(location+".attributeIdentifier", x.AttributeIdentifier, kindAttribute)
	case MeasureSort:
		if !x.Direction.Valid() {
			return defErr(location+".direction", "unknown direction %q", x.Direction)
		}
		measureLocators := 0
		for i, l := range x.Locators {
			loc := fmt.Sprintf("%s.locators[%d]", location, i)
			switch ll := l.(type) {
			case AttributeLocator:
				if err := v.expect(loc, ll.AttributeIdentifier, kindAttribute); err != nil {
					return err
				}
			case MeasureLocator:
				if err := v.expect(loc, ll.MeasureIdentifier, kindMeasure); err != nil {
					return err
				}
				measureLocators++
			default:
				return defErr(loc, "missing locator")
			}
		}
		if measureLocators != 1 {
			return defErr(location+".locators", "exactly one measure locator required, got %d", measureLocators)
		}
		return nil
	}
	return defErr(location, "missing sort item")
}

func (v validator) total(location string, t Total, dimension []string) error {
	if !t.Type.Valid() {
		return defErr(location+".type", "unknown total type %q", t.Type)
	}
	if err := v.expect(location+".measureIdentifier", t.MeasureIdentifier, kindMeasure); err != nil {
		return err
	}
	if err := v.expect(location+".attributeIdentifier", t.AttributeIdentifier, kindAttribute); err != nil {
		return err
	}
	if dimension != nil && !slices.ContainsFunc(dimension, func(id string) bool { return textEqual(id, t.AttributeIdentifier) }) {
		return defErr(location+".attributeIdentifier", "attribute %q is not in this dimension", t.AttributeIdentifier)
	}
	return nil
}

func (v validator) dimensions(dims []Dimension, hasMeasures bool) error {
	seen := make(map[string]bool)
	for i, dim := range dims {
		for j, id := range dim.ItemIdentifiers {
			loc := fmt.Sprintf("dimensions[%d].itemIdentifiers[%d]", i, j)
			if id == MeasureGroupIdentifier {
				if !hasMeasures {
					return invalidRef(loc, id)
				}
			} else if err := v.expect(loc, id, kindAttribute); err != nil {
				return err
			}
			if seen[nfc(id)] {
				return defErr(loc, "item %q appears in more than one place", id)
			}
			seen[nfc(id)] = true
		}
		items := dim.ItemIdentifiers
		if items == nil {
			items = []string{}
		}
		for j, t := range dim.Totals {
			if err := v.total(fmt.Sprintf("dimensions[%d].totals[%d]", i, j), t, items); err != nil {
				return err
			}
		}
	}
	return nil
}
