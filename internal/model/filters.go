package model

import (
	"github.com/shopspring/decimal"
)

// Filter is the sealed set of filter expressions.
type Filter interface {
	filterNode()
}

// AttributeElements is a set of attribute elements, either by value or by
// element URI. The set is unordered.
type AttributeElements struct {
	ByURI bool
	Items []string
}

// Values selects elements by their textual value.
func Values(values ...string) AttributeElements {
	return AttributeElements{Items: values}
}

// ElementURIs selects elements by their URI.
func ElementURIs(uris ...string) AttributeElements {
	return AttributeElements{ByURI: true, Items: uris}
}

// PositiveAttributeFilter keeps only the listed elements.
type PositiveAttributeFilter struct {
	DisplayForm Ref
	In          AttributeElements
}

func (PositiveAttributeFilter) filterNode() {}

// NegativeAttributeFilter removes the listed elements. An empty set keeps
// everything.
type NegativeAttributeFilter struct {
	DisplayForm Ref
	NotIn       AttributeElements
}

func (NegativeAttributeFilter) filterNode() {}

// NewPositiveAttributeFilter keeps the given values of displayForm.
func NewPositiveAttributeFilter(displayForm Ref, values ...string) PositiveAttributeFilter {
	return PositiveAttributeFilter{DisplayForm: displayForm, In: Values(values...)}
}

// NewNegativeAttributeFilter removes the given values of displayForm.
func NewNegativeAttributeFilter(displayForm Ref, values ...string) NegativeAttributeFilter {
	return NegativeAttributeFilter{DisplayForm: displayForm, NotIn: Values(values...)}
}

// DateFormat is the layout of absolute date filter bounds.
const DateFormat = "2006-01-02"

// AbsoluteDateFilter restricts a date data set to [From, To], both inclusive
// ISO dates.
type AbsoluteDateFilter struct {
	DataSet Ref
	From    string
	To      string
}

func (AbsoluteDateFilter) filterNode() {}

// DateGranularity is the unit of a relative date filter.
type DateGranularity string

const (
	GranularityDate    DateGranularity = "GDC.time.date"
	GranularityWeek    DateGranularity = "GDC.time.week_us"
	GranularityMonth   DateGranularity = "GDC.time.month"
	GranularityQuarter DateGranularity = "GDC.time.quarter"
	GranularityYear    DateGranularity = "GDC.time.year"
)

// Valid reports whether g is a known granularity.
func (g DateGranularity) Valid() bool {
	switch g {
	case GranularityDate, GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return true
	}
	return false
}

// RelativeDateFilter restricts a date data set to periods relative to the
// current one: From=-11, To=0 with month granularity is the last 12 months.
type RelativeDateFilter struct {
	DataSet     Ref
	Granularity DateGranularity
	From        int
	To          int
}

func (RelativeDateFilter) filterNode() {}

// ComparisonOperator compares a measure value to a threshold.
type ComparisonOperator string

const (
	GreaterThan        ComparisonOperator = "GREATER_THAN"
	GreaterThanOrEqual ComparisonOperator = "GREATER_THAN_OR_EQUAL_TO"
	LessThan           ComparisonOperator = "LESS_THAN"
	LessThanOrEqual    ComparisonOperator = "LESS_THAN_OR_EQUAL_TO"
	EqualTo            ComparisonOperator = "EQUAL_TO"
	NotEqualTo         ComparisonOperator = "NOT_EQUAL_TO"
)

// Valid reports whether o is a known comparison.
func (o ComparisonOperator) Valid() bool {
	switch o {
	case GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual, EqualTo, NotEqualTo:
		return true
	}
	return false
}

// RangeOperator tests a measure value against an inclusive range.
type RangeOperator string

const (
	Between    RangeOperator = "BETWEEN"
	NotBetween RangeOperator = "NOT_BETWEEN"
)

// Valid reports whether o is a known range operator.
func (o RangeOperator) Valid() bool {
	return o == Between || o == NotBetween
}

// MeasureValueCondition is the sealed condition of a MeasureValueFilter.
type MeasureValueCondition interface {
	conditionNode()
}

// ComparisonCondition compares against a single value.
type ComparisonCondition struct {
	Operator          ComparisonOperator
	Value             decimal.Decimal
	TreatNullValuesAs *decimal.Decimal
}

func (ComparisonCondition) conditionNode() {}

// RangeCondition tests against [From, To].
type RangeCondition struct {
	Operator          RangeOperator
	From              decimal.Decimal
	To                decimal.Decimal
	TreatNullValuesAs *decimal.Decimal
}

func (RangeCondition) conditionNode() {}

// MeasureValueFilter keeps result rows whose measure value satisfies the
// condition. A nil condition keeps everything.
type MeasureValueFilter struct {
	Measure   Ref
	Condition MeasureValueCondition
}

func (MeasureValueFilter) filterNode() {}

// NewMeasureValueFilter creates a comparison filter on the measure with the
// given local identifier.
func NewMeasureValueFilter(measureLocalID string, op ComparisonOperator, value decimal.Decimal) MeasureValueFilter {
	return MeasureValueFilter{
		Measure:   LocalRef(measureLocalID),
		Condition: ComparisonCondition{Operator: op, Value: value},
	}
}

// RankingOperator selects the top or bottom of a ranking.
type RankingOperator string

const (
	RankTop    RankingOperator = "TOP"
	RankBottom RankingOperator = "BOTTOM"
)

// Valid reports whether o is a known ranking operator.
func (o RankingOperator) Valid() bool {
	return o == RankTop || o == RankBottom
}

// RankingFilter keeps the Value highest (TOP) or lowest (BOTTOM) rows by
// measure. Attributes is an unordered set.
type RankingFilter struct {
	Measure    Ref
	Attributes []Ref
	Operator   RankingOperator
	Value      int
}

func (RankingFilter) filterNode() {}

// NewRankingFilter creates a ranking filter on the measure with the given
// local identifier.
func NewRankingFilter(measureLocalID string, op RankingOperator, value int, attributes ...Ref) RankingFilter {
	return RankingFilter{
		Measure:    LocalRef(measureLocalID),
		Attributes: attributes,
		Operator:   op,
		Value:      value,
	}
}

// isDateFilter reports whether f restricts a date data set and returns it.
func isDateFilter(f Filter) (Ref, bool) {
	switch x := f.(type) {
	case AbsoluteDateFilter:
		return x.DataSet, true
	case RelativeDateFilter:
		return x.DataSet, true
	}
	return nil, false
}
