package model

// Aggregation is the aggregation function of a simple measure.
type Aggregation string

const (
	AggregationSum    Aggregation = "sum"
	AggregationCount  Aggregation = "count"
	AggregationAvg    Aggregation = "avg"
	AggregationMin    Aggregation = "min"
	AggregationMax    Aggregation = "max"
	AggregationMedian Aggregation = "median"
)

// Valid reports whether a is a known aggregation.
func (a Aggregation) Valid() bool {
	switch a {
	case AggregationSum, AggregationCount, AggregationAvg,
		AggregationMin, AggregationMax, AggregationMedian:
		return true
	}
	return false
}

// ArithmeticOperator combines the operands of an arithmetic measure.
type ArithmeticOperator string

const (
	ArithmeticSum            ArithmeticOperator = "sum"
	ArithmeticDifference     ArithmeticOperator = "difference"
	ArithmeticMultiplication ArithmeticOperator = "multiplication"
	ArithmeticRatio          ArithmeticOperator = "ratio"
	ArithmeticChange         ArithmeticOperator = "change"
)

// Valid reports whether o is a known operator.
func (o ArithmeticOperator) Valid() bool {
	switch o {
	case ArithmeticSum, ArithmeticDifference, ArithmeticMultiplication,
		ArithmeticRatio, ArithmeticChange:
		return true
	}
	return false
}

// binary reports whether the operator takes exactly two operands.
func (o ArithmeticOperator) binary() bool {
	return o == ArithmeticDifference || o == ArithmeticRatio || o == ArithmeticChange
}

// BucketItem is an attribute or a measure placed in a bucket.
type BucketItem interface {
	bucketItem()
	LocalIdentifier() string
}

// Attribute slices the result by the values of one display form.
type Attribute struct {
	LocalID     string
	DisplayForm Ref
	Alias       string
}

func (Attribute) bucketItem() {}

// LocalIdentifier returns the attribute's local identifier.
func (a Attribute) LocalIdentifier() string { return a.LocalID }

// NewAttribute creates an attribute for displayForm.
func NewAttribute(localID string, displayForm Ref) Attribute {
	return Attribute{LocalID: localID, DisplayForm: displayForm}
}

// Measure is a computed numeric value.
type Measure struct {
	LocalID    string
	Title      string
	Alias      string
	Format     string
	Definition MeasureDefinition
}

func (Measure) bucketItem() {}

// LocalIdentifier returns the measure's local identifier.
func (m Measure) LocalIdentifier() string { return m.LocalID }

// MeasureDefinition is the sealed body of a Measure.
type MeasureDefinition interface {
	measureDefinition()
}

// SimpleMeasure aggregates a fact (or counts an attribute). Filters apply to
// this measure only and may hold attribute and date filters.
type SimpleMeasure struct {
	Item        Ref
	Aggregation Aggregation
	Filters     []Filter
}

func (SimpleMeasure) measureDefinition() {}

// ArithmeticMeasure combines other measures of the same definition.
type ArithmeticMeasure struct {
	Operator           ArithmeticOperator
	MeasureIdentifiers []string
}

func (ArithmeticMeasure) measureDefinition() {}

// NewMeasure creates a simple measure over item.
func NewMeasure(localID string, item Ref, aggregation Aggregation, filters ...Filter) Measure {
	return Measure{
		LocalID: localID,
		Definition: SimpleMeasure{
			Item:        item,
			Aggregation: aggregation,
			Filters:     filters,
		},
	}
}

// NewArithmeticMeasure creates an arithmetic measure over the given measure
// local identifiers.
func NewArithmeticMeasure(localID string, op ArithmeticOperator, operands ...string) Measure {
	return Measure{
		LocalID: localID,
		Definition: ArithmeticMeasure{
			Operator:           op,
			MeasureIdentifiers: operands,
		},
	}
}

// Bucket is a named group of items supplied by the caller.
type Bucket struct {
	LocalID string
	Items   []BucketItem
	Totals  []Total
}

// NewBucket creates a bucket holding items.
func NewBucket(localID string, items ...BucketItem) Bucket {
	return Bucket{LocalID: localID, Items: items}
}
