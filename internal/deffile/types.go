package deffile

// RefDoc is a reference: exactly one of Identifier, URI or LocalIdentifier.
type RefDoc struct {
	Identifier      string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Type            string `json:"type,omitempty" yaml:"type,omitempty"`
	URI             string `json:"uri,omitempty" yaml:"uri,omitempty"`
	LocalIdentifier string `json:"localIdentifier,omitempty" yaml:"localIdentifier,omitempty"`
}

// AttributeDoc is an attribute bucket item.
type AttributeDoc struct {
	LocalIdentifier string `json:"localIdentifier" yaml:"localIdentifier"`
	DisplayForm     RefDoc `json:"displayForm" yaml:"displayForm"`
	Alias           string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// MeasureDoc is a simple measure bucket item.
type MeasureDoc struct {
	LocalIdentifier string      `json:"localIdentifier" yaml:"localIdentifier"`
	Item            RefDoc      `json:"item" yaml:"item"`
	Aggregation     string      `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Filters         []FilterDoc `json:"filters,omitempty" yaml:"filters,omitempty"`
	Title           string      `json:"title,omitempty" yaml:"title,omitempty"`
	Alias           string      `json:"alias,omitempty" yaml:"alias,omitempty"`
	Format          string      `json:"format,omitempty" yaml:"format,omitempty"`
}

// ArithmeticMeasureDoc is an arithmetic measure bucket item.
type ArithmeticMeasureDoc struct {
	LocalIdentifier    string   `json:"localIdentifier" yaml:"localIdentifier"`
	Operator           string   `json:"operator" yaml:"operator"`
	MeasureIdentifiers []string `json:"measureIdentifiers" yaml:"measureIdentifiers"`
	Title              string   `json:"title,omitempty" yaml:"title,omitempty"`
	Alias              string   `json:"alias,omitempty" yaml:"alias,omitempty"`
	Format             string   `json:"format,omitempty" yaml:"format,omitempty"`
}

// ItemDoc is one bucket item: exactly one field is set.
type ItemDoc struct {
	Attribute         *AttributeDoc         `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Measure           *MeasureDoc           `json:"measure,omitempty" yaml:"measure,omitempty"`
	ArithmeticMeasure *ArithmeticMeasureDoc `json:"arithmeticMeasure,omitempty" yaml:"arithmeticMeasure,omitempty"`
}

// TotalDoc is a total.
type TotalDoc struct {
	Type                string `json:"type" yaml:"type"`
	MeasureIdentifier   string `json:"measureIdentifier" yaml:"measureIdentifier"`
	AttributeIdentifier string `json:"attributeIdentifier" yaml:"attributeIdentifier"`
}

// BucketDoc is a bucket.
type BucketDoc struct {
	LocalIdentifier string     `json:"localIdentifier" yaml:"localIdentifier"`
	Items           []ItemDoc  `json:"items" yaml:"items"`
	Totals          []TotalDoc `json:"totals,omitempty" yaml:"totals,omitempty"`
}

// AttributeFilterDoc is the body of positive and negative attribute
// filters. Elements are given by value (In/NotIn) or by URI
// (InURIs/NotInURIs).
type AttributeFilterDoc struct {
	DisplayForm RefDoc   `json:"displayForm" yaml:"displayForm"`
	In          []string `json:"in,omitempty" yaml:"in,omitempty"`
	InURIs      []string `json:"inUris,omitempty" yaml:"inUris,omitempty"`
	NotIn       []string `json:"notIn,omitempty" yaml:"notIn,omitempty"`
	NotInURIs   []string `json:"notInUris,omitempty" yaml:"notInUris,omitempty"`
}

// AbsoluteDateFilterDoc is an absolute date filter.
type AbsoluteDateFilterDoc struct {
	DataSet RefDoc `json:"dataSet" yaml:"dataSet"`
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
}

// RelativeDateFilterDoc is a relative date filter.
type RelativeDateFilterDoc struct {
	DataSet     RefDoc `json:"dataSet" yaml:"dataSet"`
	Granularity string `json:"granularity" yaml:"granularity"`
	From        int    `json:"from" yaml:"from"`
	To          int    `json:"to" yaml:"to"`
}

// ComparisonDoc is a measure value comparison condition.
type ComparisonDoc struct {
	Operator          string  `json:"operator" yaml:"operator"`
	Value             Number  `json:"value" yaml:"value"`
	TreatNullValuesAs *Number `json:"treatNullValuesAs,omitempty" yaml:"treatNullValuesAs,omitempty"`
}

// RangeDoc is a measure value range condition.
type RangeDoc struct {
	Operator          string  `json:"operator" yaml:"operator"`
	From              Number  `json:"from" yaml:"from"`
	To                Number  `json:"to" yaml:"to"`
	TreatNullValuesAs *Number `json:"treatNullValuesAs,omitempty" yaml:"treatNullValuesAs,omitempty"`
}

// MeasureValueFilterDoc is a measure value filter with one condition.
type MeasureValueFilterDoc struct {
	Measure    RefDoc         `json:"measure" yaml:"measure"`
	Comparison *ComparisonDoc `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Range      *RangeDoc      `json:"range,omitempty" yaml:"range,omitempty"`
}

// RankingFilterDoc is a ranking filter.
type RankingFilterDoc struct {
	Measure    RefDoc   `json:"measure" yaml:"measure"`
	Attributes []RefDoc `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Operator   string   `json:"operator" yaml:"operator"`
	Value      int      `json:"value" yaml:"value"`
}

// FilterDoc is one filter: exactly one field is set.
type FilterDoc struct {
	PositiveAttributeFilter *AttributeFilterDoc    `json:"positiveAttributeFilter,omitempty" yaml:"positiveAttributeFilter,omitempty"`
	NegativeAttributeFilter *AttributeFilterDoc    `json:"negativeAttributeFilter,omitempty" yaml:"negativeAttributeFilter,omitempty"`
	AbsoluteDateFilter      *AbsoluteDateFilterDoc `json:"absoluteDateFilter,omitempty" yaml:"absoluteDateFilter,omitempty"`
	RelativeDateFilter      *RelativeDateFilterDoc `json:"relativeDateFilter,omitempty" yaml:"relativeDateFilter,omitempty"`
	MeasureValueFilter      *MeasureValueFilterDoc `json:"measureValueFilter,omitempty" yaml:"measureValueFilter,omitempty"`
	RankingFilter           *RankingFilterDoc      `json:"rankingFilter,omitempty" yaml:"rankingFilter,omitempty"`
}

// AttributeSortDoc sorts by attribute values.
type AttributeSortDoc struct {
	AttributeIdentifier string `json:"attributeIdentifier" yaml:"attributeIdentifier"`
	Direction           string `json:"direction" yaml:"direction"`
}

// AttributeLocatorDoc pins an attribute element.
type AttributeLocatorDoc struct {
	AttributeIdentifier string `json:"attributeIdentifier" yaml:"attributeIdentifier"`
	Element             string `json:"element" yaml:"element"`
}

// MeasureLocatorDoc names the sorted measure.
type MeasureLocatorDoc struct {
	MeasureIdentifier string `json:"measureIdentifier" yaml:"measureIdentifier"`
}

// LocatorDoc is one locator: exactly one field is set.
type LocatorDoc struct {
	AttributeLocatorItem *AttributeLocatorDoc `json:"attributeLocatorItem,omitempty" yaml:"attributeLocatorItem,omitempty"`
	MeasureLocatorItem   *MeasureLocatorDoc   `json:"measureLocatorItem,omitempty" yaml:"measureLocatorItem,omitempty"`
}

// MeasureSortDoc sorts by measure values.
type MeasureSortDoc struct {
	Direction string       `json:"direction" yaml:"direction"`
	Locators  []LocatorDoc `json:"locators" yaml:"locators"`
}

// SortDoc is one sort item: exactly one field is set.
type SortDoc struct {
	AttributeSortItem *AttributeSortDoc `json:"attributeSortItem,omitempty" yaml:"attributeSortItem,omitempty"`
	MeasureSortItem   *MeasureSortDoc   `json:"measureSortItem,omitempty" yaml:"measureSortItem,omitempty"`
}

// DimensionDoc is an explicit dimension.
type DimensionDoc struct {
	ItemIdentifiers []string   `json:"itemIdentifiers" yaml:"itemIdentifiers"`
	Totals          []TotalDoc `json:"totals,omitempty" yaml:"totals,omitempty"`
}

// PostProcessingDoc is post-processing.
type PostProcessingDoc struct {
	DateFormat   string `json:"dateFormat,omitempty" yaml:"dateFormat,omitempty"`
	HeaderCasing string `json:"headerCasing,omitempty" yaml:"headerCasing,omitempty"`
}

// InsightRefDoc executes a saved insight by reference.
type InsightRefDoc struct {
	Ref     RefDoc      `json:"ref" yaml:"ref"`
	Filters []FilterDoc `json:"filters,omitempty" yaml:"filters,omitempty"`
}

// Document is an execution document: either a definition (buckets,
// filters, sorts, dimensions, post-processing) or a reference to a saved
// insight with extra filters.
type Document struct {
	Workspace      string             `json:"workspace" yaml:"workspace"`
	Buckets        []BucketDoc        `json:"buckets,omitempty" yaml:"buckets,omitempty"`
	Filters        []FilterDoc        `json:"filters,omitempty" yaml:"filters,omitempty"`
	SortBy         []SortDoc          `json:"sortBy,omitempty" yaml:"sortBy,omitempty"`
	Dimensions     []DimensionDoc     `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	PostProcessing *PostProcessingDoc `json:"postProcessing,omitempty" yaml:"postProcessing,omitempty"`
	Insight        *InsightRefDoc     `json:"insight,omitempty" yaml:"insight,omitempty"`
}

// InsightDoc is a saved insight.
type InsightDoc struct {
	Identifier string      `json:"identifier" yaml:"identifier"`
	URI        string      `json:"uri" yaml:"uri"`
	Title      string      `json:"title,omitempty" yaml:"title,omitempty"`
	Buckets    []BucketDoc `json:"buckets" yaml:"buckets"`
	Filters    []FilterDoc `json:"filters,omitempty" yaml:"filters,omitempty"`
	SortBy     []SortDoc   `json:"sortBy,omitempty" yaml:"sortBy,omitempty"`
}

// ColumnDoc is a dataset column.
type ColumnDoc struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// CatalogItemDoc maps a catalog object to a column.
type CatalogItemDoc struct {
	Kind       string `json:"kind" yaml:"kind"`
	Identifier string `json:"identifier" yaml:"identifier"`
	URI        string `json:"uri" yaml:"uri"`
	Column     string `json:"column" yaml:"column"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
}

// DatasetDoc is the content of a workspace: fact table, catalog and saved
// insights.
type DatasetDoc struct {
	Workspace string           `json:"workspace" yaml:"workspace"`
	Columns   []ColumnDoc      `json:"columns" yaml:"columns"`
	Rows      [][]any          `json:"rows" yaml:"rows"`
	Catalog   []CatalogItemDoc `json:"catalog" yaml:"catalog"`
	Insights  []InsightDoc     `json:"insights,omitempty" yaml:"insights,omitempty"`
}
