package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/model"
)

// Backend is implemented by analytics backends.
//
// Execute starts an execution and returns the response envelope; the data
// itself is fetched page by page with ReadPage. ReadPage returns
// ErrResultNotFound when resultID is unknown to the backend.
type Backend interface {
	Execute(ctx context.Context, req Request) (*Response, error)
	ReadPage(ctx context.Context, workspace, resultID string, window Window) (*Page, error)
}

// Request is one execution request. When Reference is set the backend
// executes the referenced insight with Filters merged into the insight's
// own filters, and takes only the result spec (dimensions, sorts and
// post-processing) from Definition.
type Request struct {
	Definition *model.Definition
	Reference  string
	Filters    []model.Filter
}

// ByReference reports whether r executes a saved insight.
func (r Request) ByReference() bool {
	return r.Reference != ""
}

// HeaderKind distinguishes attribute headers from the measure group.
type HeaderKind string

const (
	HeaderAttribute    HeaderKind = "attribute"
	HeaderMeasureGroup HeaderKind = "measureGroup"
)

// MeasureDescriptor describes one measure of a measure group header.
type MeasureDescriptor struct {
	LocalID string
	Name    string
	Format  string
}

// HeaderDescriptor describes one item of a result dimension.
type HeaderDescriptor struct {
	Kind HeaderKind

	// LocalID is the attribute's local identifier, or
	// model.MeasureGroupIdentifier for the measure group.
	LocalID string

	// Name is the attribute title.
	Name string

	// DisplayForm identifies the label the attribute values come from.
	DisplayForm string

	// Date marks attribute headers whose values are ISO dates.
	Date bool

	// Measures lists the measure group, in definition order.
	Measures []MeasureDescriptor
}

// DimensionDescriptor describes one result dimension.
type DimensionDescriptor struct {
	Headers []HeaderDescriptor
}

// Response is the envelope of a successful execution.
type Response struct {
	ResultID   string
	Dimensions []DimensionDescriptor

	// TotalCount holds the number of positions of each dimension.
	TotalCount []int
}

// Window addresses a rectangular slice of a result: one offset and one
// limit per dimension.
type Window struct {
	Offset []int
	Limit  []int
}

// ResultHeader is the header of one position of a dimension. Attribute
// headers carry the element value and URI; measure headers carry the
// measure name and its index in the measure group.
type ResultHeader struct {
	Name         string
	URI          string
	MeasureIndex int
}

// TotalRow holds the values of one total type along the other dimension.
type TotalRow struct {
	Type   model.TotalType
	Values []decimal.NullDecimal
}

// Page is a block of result data returned by Backend.ReadPage.
//
// For two-dimensional results Data[i][j] is the value at position i of
// dimension 0 and position j of dimension 1. For one-dimensional results
// Data holds a single row indexed by the positions of dimension 0. Results
// without measures have no data.
//
// Headers is indexed by dimension, header item and position. Totals is
// indexed by dimension; the values of a total row in dimension d follow
// the positions of the other dimension.
type Page struct {
	Offset  []int
	Count   []int
	Data    [][]decimal.NullDecimal
	Headers [][][]ResultHeader
	Totals  [][]TotalRow
}
