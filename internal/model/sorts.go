package model

// SortDirection orders sort items.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether d is a known direction.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// SortItem is the sealed set of sort specifications.
type SortItem interface {
	sortNode()
}

// AttributeSort sorts by the values of an attribute.
type AttributeSort struct {
	AttributeIdentifier string
	Direction           SortDirection
}

func (AttributeSort) sortNode() {}

// MeasureSort sorts by a measure, optionally located by attribute elements
// in the other dimension.
type MeasureSort struct {
	Direction SortDirection
	Locators  []Locator
}

func (MeasureSort) sortNode() {}

// Locator addresses one column or row of the result.
type Locator interface {
	locatorNode()
}

// AttributeLocator pins an attribute to one element.
type AttributeLocator struct {
	AttributeIdentifier string
	Element             string
}

func (AttributeLocator) locatorNode() {}

// MeasureLocator selects a measure.
type MeasureLocator struct {
	MeasureIdentifier string
}

func (MeasureLocator) locatorNode() {}

// NewAttributeSort sorts by the attribute with the given local identifier.
func NewAttributeSort(attributeLocalID string, dir SortDirection) AttributeSort {
	return AttributeSort{AttributeIdentifier: attributeLocalID, Direction: dir}
}

// NewMeasureSort sorts by the measure with the given local identifier.
// Attribute locators, if any, precede the measure locator.
func NewMeasureSort(measureLocalID string, dir SortDirection, attributeLocators ...AttributeLocator) MeasureSort {
	locators := make([]Locator, 0, len(attributeLocators)+1)
	for _, l := range attributeLocators {
		locators = append(locators, l)
	}
	locators = append(locators, MeasureLocator{MeasureIdentifier: measureLocalID})
	return MeasureSort{Direction: dir, Locators: locators}
}
