// Package model defines the execution definition: an immutable, validated
// description of an analytical query against one workspace.
//
// A Definition is built from buckets (or loose items) plus filters, then
// derived further with the builder functions (WithDimensions, WithSorting,
// WithPostProcessing, WithFilters). Every constructor and builder validates
// the complete result before returning it, so a *Definition that exists is
// always fully resolved: every local identifier it mentions points at one of
// its own attributes or measures.
//
// Identity:
//
//	Fingerprint(def)  canonical JSON of the normalized definition tree
//	Equal(a, b)       structural comparison over the same normalization
//
// Both treat attribute and measure collections and element sets as
// unordered, and filters, sorts, locators and dimensions as ordered.
// Buckets are construction input: their items reach the identity as
// attributes and measures, and their totals as a sorted set. Bucket names
// and bucket order are not part of it.
//
// Sealed interfaces (Ref, BucketItem, MeasureDefinition, Filter, SortItem,
// Locator, DimensionSpec, Preparation) use the marker method pattern so
// every switch over them is exhaustive within this package.
package model
