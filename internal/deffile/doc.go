// Package deffile reads execution definitions, insights and datasets from
// YAML or CUE documents.
//
// Documents mirror the model: buckets of attributes and measures, filters,
// sorts, dimensions and post-processing. Decoding only checks document
// shape; all semantic validation is left to the model constructors, whose
// errors are returned unchanged.
//
// A definition document looks like:
//
//	workspace: ws1
//	buckets:
//	  - localIdentifier: view
//	    items:
//	      - attribute:
//	          localIdentifier: a1
//	          displayForm: {identifier: label.region}
//	      - measure:
//	          localIdentifier: m1
//	          item: {identifier: fact.amount, type: fact}
//	          aggregation: sum
//	filters:
//	  - positiveAttributeFilter:
//	      displayForm: {localIdentifier: a1}
//	      in: [East, West]
//	sortBy:
//	  - attributeSortItem: {attributeIdentifier: a1, direction: asc}
package deffile
