// Package queryir is the relational intermediate representation that
// execution definitions are planned into before SQL generation.
//
// A plan is a chain of stages, innermost first:
//
//	Aggregate  grouped aggregation over one table, with a WHERE predicate
//	Project    computed columns over the previous stage (arithmetic measures)
//	Filter     post-aggregation predicate (measure value filters)
//	Rank       keep the top or bottom N rows by an expression, ties included
//	Order      final ordering
//
// Post-aggregation stages apply in the order they are chained, so a
// Filter followed by a Rank is a different query from a Rank followed by
// a Filter.
//
// Query, Expr and Predicate are sealed interfaces using the marker method
// pattern. Backend compilers switch over them exhaustively.
//
// Literal values are strings or exact decimals (Str, Num). There are no
// floats in the IR; a backend converts decimals to its own numeric type
// when binding parameters.
package queryir
