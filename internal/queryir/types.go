package queryir

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Query is a relational plan stage.
type Query interface {
	queryNode()
}

// Expr is a scalar expression.
type Expr interface {
	exprNode()
}

// Predicate is a boolean condition.
type Predicate interface {
	predicateNode()
}

// Named binds an expression to an output column alias.
type Named struct {
	Alias string
	Expr  Expr
}

// Aggregate groups the rows of From by GroupBy and computes Values.
//
//	SELECT <GroupBy>, <Values> FROM <From> WHERE <Where> GROUP BY <GroupBy>
//
// With no GroupBy the result is a single row.
type Aggregate struct {
	From    string
	Where   Predicate // nil = all rows
	GroupBy []Named
	Values  []Named
}

func (Aggregate) queryNode() {}

// Project replaces the columns of Input with Columns. Col expressions in
// Columns refer to columns of Input.
type Project struct {
	Input   Query
	Columns []Named
}

func (Project) queryNode() {}

// Filter keeps the rows of Input satisfying Where.
type Filter struct {
	Input Query
	Where Predicate
}

func (Filter) queryNode() {}

// Rank keeps the rows of Input whose rank by By is at most Limit. Rows with
// equal values share a rank, so more than Limit rows may survive. NULL
// values rank last in both directions.
type Rank struct {
	Input      Query
	By         Expr
	Descending bool
	Limit      int
}

func (Rank) queryNode() {}

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Expr       Expr
	Descending bool
}

// Order sorts Input by Keys. Compilers append the group columns as a
// tiebreaker, so the order is total.
type Order struct {
	Input Query
	Keys  []OrderKey
}

func (Order) queryNode() {}

// Col references a column of the stage input (a table column for
// Aggregate, an alias of the previous stage otherwise).
type Col struct {
	Name string
}

func (Col) exprNode() {}

// Str is a string literal.
type Str struct {
	Value string
}

func (Str) exprNode() {}

// Num is an exact numeric literal.
type Num struct {
	Value decimal.Decimal
}

func (Num) exprNode() {}

// AggFunc is an aggregate function.
type AggFunc string

const (
	AggSum    AggFunc = "SUM"
	AggCount  AggFunc = "COUNT"
	AggAvg    AggFunc = "AVG"
	AggMin    AggFunc = "MIN"
	AggMax    AggFunc = "MAX"
	AggMedian AggFunc = "MEDIAN"
)

// Agg aggregates Arg. When Filter is set only rows satisfying it
// contribute. Agg is only valid inside Aggregate.Values.
type Agg struct {
	Func     AggFunc
	Arg      Expr
	Distinct bool
	Filter   Predicate
}

func (Agg) exprNode() {}

// ArithOp is a binary arithmetic operator.
type ArithOp string

const (
	OpAdd ArithOp = "+"
	OpSub ArithOp = "-"
	OpMul ArithOp = "*"
	OpDiv ArithOp = "/"
)

// Arith applies Op to Left and Right. Division by zero yields NULL.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

func (Arith) exprNode() {}

// Coalesce replaces NULL values of Expr with Default.
type Coalesce struct {
	Expr    Expr
	Default decimal.Decimal
}

func (Coalesce) exprNode() {}

// In tests membership of Expr in Values. Negate keeps NULL values of Expr
// and everything not listed.
type In struct {
	Expr   Expr
	Values []string
	Negate bool
}

func (In) predicateNode() {}

// Between tests Low <= Expr <= High.
type Between struct {
	Expr   Expr
	Low    Expr
	High   Expr
	Negate bool
}

func (Between) predicateNode() {}

// CompareOp is a comparison operator.
type CompareOp string

const (
	CmpEq CompareOp = "="
	CmpNe CompareOp = "<>"
	CmpLt CompareOp = "<"
	CmpLe CompareOp = "<="
	CmpGt CompareOp = ">"
	CmpGe CompareOp = ">="
)

// Compare compares Left with Right. NULL never satisfies a comparison.
type Compare struct {
	Left  Expr
	Op    CompareOp
	Right Expr
}

func (Compare) predicateNode() {}

// And holds when every predicate holds. Empty means true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Columns returns the output column aliases of q, in order.
func Columns(q Query) []string {
	switch x := q.(type) {
	case Aggregate:
		out := make([]string, 0, len(x.GroupBy)+len(x.Values))
		for _, n := range x.GroupBy {
			out = append(out, n.Alias)
		}
		for _, n := range x.Values {
			out = append(out, n.Alias)
		}
		return out
	case Project:
		out := make([]string, 0, len(x.Columns))
		for _, n := range x.Columns {
			out = append(out, n.Alias)
		}
		return out
	case Filter:
		return Columns(x.Input)
	case Rank:
		return Columns(x.Input)
	case Order:
		return Columns(x.Input)
	}
	return nil
}

// KeyColumns returns the group columns of the innermost Aggregate that are
// still present in q's output. They identify a row of q.
func KeyColumns(q Query) []string {
	var keys []string
	switch x := q.(type) {
	case Aggregate:
		for _, n := range x.GroupBy {
			keys = append(keys, n.Alias)
		}
		return keys
	case Project:
		inner := KeyColumns(x.Input)
		out := Columns(x)
		for _, k := range inner {
			if slices.Contains(out, k) {
				keys = append(keys, k)
			}
		}
		return keys
	case Filter:
		return KeyColumns(x.Input)
	case Rank:
		return KeyColumns(x.Input)
	case Order:
		return KeyColumns(x.Input)
	}
	return nil
}
