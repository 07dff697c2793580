package queryir

import (
	"fmt"
	"strings"
)

// ValidationError lists every structural problem found in a plan.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query plan: " + strings.Join(e.Problems, "; ")
}

// Validate checks that q is well formed: no nil nodes, unique non-empty
// aliases, column references that resolve against the stage input,
// aggregates only in Aggregate.Values and positive Rank limits.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.query(q)
	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

// query validates q and returns its output columns.
func (v *validator) query(q Query) map[string]bool {
	switch x := q.(type) {
	case nil:
		v.addf("nil query")
		return nil
	case Aggregate:
		if x.From == "" {
			v.addf("aggregate without source table")
		}
		if x.Where != nil {
			v.predicate(x.Where, nil, false)
		}
		if len(x.GroupBy)+len(x.Values) == 0 {
			v.addf("aggregate without columns")
		}
		seen := make(map[string]bool)
		for _, n := range x.GroupBy {
			v.named(n, seen)
			v.expr(n.Expr, nil, false)
		}
		for _, n := range x.Values {
			v.named(n, seen)
			v.expr(n.Expr, nil, true)
		}
		return seen
	case Project:
		in := v.query(x.Input)
		seen := make(map[string]bool)
		if len(x.Columns) == 0 {
			v.addf("projection without columns")
		}
		for _, n := range x.Columns {
			v.named(n, seen)
			v.expr(n.Expr, in, false)
		}
		return seen
	case Filter:
		in := v.query(x.Input)
		if x.Where == nil {
			v.addf("filter without predicate")
		} else {
			v.predicate(x.Where, in, false)
		}
		return in
	case Rank:
		in := v.query(x.Input)
		if x.Limit < 1 {
			v.addf("rank limit must be positive, got %d", x.Limit)
		}
		v.expr(x.By, in, false)
		return in
	case Order:
		in := v.query(x.Input)
		for _, k := range x.Keys {
			v.expr(k.Expr, in, false)
		}
		return in
	}
	v.addf("unknown query type %T", q)
	return nil
}

func (v *validator) named(n Named, seen map[string]bool) {
	if n.Alias == "" {
		v.addf("column without alias")
		return
	}
	if seen[n.Alias] {
		v.addf("duplicate column alias %q", n.Alias)
	}
	seen[n.Alias] = true
}

// expr validates e. cols is nil when e reads table columns, which are not
// known to the IR.
func (v *validator) expr(e Expr, cols map[string]bool, aggregateAllowed bool) {
	switch x := e.(type) {
	case nil:
		v.addf("nil expression")
	case Col:
		if x.Name == "" {
			v.addf("column reference without name")
		} else if cols != nil && !cols[x.Name] {
			v.addf("unknown column %q", x.Name)
		}
	case Str, Num:
	case Agg:
		if !aggregateAllowed {
			v.addf("aggregate %s outside aggregate stage", x.Func)
		}
		v.expr(x.Arg, cols, false)
		if x.Filter != nil {
			v.predicate(x.Filter, cols, false)
		}
	case Arith:
		v.expr(x.Left, cols, aggregateAllowed)
		v.expr(x.Right, cols, aggregateAllowed)
	case Coalesce:
		v.expr(x.Expr, cols, aggregateAllowed)
	default:
		v.addf("unknown expression type %T", e)
	}
}

func (v *validator) predicate(p Predicate, cols map[string]bool, aggregateAllowed bool) {
	switch x := p.(type) {
	case nil:
		v.addf("nil predicate")
	case In:
		v.expr(x.Expr, cols, aggregateAllowed)
	case Between:
		v.expr(x.Expr, cols, aggregateAllowed)
		v.expr(x.Low, cols, aggregateAllowed)
		v.expr(x.High, cols, aggregateAllowed)
	case Compare:
		v.expr(x.Left, cols, aggregateAllowed)
		v.expr(x.Right, cols, aggregateAllowed)
	case And:
		for _, sub := range x.Predicates {
			v.predicate(sub, cols, aggregateAllowed)
		}
	default:
		v.addf("unknown predicate type %T", p)
	}
}
