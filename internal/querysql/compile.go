// Package querysql compiles queryir plans to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/queryir"
)

// rankColumn holds the window rank inside compiled Rank stages.
const rankColumn = "__rank"

// SQLCompiler compiles queryir plans to SQL for SQLite.
//
// Every compiled query ends with an ORDER BY that includes the group
// columns as a tiebreaker, so results are deterministic. Literal values
// are always bound as parameters, never interpolated.
type SQLCompiler struct {
	// next numbers the derived-table aliases of one compilation.
	next int
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a plan to SQL. Returns (sql, params, error).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(q); err != nil {
		return "", nil, err
	}
	c.next = 0

	var keys []queryir.OrderKey
	inner := q
	if o, ok := q.(queryir.Order); ok {
		keys = o.Keys
		inner = o.Input
	}

	sql, params, err := c.compileQuery(inner)
	if err != nil {
		return "", nil, err
	}

	orderSQL, orderParams, err := c.compileOrderBy(keys, queryir.KeyColumns(q))
	if err != nil {
		return "", nil, err
	}
	if orderSQL == "" {
		return sql, params, nil
	}
	alias := c.alias()
	sql = fmt.Sprintf("SELECT %s FROM (%s) AS %s ORDER BY %s",
		columnList(queryir.Columns(q)), sql, alias, orderSQL)
	return sql, append(params, orderParams...), nil
}

func (c *SQLCompiler) alias() string {
	c.next++
	return fmt.Sprintf("q%d", c.next)
}

func (c *SQLCompiler) compileQuery(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case queryir.Aggregate:
		return c.compileAggregate(query)
	case queryir.Project:
		return c.compileProject(query)
	case queryir.Filter:
		return c.compileFilter(query)
	case queryir.Rank:
		return c.compileRank(query)
	case queryir.Order:
		// Inner orderings do not survive derived tables; only the
		// outermost Order is honored.
		return c.compileQuery(query.Input)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileAggregate emits SELECT ... FROM table WHERE ... GROUP BY ...
func (c *SQLCompiler) compileAggregate(q queryir.Aggregate) (string, []any, error) {
	var params []any
	cols := make([]string, 0, len(q.GroupBy)+len(q.Values))
	groups := make([]string, 0, len(q.GroupBy))
	for _, n := range q.GroupBy {
		sql, p, err := c.compileExpr(n.Expr)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, sql+" AS "+quoteIdent(n.Alias))
		groups = append(groups, sql)
		params = append(params, p...)
	}
	for _, n := range q.Values {
		sql, p, err := c.compileExpr(n.Expr)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, sql+" AS "+quoteIdent(n.Alias))
		params = append(params, p...)
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(q.From))
	if q.Where != nil {
		where, p, err := c.compilePredicate(q.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile where: %w", err)
		}
		sql += " WHERE " + where
		params = append(params, p...)
	}
	if len(groups) > 0 {
		sql += " GROUP BY " + strings.Join(groups, ", ")
		// GROUP BY parameters repeat those of the select list.
		for _, n := range q.GroupBy {
			_, p, err := c.compileExpr(n.Expr)
			if err != nil {
				return "", nil, err
			}
			params = append(params, p...)
		}
	}
	return sql, params, nil
}

func (c *SQLCompiler) compileProject(q queryir.Project) (string, []any, error) {
	input, params, err := c.compileQuery(q.Input)
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, 0, len(q.Columns))
	var colParams []any
	for _, n := range q.Columns {
		sql, p, err := c.compileExpr(n.Expr)
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, sql+" AS "+quoteIdent(n.Alias))
		colParams = append(colParams, p...)
	}
	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s", strings.Join(cols, ", "), input, c.alias())
	return sql, append(colParams, params...), nil
}

func (c *SQLCompiler) compileFilter(q queryir.Filter) (string, []any, error) {
	input, params, err := c.compileQuery(q.Input)
	if err != nil {
		return "", nil, err
	}
	where, whereParams, err := c.compilePredicate(q.Where)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s WHERE %s",
		columnList(queryir.Columns(q)), input, c.alias(), where)
	return sql, append(params, whereParams...), nil
}

// compileRank keeps rows ranked within the limit using RANK(), so ties at
// the boundary are all kept.
func (c *SQLCompiler) compileRank(q queryir.Rank) (string, []any, error) {
	input, params, err := c.compileQuery(q.Input)
	if err != nil {
		return "", nil, err
	}
	by, byParams, err := c.compileExpr(q.By)
	if err != nil {
		return "", nil, err
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	cols := columnList(queryir.Columns(q))
	ranked := fmt.Sprintf("SELECT %s, RANK() OVER (ORDER BY (%s) IS NULL ASC, %s %s) AS %s FROM (%s) AS %s",
		cols, by, by, dir, quoteIdent(rankColumn), input, c.alias())
	sql := fmt.Sprintf("SELECT %s FROM (%s) AS %s WHERE %s <= ?",
		cols, ranked, c.alias(), quoteIdent(rankColumn))

	all := append(append(byParams, byParams...), params...)
	return sql, append(all, int64(q.Limit)), nil
}

// compileOrderBy returns the ORDER BY list: the requested keys followed by
// the row key columns as a deterministic tiebreaker.
func (c *SQLCompiler) compileOrderBy(keys []queryir.OrderKey, tiebreak []string) (string, []any, error) {
	var parts []string
	var params []any
	for _, k := range keys {
		sql, p, err := c.compileExpr(k.Expr)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if k.Descending {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", sql, dir))
		params = append(params, p...)
	}
	for _, col := range tiebreak {
		parts = append(parts, quoteIdent(col)+" COLLATE BINARY ASC")
	}
	return strings.Join(parts, ", "), params, nil
}

func (c *SQLCompiler) compileExpr(e queryir.Expr) (string, []any, error) {
	switch x := e.(type) {
	case queryir.Col:
		return quoteIdent(x.Name), nil, nil
	case queryir.Str:
		return "?", []any{x.Value}, nil
	case queryir.Num:
		return "?", []any{NumericParam(x.Value)}, nil
	case queryir.Agg:
		return c.compileAgg(x)
	case queryir.Arith:
		left, lp, err := c.compileExpr(x.Left)
		if err != nil {
			return "", nil, err
		}
		right, rp, err := c.compileExpr(x.Right)
		if err != nil {
			return "", nil, err
		}
		params := append(lp, rp...)
		if x.Op == queryir.OpDiv {
			return fmt.Sprintf("(CAST(%s AS REAL) / NULLIF(%s, 0))", left, right), params, nil
		}
		return fmt.Sprintf("(%s %s %s)", left, x.Op, right), params, nil
	case queryir.Coalesce:
		inner, p, err := c.compileExpr(x.Expr)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("COALESCE(%s, ?)", inner), append(p, NumericParam(x.Default)), nil
	default:
		return "", nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

// compileAgg emits FUNC([DISTINCT] arg), with a per-aggregate filter
// rendered as CASE WHEN filter THEN arg END.
func (c *SQLCompiler) compileAgg(a queryir.Agg) (string, []any, error) {
	arg, params, err := c.compileExpr(a.Arg)
	if err != nil {
		return "", nil, err
	}
	if a.Filter != nil {
		cond, cp, err := c.compilePredicate(a.Filter)
		if err != nil {
			return "", nil, err
		}
		arg = fmt.Sprintf("CASE WHEN %s THEN %s END", cond, arg)
		params = append(cp, params...)
	}
	distinct := ""
	if a.Distinct {
		distinct = "DISTINCT "
	}
	return fmt.Sprintf("%s(%s%s)", a.Func, distinct, arg), params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
// Values are never interpolated.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.In:
		return c.compileIn(pred)
	case queryir.Between:
		expr, params, err := c.compileExpr(pred.Expr)
		if err != nil {
			return "", nil, err
		}
		low, lp, err := c.compileExpr(pred.Low)
		if err != nil {
			return "", nil, err
		}
		high, hp, err := c.compileExpr(pred.High)
		if err != nil {
			return "", nil, err
		}
		op := "BETWEEN"
		if pred.Negate {
			op = "NOT BETWEEN"
		}
		params = append(append(params, lp...), hp...)
		return fmt.Sprintf("%s %s %s AND %s", expr, op, low, high), params, nil
	case queryir.Compare:
		left, lp, err := c.compileExpr(pred.Left)
		if err != nil {
			return "", nil, err
		}
		right, rp, err := c.compileExpr(pred.Right)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s %s", left, pred.Op, right), append(lp, rp...), nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		var parts []string
		var params []any
		for _, sub := range pred.Predicates {
			sql, p, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			params = append(params, p...)
		}
		return strings.Join(parts, " AND "), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileIn(in queryir.In) (string, []any, error) {
	expr, params, err := c.compileExpr(in.Expr)
	if err != nil {
		return "", nil, err
	}
	if len(in.Values) == 0 {
		if in.Negate {
			return "1 = 1", nil, nil
		}
		return "1 = 0", nil, nil
	}
	marks := make([]string, len(in.Values))
	for i, v := range in.Values {
		marks[i] = "?"
		params = append(params, v)
	}
	list := strings.Join(marks, ", ")
	if in.Negate {
		// The expression is repeated, and so are its parameters.
		all := append(append([]any{}, params[:len(params)-len(in.Values)]...), params...)
		return fmt.Sprintf("(%s IS NULL OR %s NOT IN (%s))", expr, expr, list), all, nil
	}
	return fmt.Sprintf("%s IN (%s)", expr, list), params, nil
}

// NumericParam converts an exact decimal into the SQLite parameter type
// that compares numerically: int64 when integral, float64 otherwise.
func NumericParam(d decimal.Decimal) any {
	if d.IsInteger() {
		if i := d.IntPart(); decimal.NewFromInt(i).Equal(d) {
			return i
		}
	}
	return d.InexactFloat64()
}

func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteIdent is exported for schema statements built outside plans.
func QuoteIdent(name string) string {
	return quoteIdent(name)
}
