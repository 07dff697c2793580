package sqlbackend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/queryir"
	"github.com/roach88/execdef/internal/querysql"
	"github.com/roach88/execdef/internal/store"
)

// table is the row set of a plan query: attribute element values and
// measure values per row. NULL elements are nil.
type table struct {
	keys   [][]*string
	values [][]decimal.NullDecimal
}

// column returns the values of measure i.
func (t *table) column(i int) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, len(t.values))
	for r, row := range t.values {
		out[r] = row[i]
	}
	return out
}

// runQuery compiles q and reads its rows. The first nkeys columns are
// attribute elements, the remaining nvalues columns measure values.
func runQuery(ctx context.Context, st *store.Store, q queryir.Query, nkeys, nvalues int) (*table, error) {
	sqlText, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	slog.Debug("running query", "sql", sqlText, "params", len(params))

	rows, err := st.Query(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	tbl := &table{}
	raw := make([]any, nkeys+nvalues)
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		keys := make([]*string, nkeys)
		for i := range nkeys {
			keys[i] = elementValueOf(raw[i])
		}
		values := make([]decimal.NullDecimal, nvalues)
		for i := range nvalues {
			v, err := measureValueOf(raw[nkeys+i])
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", len(tbl.keys), nkeys+i, err)
			}
			values[i] = v
		}
		tbl.keys = append(tbl.keys, keys)
		tbl.values = append(tbl.values, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tbl, nil
}

func elementValueOf(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		s = fmt.Sprint(x)
	}
	return &s
}

func measureValueOf(v any) (decimal.NullDecimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(x)), nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(x)), nil
	case []byte:
		d, err := decimal.NewFromString(string(x))
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	}
	return decimal.NullDecimal{}, fmt.Errorf("unexpected value type %T", v)
}
