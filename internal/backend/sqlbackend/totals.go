package sqlbackend

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/model"
)

// errNativeWithPostFilters rejects native totals that cannot be
// re-aggregated because rows were removed after aggregation.
var errNativeWithPostFilters = errors.New("native totals are not supported together with measure value or ranking filters")

// grandFunc returns the measure values aggregated over all filtered rows.
type grandFunc func(ctx context.Context) ([]decimal.NullDecimal, error)

// computeTotals returns one total row per total type, in order of first
// appearance. Values follow the measure positions; measures without a
// total of that type are null.
func computeTotals(ctx context.Context, totals []model.Total, pl *plan, tbl *table, grand grandFunc) ([]execution.TotalRow, error) {
	if len(totals) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(pl.measures))
	for i, m := range pl.measures {
		index[m.localID] = i
	}

	var rows []execution.TotalRow
	var native []decimal.NullDecimal
	for _, t := range totals {
		i, ok := index[t.MeasureIdentifier]
		if !ok {
			return nil, fmt.Errorf("total on unknown measure %q", t.MeasureIdentifier)
		}
		r := slices.IndexFunc(rows, func(row execution.TotalRow) bool { return row.Type == t.Type })
		if r < 0 {
			rows = append(rows, execution.TotalRow{Type: t.Type, Values: make([]decimal.NullDecimal, len(pl.measures))})
			r = len(rows) - 1
		}

		if t.Type == model.TotalNat {
			if pl.postFiltered {
				return nil, errNativeWithPostFilters
			}
			if native == nil {
				var err error
				if native, err = grand(ctx); err != nil {
					return nil, fmt.Errorf("native totals: %w", err)
				}
			}
			rows[r].Values[i] = native[i]
			continue
		}

		value, err := aggregateColumn(t.Type, tbl.column(i))
		if err != nil {
			return nil, err
		}
		rows[r].Values[i] = value
	}
	return rows, nil
}

// aggregateColumn computes a total over the non-null values of a column.
// A column without values totals to null.
func aggregateColumn(typ model.TotalType, column []decimal.NullDecimal) (decimal.NullDecimal, error) {
	var values []decimal.Decimal
	for _, v := range column {
		if v.Valid {
			values = append(values, v.Decimal)
		}
	}
	if len(values) == 0 {
		return decimal.NullDecimal{}, nil
	}

	var out decimal.Decimal
	switch typ {
	case model.TotalSum:
		out = decimal.Sum(values[0], values[1:]...)
	case model.TotalAvg:
		out = decimal.Avg(values[0], values[1:]...)
	case model.TotalMax:
		out = decimal.Max(values[0], values[1:]...)
	case model.TotalMin:
		out = decimal.Min(values[0], values[1:]...)
	case model.TotalMed:
		slices.SortFunc(values, decimal.Decimal.Cmp)
		n := len(values)
		if n%2 == 1 {
			out = values[n/2]
		} else {
			out = values[n/2-1].Add(values[n/2]).Div(decimal.NewFromInt(2))
		}
	default:
		return decimal.NullDecimal{}, fmt.Errorf("unsupported total type %q", typ)
	}
	return decimal.NewNullDecimal(out), nil
}
