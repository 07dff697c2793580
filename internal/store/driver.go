package store

import (
	"database/sql"
	"slices"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver registered by this package.
const DriverName = "sqlite3_execdef"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterAggregator("median", newMedianAggregator, true)
		},
	})
}

// medianAggregator implements MEDIAN(x). NULL and non-numeric values are
// ignored; an empty group yields NULL.
type medianAggregator struct {
	values []float64
}

func newMedianAggregator() *medianAggregator {
	return &medianAggregator{}
}

func (m *medianAggregator) Step(v any) {
	switch x := v.(type) {
	case int64:
		m.values = append(m.values, float64(x))
	case float64:
		m.values = append(m.values, x)
	}
}

func (m *medianAggregator) Done() any {
	n := len(m.values)
	if n == 0 {
		return nil
	}
	slices.Sort(m.values)
	if n%2 == 1 {
		return m.values[n/2]
	}
	return (m.values[n/2-1] + m.values[n/2]) / 2
}
