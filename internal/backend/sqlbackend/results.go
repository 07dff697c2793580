package sqlbackend

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/execution"
)

// DefaultMaxResults bounds the results a backend keeps in memory.
const DefaultMaxResults = 256

// storedResult is a complete result held as one page covering everything.
type storedResult struct {
	workspace string
	full      *execution.Page
}

// resultStore keeps results by id and evicts the oldest beyond max.
//
// Thread-safety: resultStore is safe for concurrent use via internal mutex.
type resultStore struct {
	mu      sync.Mutex
	max     int
	order   []string
	results map[string]*storedResult
}

func newResultStore(max int) *resultStore {
	return &resultStore{max: max, results: make(map[string]*storedResult)}
}

// put stores r under id and returns the ids evicted to make room.
func (s *resultStore) put(id string, r *storedResult) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[id] = r
	s.order = append(s.order, id)

	var evicted []string
	for s.max > 0 && len(s.order) > s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.results, oldest)
		evicted = append(evicted, oldest)
	}
	return evicted
}

// get returns the result with id if it belongs to workspace.
func (s *resultStore) get(workspace, id string) (*storedResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[id]
	if !ok || r.workspace != workspace {
		return nil, false
	}
	return r, true
}

func (s *resultStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// slicePage cuts window w out of the complete page full. Windows reaching
// past a dimension are clipped; windows starting past it are empty there.
func slicePage(full *execution.Page, w execution.Window) (*execution.Page, error) {
	n := len(full.Count)
	if len(w.Offset) != n || len(w.Limit) != n {
		return nil, fmt.Errorf("window has %d offsets and %d limits for a %d-dimensional result", len(w.Offset), len(w.Limit), n)
	}
	lo := make([]int, n)
	hi := make([]int, n)
	for d := range n {
		if w.Offset[d] < 0 || w.Limit[d] < 0 {
			return nil, fmt.Errorf("window %v+%v is negative", w.Offset, w.Limit)
		}
		lo[d] = min(w.Offset[d], full.Count[d])
		hi[d] = min(lo[d]+w.Limit[d], full.Count[d])
	}

	page := &execution.Page{
		Offset:  lo,
		Count:   make([]int, n),
		Headers: make([][][]execution.ResultHeader, n),
		Totals:  make([][]execution.TotalRow, n),
	}
	for d := range n {
		page.Count[d] = hi[d] - lo[d]
		page.Headers[d] = make([][]execution.ResultHeader, len(full.Headers[d]))
		for h, positions := range full.Headers[d] {
			page.Headers[d][h] = append([]execution.ResultHeader{}, positions[lo[d]:hi[d]]...)
		}
	}

	if full.Data != nil {
		switch n {
		case 1:
			page.Data = [][]decimal.NullDecimal{append([]decimal.NullDecimal{}, full.Data[0][lo[0]:hi[0]]...)}
		case 2:
			page.Data = make([][]decimal.NullDecimal, 0, page.Count[0])
			for _, row := range full.Data[lo[0]:hi[0]] {
				page.Data = append(page.Data, append([]decimal.NullDecimal{}, row[lo[1]:hi[1]]...))
			}
		}
	}

	if n == 2 {
		for d, rows := range full.Totals {
			other := 1 - d
			for _, t := range rows {
				page.Totals[d] = append(page.Totals[d], execution.TotalRow{
					Type:   t.Type,
					Values: append([]decimal.NullDecimal{}, t.Values[lo[other]:hi[other]]...),
				})
			}
		}
	}
	return page, nil
}
