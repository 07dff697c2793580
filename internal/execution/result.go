package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/execdef/internal/model"
)

// Result is the outcome of a successful execution. It holds the response
// envelope and the pages fetched so far; the envelope never changes.
type Result struct {
	def      *model.Definition
	defFP    string
	fp       string
	factory  ExecutionFactory
	env      environment
	response Response

	mu    sync.Mutex
	pages []*Page
}

// newResult takes the definition fingerprint memoized by the prepared
// execution.
func newResult(def *model.Definition, defFP string, factory ExecutionFactory, env environment, resp *Response) *Result {
	return &Result{
		def:      def,
		defFP:    defFP,
		fp:       defFP + "/" + resp.ResultID,
		factory:  factory,
		env:      env,
		response: cloneResponse(*resp),
	}
}

// Definition returns the executed definition.
func (r *Result) Definition() *model.Definition {
	return r.def
}

// ResultID returns the backend's result id.
func (r *Result) ResultID() string {
	return r.response.ResultID
}

// Dimensions returns the dimension descriptors.
func (r *Result) Dimensions() []DimensionDescriptor {
	return cloneResponse(r.response).Dimensions
}

// TotalCount returns the size of each dimension.
func (r *Result) TotalCount() []int {
	return append([]int(nil), r.response.TotalCount...)
}

// Fingerprint identifies the result: the definition fingerprint plus the
// backend result id.
func (r *Result) Fingerprint() string {
	return r.fp
}

// Equals reports whether both results have the same fingerprint.
func (r *Result) Equals(other *Result) bool {
	if other == nil {
		return false
	}
	return r.Fingerprint() == other.Fingerprint()
}

// Transform returns a prepared execution of the same definition, created by
// the factory that produced this result.
func (r *Result) Transform() PreparedExecution {
	return r.factory.ForDefinition(r.def)
}

// ReadAll returns a view of the whole result.
func (r *Result) ReadAll(ctx context.Context) (*DataView, error) {
	n := len(r.response.TotalCount)
	offset := make([]int, n)
	limit := make([]int, n)
	for i, total := range r.response.TotalCount {
		limit[i] = max(total, 1)
	}
	return r.ReadWindow(ctx, offset, limit)
}

// ReadWindow returns a view of the window at offset with the given limits,
// one per dimension. Windows reaching past the end of a dimension are
// clipped; windows starting past it yield an empty view. Windows covered
// by an already fetched page are served without calling the backend.
func (r *Result) ReadWindow(ctx context.Context, offset, limit []int) (*DataView, error) {
	if err := r.checkWindow(offset, limit); err != nil {
		return nil, err
	}

	window, empty := r.clip(offset, limit)
	if empty {
		return r.emptyView(offset), nil
	}

	if page := r.cachedPage(window); page != nil {
		return r.view(page, window), nil
	}

	fp := r.defFP
	workspace := r.def.Workspace()
	page, err := guarded(ctx, r.env.guard, "read page", backendErrorMapper(workspace, fp, "read page"),
		func(ctx context.Context) (*Page, error) {
			return r.env.backend.ReadPage(ctx, workspace, r.response.ResultID, window)
		})
	if err != nil {
		slog.Error("page fetch failed",
			"workspace", workspace,
			"result_id", r.response.ResultID,
			"error", err,
		)
		return nil, err
	}
	if err := checkPage(page, window, len(r.response.TotalCount)); err != nil {
		return nil, &ExecutionError{
			Code:        ErrCodeBackendExecution,
			Message:     "malformed page",
			Workspace:   workspace,
			Fingerprint: fp,
			Err:         err,
		}
	}

	r.mu.Lock()
	r.pages = append(r.pages, page)
	r.mu.Unlock()

	slog.Debug("page fetched",
		"result_id", r.response.ResultID,
		"offset", page.Offset,
		"count", page.Count,
	)
	return r.view(page, window), nil
}

func (r *Result) checkWindow(offset, limit []int) error {
	n := len(r.response.TotalCount)
	if len(offset) != n || len(limit) != n {
		return fmt.Errorf("invalid window: result has %d dimensions, got %d offsets and %d limits",
			n, len(offset), len(limit))
	}
	for i := range n {
		if offset[i] < 0 {
			return fmt.Errorf("invalid window: negative offset %d in dimension %d", offset[i], i)
		}
		if limit[i] <= 0 {
			return fmt.Errorf("invalid window: limit %d in dimension %d must be positive", limit[i], i)
		}
	}
	return nil
}

// clip limits the window to the result. empty is true when any offset lies
// outside its dimension.
func (r *Result) clip(offset, limit []int) (Window, bool) {
	w := Window{Offset: append([]int(nil), offset...), Limit: make([]int, len(limit))}
	for i, total := range r.response.TotalCount {
		if offset[i] >= total {
			return Window{}, true
		}
		w.Limit[i] = min(limit[i], total-offset[i])
	}
	return w, false
}

func (r *Result) cachedPage(w Window) *Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pages {
		if covers(p, w) {
			return p
		}
	}
	return nil
}

func covers(p *Page, w Window) bool {
	if len(p.Offset) != len(w.Offset) || len(p.Count) != len(w.Offset) {
		return false
	}
	for i := range w.Offset {
		if w.Offset[i] < p.Offset[i] || w.Offset[i]+w.Limit[i] > p.Offset[i]+p.Count[i] {
			return false
		}
	}
	return true
}

// checkPage verifies the page covers w and its arrays match its counts.
func checkPage(p *Page, w Window, dims int) error {
	if p == nil {
		return fmt.Errorf("nil page")
	}
	if !covers(p, w) {
		return fmt.Errorf("page at %v+%v does not cover window at %v+%v", p.Offset, p.Count, w.Offset, w.Limit)
	}
	if len(p.Headers) != dims {
		return fmt.Errorf("page has headers for %d dimensions, want %d", len(p.Headers), dims)
	}
	for d, headers := range p.Headers {
		for h, positions := range headers {
			if len(positions) != p.Count[d] {
				return fmt.Errorf("dimension %d header %d has %d positions, want %d", d, h, len(positions), p.Count[d])
			}
		}
	}
	if p.Data == nil {
		return nil
	}
	switch dims {
	case 1:
		if len(p.Data) != 1 || len(p.Data[0]) != p.Count[0] {
			return fmt.Errorf("one-dimensional page data does not match count %d", p.Count[0])
		}
	case 2:
		if len(p.Data) != p.Count[0] {
			return fmt.Errorf("page has %d rows, want %d", len(p.Data), p.Count[0])
		}
		for i, row := range p.Data {
			if len(row) != p.Count[1] {
				return fmt.Errorf("page row %d has %d values, want %d", i, len(row), p.Count[1])
			}
		}
	}
	return nil
}

func cloneResponse(resp Response) Response {
	out := Response{
		ResultID:   resp.ResultID,
		TotalCount: append([]int(nil), resp.TotalCount...),
		Dimensions: make([]DimensionDescriptor, len(resp.Dimensions)),
	}
	for i, d := range resp.Dimensions {
		headers := make([]HeaderDescriptor, len(d.Headers))
		for j, h := range d.Headers {
			h.Measures = append([]MeasureDescriptor(nil), h.Measures...)
			headers[j] = h
		}
		out.Dimensions[i] = DimensionDescriptor{Headers: headers}
	}
	return out
}
