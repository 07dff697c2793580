package execution

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/execdef/internal/model"
)

// DataView is a materialized window of a result. Offset, Count and
// TotalCount have one entry per dimension. Data, Headers and Totals follow
// the layout of Page, restricted to the window.
type DataView struct {
	Definition *model.Definition
	Dimensions []DimensionDescriptor

	Offset     []int
	Count      []int
	TotalCount []int

	Data    [][]decimal.NullDecimal
	Headers [][][]ResultHeader
	Totals  [][]TotalRow

	result *Result
}

// IsEmpty reports whether the view holds no positions. Views of windows
// outside the result are empty but still report TotalCount.
func (v *DataView) IsEmpty() bool {
	for _, c := range v.Count {
		if c == 0 {
			return true
		}
	}
	return len(v.Count) == 0
}

// Result returns the result the view was read from.
func (v *DataView) Result() *Result {
	return v.result
}

// Fingerprint identifies the view by its result and window.
func (v *DataView) Fingerprint() string {
	return v.result.Fingerprint() + windowSuffix(v.Offset, v.Count)
}

func windowSuffix(offset, count []int) string {
	var b strings.Builder
	for i := range offset {
		fmt.Fprintf(&b, "/%d:%d", offset[i], count[i])
	}
	return b.String()
}

func (r *Result) emptyView(offset []int) *DataView {
	n := len(r.response.TotalCount)
	v := &DataView{
		Definition: r.def,
		Dimensions: r.Dimensions(),
		Offset:     append([]int(nil), offset...),
		Count:      make([]int, n),
		TotalCount: r.TotalCount(),
		Headers:    make([][][]ResultHeader, n),
		Totals:     make([][]TotalRow, n),
		result:     r,
	}
	for d := range n {
		v.Headers[d] = make([][]ResultHeader, len(r.response.Dimensions[d].Headers))
		for h := range v.Headers[d] {
			v.Headers[d][h] = []ResultHeader{}
		}
	}
	return v
}

// view slices window w out of page p and applies post-processing.
func (r *Result) view(p *Page, w Window) *DataView {
	n := len(w.Offset)
	lo := make([]int, n)
	hi := make([]int, n)
	for d := range n {
		lo[d] = w.Offset[d] - p.Offset[d]
		hi[d] = lo[d] + w.Limit[d]
	}

	v := &DataView{
		Definition: r.def,
		Dimensions: r.Dimensions(),
		Offset:     append([]int(nil), w.Offset...),
		Count:      append([]int(nil), w.Limit...),
		TotalCount: r.TotalCount(),
		Headers:    make([][][]ResultHeader, n),
		Totals:     make([][]TotalRow, n),
		result:     r,
	}

	for d := range n {
		v.Headers[d] = make([][]ResultHeader, len(p.Headers[d]))
		for h, positions := range p.Headers[d] {
			v.Headers[d][h] = append([]ResultHeader(nil), positions[lo[d]:hi[d]]...)
		}
	}

	if p.Data != nil {
		switch n {
		case 1:
			v.Data = [][]decimal.NullDecimal{append([]decimal.NullDecimal(nil), p.Data[0][lo[0]:hi[0]]...)}
		case 2:
			v.Data = make([][]decimal.NullDecimal, 0, w.Limit[0])
			for _, row := range p.Data[lo[0]:hi[0]] {
				v.Data = append(v.Data, append([]decimal.NullDecimal(nil), row[lo[1]:hi[1]]...))
			}
		}
	}

	if n == 2 {
		for d := range min(len(p.Totals), 2) {
			other := 1 - d
			for _, t := range p.Totals[d] {
				values := []decimal.NullDecimal{}
				if len(t.Values) >= hi[other] {
					values = append(values, t.Values[lo[other]:hi[other]]...)
				}
				v.Totals[d] = append(v.Totals[d], TotalRow{Type: t.Type, Values: values})
			}
		}
	}

	postProcess(r.def.PostProcessing(), v)
	return v
}

// postProcess applies date formatting and header casing to the headers of v.
func postProcess(pp *model.PostProcessing, v *DataView) {
	if pp == nil || pp.IsZero() {
		return
	}
	var caser *cases.Caser
	switch pp.HeaderCasing {
	case model.CasingUpper:
		c := cases.Upper(language.Und)
		caser = &c
	case model.CasingLower:
		c := cases.Lower(language.Und)
		caser = &c
	}

	for d, headers := range v.Headers {
		for h, positions := range headers {
			var desc HeaderDescriptor
			if h < len(v.Dimensions[d].Headers) {
				desc = v.Dimensions[d].Headers[h]
			}
			for i, hdr := range positions {
				if pp.DateFormat != "" && desc.Kind == HeaderAttribute && desc.Date {
					if t, err := time.Parse(model.DateFormat, hdr.Name); err == nil {
						hdr.Name = t.Format(pp.DateFormat)
					}
				}
				if caser != nil {
					hdr.Name = caser.String(hdr.Name)
				}
				positions[i] = hdr
			}
		}
	}
}
