package sqlbackend

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/execution"
	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

// assemble lays the rows of tbl out along the dimensions of pl. It returns
// the response envelope without result id and the page covering the whole
// result.
func assemble(pl *plan, tbl *table, totals []execution.TotalRow) (*execution.Response, *execution.Page) {
	l := pl.layout
	resp := &execution.Response{
		Dimensions: make([]execution.DimensionDescriptor, l.dims),
		TotalCount: make([]int, l.dims),
	}
	page := &execution.Page{
		Offset:  make([]int, l.dims),
		Count:   make([]int, l.dims),
		Headers: make([][][]execution.ResultHeader, l.dims),
		Totals:  make([][]execution.TotalRow, l.dims),
	}

	if d := l.attrDim; d >= 0 {
		descs := make([]execution.HeaderDescriptor, len(pl.attributes))
		headers := make([][]execution.ResultHeader, len(pl.attributes))
		for h, a := range pl.attributes {
			descs[h] = execution.HeaderDescriptor{
				Kind:        execution.HeaderAttribute,
				LocalID:     a.localID,
				Name:        a.title,
				DisplayForm: a.item.Identifier,
				Date:        a.item.Kind == store.KindDataSet,
			}
			headers[h] = make([]execution.ResultHeader, len(tbl.keys))
			for r, keys := range tbl.keys {
				if v := keys[h]; v != nil {
					headers[h][r] = execution.ResultHeader{Name: *v, URI: ElementURI(a.item.URI, *v)}
				}
			}
		}
		resp.Dimensions[d] = execution.DimensionDescriptor{Headers: descs}
		resp.TotalCount[d] = len(tbl.keys)
		page.Headers[d] = headers
		page.Totals[d] = totals
	}

	if d := l.measureDim; d >= 0 {
		measures := make([]execution.MeasureDescriptor, len(pl.measures))
		headers := make([]execution.ResultHeader, len(pl.measures))
		for i, m := range pl.measures {
			measures[i] = execution.MeasureDescriptor{LocalID: m.localID, Name: m.name, Format: m.format}
			headers[i] = execution.ResultHeader{Name: m.name, MeasureIndex: i}
		}
		resp.Dimensions[d] = execution.DimensionDescriptor{Headers: []execution.HeaderDescriptor{{
			Kind:     execution.HeaderMeasureGroup,
			LocalID:  model.MeasureGroupIdentifier,
			Measures: measures,
		}}}
		resp.TotalCount[d] = len(pl.measures)
		page.Headers[d] = [][]execution.ResultHeader{headers}
	}

	switch {
	case l.measureDim < 0:
		// Attributes only: no data.
	case l.attrDim < 0:
		row := make([]decimal.NullDecimal, len(pl.measures))
		if len(tbl.values) > 0 {
			copy(row, tbl.values[0])
		}
		page.Data = [][]decimal.NullDecimal{row}
	case l.attrDim == 0:
		page.Data = make([][]decimal.NullDecimal, len(tbl.values))
		for r, values := range tbl.values {
			page.Data[r] = append([]decimal.NullDecimal(nil), values...)
		}
	default:
		page.Data = make([][]decimal.NullDecimal, len(pl.measures))
		for m := range pl.measures {
			page.Data[m] = tbl.column(m)
		}
	}

	copy(page.Count, resp.TotalCount)
	return resp, page
}
