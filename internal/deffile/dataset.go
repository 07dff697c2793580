package deffile

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/model"
	"github.com/roach88/execdef/internal/store"
)

// StoreDataset converts d into a store dataset stamped with loadedAt.
// Number cells become exact decimals and date cells ISO date strings.
func (d *DatasetDoc) StoreDataset(loadedAt time.Time) (store.Dataset, error) {
	ds := store.Dataset{
		Workspace: d.Workspace,
		Columns:   make([]store.Column, len(d.Columns)),
		Rows:      make([][]any, len(d.Rows)),
		Catalog:   make([]store.CatalogItem, len(d.Catalog)),
		LoadedAt:  loadedAt,
	}
	for i, c := range d.Columns {
		ds.Columns[i] = store.Column{Name: c.Name, Type: store.ColumnType(c.Type)}
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return store.Dataset{}, docErr(fmt.Sprintf("rows[%d]", i), "row has %d values, want %d", len(row), len(d.Columns))
		}
		out := make([]any, len(row))
		for j, v := range row {
			cell, err := convertCell(ds.Columns[j].Type, v)
			if err != nil {
				return store.Dataset{}, docErr(fmt.Sprintf("rows[%d][%d]", i, j), "%v", err)
			}
			out[j] = cell
		}
		ds.Rows[i] = out
	}
	for i, item := range d.Catalog {
		ds.Catalog[i] = store.CatalogItem{
			Kind:       store.CatalogKind(item.Kind),
			Identifier: item.Identifier,
			URI:        item.URI,
			Column:     item.Column,
			Title:      item.Title,
		}
	}
	return ds, nil
}

// InsightRecords checks every insight of d and returns them as store
// records. The record document is the insight's JSON encoding.
func (d *DatasetDoc) InsightRecords() ([]store.InsightRecord, error) {
	records := make([]store.InsightRecord, 0, len(d.Insights))
	for i := range d.Insights {
		doc := &d.Insights[i]
		if doc.URI == "" {
			return nil, docErr(fmt.Sprintf("insights[%d].uri", i), "insight uri is required")
		}
		insight, err := doc.Insight()
		if err != nil {
			return nil, fmt.Errorf("insights[%d]: %w", i, err)
		}
		// Catch dangling local references before the insight is saved.
		if _, err := model.NewDefForInsight(d.Workspace, insight); err != nil {
			return nil, fmt.Errorf("insights[%d]: %w", i, err)
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode insight %q: %w", doc.Identifier, err)
		}
		records = append(records, store.InsightRecord{
			Workspace:  d.Workspace,
			Identifier: doc.Identifier,
			URI:        doc.URI,
			Title:      doc.Title,
			Document:   body,
		})
	}
	return records, nil
}

// DecodeInsight decodes an insight record document.
func DecodeInsight(data []byte) (*model.Insight, error) {
	var doc InsightDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DocumentError{Message: fmt.Sprintf("decode insight: %v", err)}
	}
	return doc.Insight()
}

func convertCell(typ store.ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case store.ColumnNumber:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		return d, nil
	case store.ColumnDate:
		switch x := v.(type) {
		case time.Time:
			return x.Format(time.DateOnly), nil
		case string:
			return x, nil
		}
		return nil, fmt.Errorf("want a date, got %T", v)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return nil, fmt.Errorf("want text, got %T", v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	case *big.Float:
		return decimal.NewFromString(x.Text('f', -1))
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid number %q", x)
		}
		return d, nil
	}
	return decimal.Decimal{}, fmt.Errorf("want a number, got %T", v)
}
