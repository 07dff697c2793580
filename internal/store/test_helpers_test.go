package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleDataset returns a small sales dataset for workspace.
func sampleDataset(workspace string) Dataset {
	return Dataset{
		Workspace: workspace,
		Columns: []Column{
			{Name: "region", Type: ColumnText},
			{Name: "order_date", Type: ColumnDate},
			{Name: "amount", Type: ColumnNumber},
		},
		Rows: [][]any{
			{"East", "2024-01-05", 100},
			{"East", "2024-02-10", decimal.RequireFromString("50.5")},
			{"West", "2024-01-20", int64(30)},
			{"West", "2024-03-01", nil},
			{nil, "2024-03-02", 7.5},
		},
		Catalog: []CatalogItem{
			{Kind: KindLabel, Identifier: "label.region", URI: "/gdc/md/ws/obj/1", Column: "region", Title: "Region"},
			{Kind: KindDataSet, Identifier: "dataset.order_date", URI: "/gdc/md/ws/obj/2", Column: "order_date", Title: "Order date"},
			{Kind: KindFact, Identifier: "fact.amount", URI: "/gdc/md/ws/obj/3", Column: "amount", Title: "Amount"},
		},
		LoadedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

// loadSampleDataset loads sampleDataset(workspace) into s.
func loadSampleDataset(t *testing.T, s *Store, workspace string) {
	t.Helper()
	if err := s.LoadDataset(context.Background(), sampleDataset(workspace)); err != nil {
		t.Fatalf("LoadDataset() failed: %v", err)
	}
}
