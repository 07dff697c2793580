package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/querysql"
)

// ColumnType is the logical type of a fact table column.
type ColumnType string

const (
	ColumnText   ColumnType = "text"
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
)

// sqlType maps a logical column type to its SQLite declaration.
func (t ColumnType) sqlType() (string, bool) {
	switch t {
	case ColumnText, ColumnDate:
		return "TEXT", true
	case ColumnNumber:
		return "NUMERIC", true
	}
	return "", false
}

// Column describes one fact table column.
type Column struct {
	Name string
	Type ColumnType
}

// CatalogKind classifies catalog items.
type CatalogKind string

const (
	KindLabel   CatalogKind = "label"
	KindFact    CatalogKind = "fact"
	KindDataSet CatalogKind = "dataset"
)

// CatalogItem maps a catalog object to a fact table column.
type CatalogItem struct {
	Kind       CatalogKind
	Identifier string
	URI        string
	Column     string
	Title      string
}

// Dataset is the complete content of one workspace.
type Dataset struct {
	Workspace string
	Columns   []Column
	Rows      [][]any
	Catalog   []CatalogItem
	LoadedAt  time.Time
}

// FactTableName returns the fact table of a workspace.
func FactTableName(workspace string) string {
	return "facts/" + workspace
}

// LoadDataset replaces the dataset and catalog of ds.Workspace.
// Everything is written in one transaction; on error nothing changes.
func (s *Store) LoadDataset(ctx context.Context, ds Dataset) error {
	if err := validateDataset(ds); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load dataset: begin tx: %w", err)
	}
	defer tx.Rollback()

	table := FactTableName(ds.Workspace)
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE workspace = ?`, ds.Workspace); err != nil {
		return fmt.Errorf("load dataset: clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+querysql.QuoteIdent(table)); err != nil {
		return fmt.Errorf("load dataset: drop fact table: %w", err)
	}

	defs := make([]string, len(ds.Columns))
	marks := make([]string, len(ds.Columns))
	names := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		typ, _ := c.Type.sqlType()
		defs[i] = querysql.QuoteIdent(c.Name) + " " + typ
		marks[i] = "?"
		names[i] = querysql.QuoteIdent(c.Name)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", querysql.QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("load dataset: create fact table: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		querysql.QuoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("load dataset: prepare insert: %w", err)
	}
	defer insert.Close()

	for i, row := range ds.Rows {
		args := make([]any, len(row))
		for j, v := range row {
			args[j] = sqlValue(v)
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("load dataset: insert row %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO datasets (workspace, fact_table, row_count, loaded_at)
		VALUES (?, ?, ?, ?)
	`, ds.Workspace, table, len(ds.Rows), ds.LoadedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("load dataset: record dataset: %w", err)
	}

	for _, item := range ds.Catalog {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_items (workspace, kind, identifier, uri, column_name, title)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ds.Workspace, string(item.Kind), item.Identifier, item.URI, item.Column, item.Title); err != nil {
			return fmt.Errorf("load dataset: catalog item %q: %w", item.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load dataset: commit: %w", err)
	}
	return nil
}

func validateDataset(ds Dataset) error {
	if ds.Workspace == "" {
		return errors.New("workspace must not be empty")
	}
	if len(ds.Columns) == 0 {
		return errors.New("dataset has no columns")
	}
	types := make(map[string]ColumnType, len(ds.Columns))
	for _, c := range ds.Columns {
		if c.Name == "" {
			return errors.New("column without name")
		}
		if _, ok := c.Type.sqlType(); !ok {
			return fmt.Errorf("column %q: unknown type %q", c.Name, c.Type)
		}
		if _, dup := types[c.Name]; dup {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		types[c.Name] = c.Type
	}
	for i, row := range ds.Rows {
		if len(row) != len(ds.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), len(ds.Columns))
		}
		for j, v := range row {
			if err := checkValue(ds.Columns[j], v); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
	}
	for _, item := range ds.Catalog {
		typ, ok := types[item.Column]
		if !ok {
			return fmt.Errorf("catalog item %q: unknown column %q", item.Identifier, item.Column)
		}
		if item.Identifier == "" || item.URI == "" {
			return fmt.Errorf("catalog item for column %q needs identifier and uri", item.Column)
		}
		switch item.Kind {
		case KindLabel:
		case KindFact:
			if typ != ColumnNumber {
				return fmt.Errorf("fact %q must map to a number column", item.Identifier)
			}
		case KindDataSet:
			if typ != ColumnDate {
				return fmt.Errorf("date data set %q must map to a date column", item.Identifier)
			}
		default:
			return fmt.Errorf("catalog item %q: unknown kind %q", item.Identifier, item.Kind)
		}
	}
	return nil
}

func checkValue(c Column, v any) error {
	if v == nil {
		return nil
	}
	switch c.Type {
	case ColumnText:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("column %q: want text, got %T", c.Name, v)
		}
	case ColumnDate:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("column %q: want date, got %T", c.Name, v)
		}
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			return fmt.Errorf("column %q: invalid date %q", c.Name, s)
		}
	case ColumnNumber:
		switch v.(type) {
		case int, int64, float64, decimal.Decimal:
		default:
			return fmt.Errorf("column %q: want number, got %T", c.Name, v)
		}
	}
	return nil
}

// sqlValue converts a dataset value into a driver parameter.
func sqlValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return querysql.NumericParam(x)
	case int:
		return int64(x)
	}
	return v
}

// FactTable returns the fact table of workspace.
func (s *Store) FactTable(ctx context.Context, workspace string) (string, error) {
	var table string
	err := s.db.QueryRowContext(ctx, `SELECT fact_table FROM datasets WHERE workspace = ?`, workspace).Scan(&table)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("dataset for workspace %q: %w", workspace, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read dataset: %w", err)
	}
	return table, nil
}

// CatalogItems returns the catalog of workspace ordered by identifier.
func (s *Store) CatalogItems(ctx context.Context, workspace string) ([]CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, identifier, uri, column_name, title
		FROM catalog_items
		WHERE workspace = ?
		ORDER BY identifier COLLATE BINARY ASC
	`, workspace)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	items := []CatalogItem{}
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return items, nil
}

// LookupCatalogItem finds a catalog item by identifier.
func (s *Store) LookupCatalogItem(ctx context.Context, workspace, identifier string) (CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, identifier, uri, column_name, title
		FROM catalog_items
		WHERE workspace = ? AND identifier = ?
	`, workspace, identifier)
	return lookupCatalogItem(row, workspace, identifier)
}

// LookupCatalogItemByURI finds a catalog item by URI.
func (s *Store) LookupCatalogItemByURI(ctx context.Context, workspace, uri string) (CatalogItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, identifier, uri, column_name, title
		FROM catalog_items
		WHERE workspace = ? AND uri = ?
	`, workspace, uri)
	return lookupCatalogItem(row, workspace, uri)
}

func lookupCatalogItem(row *sql.Row, workspace, key string) (CatalogItem, error) {
	item, err := scanCatalogItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CatalogItem{}, fmt.Errorf("catalog item %q in workspace %q: %w", key, workspace, ErrNotFound)
	}
	return item, err
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(row scanner) (CatalogItem, error) {
	var item CatalogItem
	var kind string
	if err := row.Scan(&kind, &item.Identifier, &item.URI, &item.Column, &item.Title); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CatalogItem{}, err
		}
		return CatalogItem{}, fmt.Errorf("scan catalog item: %w", err)
	}
	item.Kind = CatalogKind(kind)
	return item, nil
}
