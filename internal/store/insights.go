package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// InsightRecord is a saved insight. Document holds its serialized
// definition; the store does not interpret it.
type InsightRecord struct {
	Workspace  string
	Identifier string
	URI        string
	Title      string
	Document   []byte
}

// WriteInsight inserts or replaces an insight.
func (s *Store) WriteInsight(ctx context.Context, rec InsightRecord) error {
	if rec.Workspace == "" || rec.Identifier == "" || rec.URI == "" {
		return errors.New("write insight: workspace, identifier and uri are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO insights (workspace, identifier, uri, title, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(workspace, identifier) DO UPDATE SET
			uri = excluded.uri,
			title = excluded.title,
			document = excluded.document
	`, rec.Workspace, rec.Identifier, rec.URI, rec.Title, string(rec.Document))
	if err != nil {
		return fmt.Errorf("write insight: %w", err)
	}
	return nil
}

// ReadInsight returns the insight with the given identifier.
func (s *Store) ReadInsight(ctx context.Context, workspace, identifier string) (InsightRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workspace, identifier, uri, title, document
		FROM insights
		WHERE workspace = ? AND identifier = ?
	`, workspace, identifier)
	return readInsight(row, workspace, identifier)
}

// ReadInsightByURI returns the insight with the given URI.
func (s *Store) ReadInsightByURI(ctx context.Context, workspace, uri string) (InsightRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT workspace, identifier, uri, title, document
		FROM insights
		WHERE workspace = ? AND uri = ?
	`, workspace, uri)
	return readInsight(row, workspace, uri)
}

// ListInsights returns all insights of workspace ordered by identifier.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListInsights(ctx context.Context, workspace string) ([]InsightRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT workspace, identifier, uri, title, document
		FROM insights
		WHERE workspace = ?
		ORDER BY identifier COLLATE BINARY ASC
	`, workspace)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	out := []InsightRecord{}
	for rows.Next() {
		rec, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return out, nil
}

func readInsight(row *sql.Row, workspace, key string) (InsightRecord, error) {
	rec, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return InsightRecord{}, fmt.Errorf("insight %q in workspace %q: %w", key, workspace, ErrNotFound)
	}
	return rec, err
}

func scanInsight(row scanner) (InsightRecord, error) {
	var rec InsightRecord
	var doc string
	if err := row.Scan(&rec.Workspace, &rec.Identifier, &rec.URI, &rec.Title, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return InsightRecord{}, err
		}
		return InsightRecord{}, fmt.Errorf("scan insight: %w", err)
	}
	rec.Document = []byte(doc)
	return rec, nil
}
