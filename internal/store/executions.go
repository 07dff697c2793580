package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ExecutionRecord is one entry of the execution log.
type ExecutionRecord struct {
	Seq         int64 // assigned by AppendExecution
	ResultID    string
	Workspace   string
	Fingerprint string
	Reference   string // insight URI for by-reference executions
	RowCount    int
	ColumnCount int
	ExecutedAt  time.Time
}

// AppendExecution appends rec to the log and returns its sequence number.
func (s *Store) AppendExecution(ctx context.Context, rec ExecutionRecord) (int64, error) {
	if rec.ResultID == "" {
		return 0, errors.New("append execution: result id is required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(result_id, workspace, fingerprint, reference, row_count, column_count, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ResultID,
		rec.Workspace,
		rec.Fingerprint,
		rec.Reference,
		rec.RowCount,
		rec.ColumnCount,
		rec.ExecutedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("append execution: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append execution: %w", err)
	}
	return seq, nil
}

// ReadExecutions returns the log of workspace ordered by seq.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadExecutions(ctx context.Context, workspace string) ([]ExecutionRecord, error) {
	return s.readExecutions(ctx, `
		SELECT seq, result_id, workspace, fingerprint, reference, row_count, column_count, executed_at
		FROM executions
		WHERE workspace = ?
		ORDER BY seq ASC
	`, workspace)
}

// ReadExecutionsByFingerprint returns the executions of one definition
// ordered by seq.
func (s *Store) ReadExecutionsByFingerprint(ctx context.Context, workspace, fingerprint string) ([]ExecutionRecord, error) {
	return s.readExecutions(ctx, `
		SELECT seq, result_id, workspace, fingerprint, reference, row_count, column_count, executed_at
		FROM executions
		WHERE workspace = ? AND fingerprint = ?
		ORDER BY seq ASC
	`, workspace, fingerprint)
}

func (s *Store) readExecutions(ctx context.Context, query string, args ...any) ([]ExecutionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	out := []ExecutionRecord{}
	for rows.Next() {
		var rec ExecutionRecord
		var executedAt string
		if err := rows.Scan(&rec.Seq, &rec.ResultID, &rec.Workspace, &rec.Fingerprint,
			&rec.Reference, &rec.RowCount, &rec.ColumnCount, &executedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		rec.ExecutedAt, err = time.Parse(time.RFC3339Nano, executedAt)
		if err != nil {
			return nil, fmt.Errorf("parse executed_at %q: %w", executedAt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return out, nil
}
