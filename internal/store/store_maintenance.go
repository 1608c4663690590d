package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const reprocessColumns = "id, batch_id, row_json, error_message, created_at, retried_at"

// EnqueueReprocess records a result row whose store write failed so it can be
// retried by an operator. Rows are never dropped on failure.
func (s *Store) EnqueueReprocess(ctx context.Context, row *ReprocessRow) error {
	if row == nil {
		return errors.New("reprocess row is nil")
	}
	if row.ID == "" {
		return errors.New("reprocess row id required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO reprocess_queue (id, batch_id, row_json, error_message, created_at, retried_at)
         VALUES (?, ?, ?, ?, ?, NULL)`,
		row.ID,
		row.BatchID,
		row.RowJSON,
		row.ErrorMessage,
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("enqueue reprocess row: %w", err)
	}
	return nil
}

// ListReprocess returns reprocess rows, pending-first, oldest-first.
func (s *Store) ListReprocess(ctx context.Context, includeRetried bool) ([]ReprocessRow, error) {
	query := `SELECT ` + reprocessColumns + ` FROM reprocess_queue`
	if !includeRetried {
		query += ` WHERE retried_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reprocess rows: %w", err)
	}
	defer rows.Close()

	var out []ReprocessRow
	for rows.Next() {
		var (
			row        ReprocessRow
			createdRaw string
			retriedRaw sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.BatchID, &row.RowJSON, &row.ErrorMessage, &createdRaw, &retriedRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			row.CreatedAt = created
		}
		if retriedRaw.Valid {
			if retried, err := parseTimeString(retriedRaw.String); err == nil {
				row.RetriedAt = &retried
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetReprocess fetches one reprocess row by identifier.
func (s *Store) GetReprocess(ctx context.Context, id string) (*ReprocessRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reprocessColumns+` FROM reprocess_queue WHERE id = ?`, id)
	var (
		out        ReprocessRow
		createdRaw string
		retriedRaw sql.NullString
	)
	err := row.Scan(&out.ID, &out.BatchID, &out.RowJSON, &out.ErrorMessage, &createdRaw, &retriedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reprocess row: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		out.CreatedAt = created
	}
	if retriedRaw.Valid {
		if retried, err := parseTimeString(retriedRaw.String); err == nil {
			out.RetriedAt = &retried
		}
	}
	return &out, nil
}

// MarkReprocessRetried stamps a reprocess row after a successful retry.
func (s *Store) MarkReprocessRetried(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE reprocess_queue SET retried_at = ? WHERE id = ?`,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark reprocess retried: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
