package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gridreplay/internal/models"
)

// RowSQLite keeps the append-only annotated history of each session.
type RowSQLite struct {
	db *sql.DB
}

func NewRowSQLite(db *sql.DB) *RowSQLite { return &RowSQLite{db: db} }

const (
	insertAnnotatedRowSQL = `INSERT INTO annotated_rows (session_id, row_index, dataset_id, payload) VALUES (?, ?, ?, ?)`
	selectAnnotatedRowSQL = `SELECT payload FROM annotated_rows WHERE session_id = ? AND row_index >= ? ORDER BY row_index ASC`
	deleteAnnotatedRowSQL = `DELETE FROM annotated_rows WHERE session_id = ?`
)

// Append never overwrites: a second write for the same row index fails on
// the primary key.
func (r *RowSQLite) Append(ctx context.Context, sessionID, datasetID string, row models.AnnotatedRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row %d: %w", row.Index, err)
	}
	if _, err := r.db.ExecContext(ctx, insertAnnotatedRowSQL, sessionID, row.Index, datasetID, string(payload)); err != nil {
		return fmt.Errorf("insert row %d for session %s: %w", row.Index, sessionID, err)
	}
	return nil
}

func (r *RowSQLite) List(ctx context.Context, sessionID string, from int) ([]models.AnnotatedRow, error) {
	if from < 0 {
		from = 0
	}
	rows, err := r.db.QueryContext(ctx, selectAnnotatedRowSQL, sessionID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AnnotatedRow, 0, 64)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a models.AnnotatedRow
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("decode row for session %s: %w", sessionID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteSession drops the persisted history; called when a session reloads.
func (r *RowSQLite) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, deleteAnnotatedRowSQL, sessionID)
	return err
}
