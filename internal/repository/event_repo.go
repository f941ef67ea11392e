package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"gridreplay/internal/models"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const insertSessionEventSQL = `
		INSERT INTO session_events (id, session_id, occurred_at, type, row_index, message, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

// Append inserts a new event. EventID and OccurredAt are filled in when empty.
func (r *EventSQLite) Append(ctx context.Context, e models.SessionEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var meta *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			meta = &s
		}
	}

	_, err := r.db.ExecContext(ctx, insertSessionEventSQL,
		e.EventID,
		e.SessionID,
		e.OccurredAt.Format("2006-01-02 15:04:05.000"),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		e.RowIndex,
		e.Description,
		meta,
	)
	return err
}

// List returns a session's events filtered by [from, to] (inclusive) and/or
// type, oldest first. An empty sessionID lists every session.
func (r *EventSQLite) List(ctx context.Context, sessionID string, from, to time.Time, typ string) ([]models.SessionEvent, error) {
	var (
		conds []string
		args  []any
	)

	if sessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, sessionID)
	}
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC())
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := `SELECT id, session_id, occurred_at, type, row_index, message, meta FROM session_events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC, row_index ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SessionEvent, 0, 64)
	for rows.Next() {
		var (
			ev   models.SessionEvent
			meta sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &ev.SessionID, &ev.OccurredAt, &ev.Type, &ev.RowIndex, &ev.Description, &meta); err != nil {
			return nil, err
		}
		ev.OccurredAt = ev.OccurredAt.UTC()

		if meta.Valid && meta.String != "" {
			var v any
			if err := json.Unmarshal([]byte(meta.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = meta.String
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
