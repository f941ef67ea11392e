package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gridreplay/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	upsertSessionStateSQL = `
		INSERT INTO session_state (session_id, dataset_id, phase, cursor, total_rows, discharge_cycles, last_action, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			dataset_id=excluded.dataset_id,
			phase=excluded.phase,
			cursor=excluded.cursor,
			total_rows=excluded.total_rows,
			discharge_cycles=excluded.discharge_cycles,
			last_action=excluded.last_action,
			updated_at=excluded.updated_at
	`

	selectSessionStateSQL = `
		SELECT session_id, dataset_id, phase, cursor, total_rows, discharge_cycles, last_action, updated_at
		FROM session_state WHERE session_id=?
	`
)

// Save upserts the snapshot keyed by session id. A zero UpdatedAt is set to now.
func (r *StateSQLite) Save(ctx context.Context, s models.SessionSnapshot) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertSessionStateSQL,
		s.SessionID,
		s.DatasetID,
		s.Phase,
		s.Cursor,
		s.TotalRows,
		s.DischargeCycles,
		string(s.LastAction),
		ts,
	)
	return err
}

// Load returns the last saved snapshot, or the zero value if none exists.
func (r *StateSQLite) Load(ctx context.Context, sessionID string) (models.SessionSnapshot, error) {
	var (
		s          models.SessionSnapshot
		lastAction sql.NullString
	)
	err := r.db.QueryRowContext(ctx, selectSessionStateSQL, sessionID).Scan(
		&s.SessionID,
		&s.DatasetID,
		&s.Phase,
		&s.Cursor,
		&s.TotalRows,
		&s.DischargeCycles,
		&lastAction,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SessionSnapshot{}, nil
		}
		return models.SessionSnapshot{}, err
	}
	s.LastAction = models.BatteryAction(lastAction.String)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
