package models

import "time"

// Dataset describes an uploaded telemetry spreadsheet.
type Dataset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Format    string    `json:"format"` // csv | xlsx
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSnapshot is the persisted view of a replay session's carried state.
type SessionSnapshot struct {
	SessionID       string        `json:"session_id"`
	DatasetID       string        `json:"dataset_id"`
	Phase           string        `json:"phase"` // UNLOADED | LOADED | EXHAUSTED
	Cursor          int           `json:"cursor"`
	TotalRows       int           `json:"total_rows"`
	DischargeCycles int           `json:"discharge_cycles"`
	LastAction      BatteryAction `json:"last_action,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Session event types.
const (
	EventLoad       = "LOAD"
	EventAlert      = "ALERT"
	EventValidation = "VALIDATION"
	EventDone       = "DONE"
	EventExport     = "EXPORT"
	EventPlayback   = "PLAYBACK"
)

// SessionEvent is a single entry of a session's append-only log.
type SessionEvent struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	RowIndex    int       `json:"row_index"` // -1 when not tied to a row
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

// Operator is a dashboard user allowed to drive sessions.
type Operator struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
