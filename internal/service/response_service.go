package service

import (
	"time"

	"gridreplay/internal/models"
	"gridreplay/internal/replay"
)

// AdvanceResult is either the newly annotated row or Done with the final summary.
type AdvanceResult struct {
	Done    bool                 `json:"done"`
	Row     *models.AnnotatedRow `json:"row,omitempty"`
	Issues  []string             `json:"issues,omitempty"`
	Summary replay.Summary       `json:"summary"`
}

// DatasetImport is the outcome of an upload. Issues lists cells that failed
// to parse; their rows were kept.
type DatasetImport struct {
	Dataset models.Dataset `json:"dataset"`
	Issues  []string       `json:"issues"`
}

type PlaybackStatus struct {
	SessionID  string `json:"session_id"`
	Playing    bool   `json:"playing"`
	IntervalMS int64  `json:"interval_ms"`
}

// SessionStatus combines the session summary with its playback state. Live
// is false when the summary comes from the last persisted snapshot.
type SessionStatus struct {
	SessionID string         `json:"session_id"`
	Live      bool           `json:"live"`
	Summary   replay.Summary `json:"summary"`
	Playback  PlaybackStatus `json:"playback"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LogFilter selects session events. Zero values mean no bound.
type LogFilter struct {
	SessionID string
	From      time.Time // inclusive
	To        time.Time // inclusive
	Type      string    // "", "LOAD", "ALERT", "VALIDATION", "DONE", "EXPORT", "PLAYBACK"
}
