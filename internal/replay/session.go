// Package replay owns the carried-forward state of one loaded dataset and
// steps the classifier over it one row at a time.
package replay

import (
	"errors"
	"sync"

	"gridreplay/internal/engine"
	"gridreplay/internal/models"
)

// Phase of a session's lifecycle.
type Phase string

const (
	PhaseUnloaded  Phase = "UNLOADED"
	PhaseLoaded    Phase = "LOADED"
	PhaseExhausted Phase = "EXHAUSTED"
)

var (
	ErrEmptyDataset     = errors.New("dataset has no rows")
	ErrSessionNotLoaded = errors.New("session has no dataset loaded")
	// ErrUnexportedHistory guards Load against silently dropping annotated
	// rows that were never exported. Pass discard=true to drop them.
	ErrUnexportedHistory = errors.New("session has unexported annotated rows; reload with discard to drop them")
)

// Step is the outcome of one Advance call.
type Step struct {
	Row  models.AnnotatedRow
	Done bool // no row was produced; the dataset is exhausted
	// Err joins the row-level engine errors. It never aborts the session.
	Err error
	// Exhausted is set on the step that consumed the final row.
	Exhausted bool
}

// Summary is a read of the session's current state.
type Summary struct {
	DatasetID       string               `json:"dataset_id,omitempty"`
	TotalRows       int                  `json:"total_rows"`
	CurrentRow      int                  `json:"current_row"`
	DischargeCycles int                  `json:"discharge_cycles"`
	LastAction      models.BatteryAction `json:"last_action,omitempty"`
	Phase           Phase                `json:"phase"`
	// Generation counts successful loads; it changes on every reload even
	// when the same dataset is loaded again.
	Generation      int                  `json:"generation"`
}

// Session is safe for concurrent use; Advance calls are serialized.
type Session struct {
	mu sync.Mutex

	classifier *engine.Classifier

	datasetID string
	rows      []models.RawRow
	history   []models.AnnotatedRow
	state     engine.State
	cursor    int
	phase     Phase
	exported  bool
	loads     int
}

func NewSession(c *engine.Classifier) *Session {
	return &Session{classifier: c, phase: PhaseUnloaded}
}

// Load replaces the active dataset and resets all carried state. Prior
// history is destroyed; if any of it was never exported Load refuses unless
// discard is set. On error the session is left exactly as it was.
func (s *Session) Load(datasetID string, rows []models.RawRow, discard bool) error {
	if len(rows) == 0 {
		return ErrEmptyDataset
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) > 0 && !s.exported && !discard {
		return ErrUnexportedHistory
	}

	s.datasetID = datasetID
	s.rows = append([]models.RawRow(nil), rows...)
	s.history = make([]models.AnnotatedRow, 0, len(rows))
	s.state = engine.State{}
	s.cursor = 0
	s.phase = PhaseLoaded
	s.exported = false
	s.loads++
	return nil
}

// Advance classifies the row under the cursor. Once exhausted it returns a
// Done step and changes nothing.
func (s *Session) Advance() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseUnloaded:
		return Step{}, ErrSessionNotLoaded
	case PhaseExhausted:
		return Step{Done: true}, nil
	}

	raw := s.rows[s.cursor]
	raw.Index = s.cursor
	row, next, rowErr := s.classifier.Classify(raw, s.state)

	s.history = append(s.history, row)
	s.state = next
	s.cursor++
	s.exported = false
	if s.cursor == len(s.rows) {
		s.phase = PhaseExhausted
	}

	return Step{Row: row, Err: rowErr, Exhausted: s.phase == PhaseExhausted}, nil
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() Summary {
	return Summary{
		DatasetID:       s.datasetID,
		TotalRows:       len(s.rows),
		CurrentRow:      s.cursor,
		DischargeCycles: s.state.DischargeCycles,
		LastAction:      s.state.LastAction,
		Phase:           s.phase,
		Generation:      s.loads,
	}
}

// Snapshot returns the summary in its persisted shape.
func (s *Session) Snapshot(sessionID string) models.SessionSnapshot {
	sum := s.Summary()
	return models.SessionSnapshot{
		SessionID:       sessionID,
		DatasetID:       sum.DatasetID,
		Phase:           string(sum.Phase),
		Cursor:          sum.CurrentRow,
		TotalRows:       sum.TotalRows,
		DischargeCycles: sum.DischargeCycles,
		LastAction:      sum.LastAction,
	}
}

// RowsSince returns copies of the annotated rows with index >= from.
func (s *Session) RowsSince(from int) []models.AnnotatedRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from < 0 {
		from = 0
	}
	if from >= len(s.history) {
		return []models.AnnotatedRow{}
	}
	return append([]models.AnnotatedRow(nil), s.history[from:]...)
}

// ExportAnnotated returns every dataset row in order; only rows already
// advanced over carry an annotation.
func (s *Session) ExportAnnotated() []models.ExportRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ExportRow, len(s.rows))
	for i, raw := range s.rows {
		raw.Index = i
		out[i] = models.ExportRow{Raw: raw}
		if i < len(s.history) {
			a := s.history[i]
			out[i].Annotated = &a
		}
	}
	return out
}

// MarkExported records that the current history has been handed to a sink,
// so a following Load may replace it without an explicit discard.
func (s *Session) MarkExported() {
	s.mu.Lock()
	s.exported = true
	s.mu.Unlock()
}
