package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"gridreplay/internal/dataset"
	"gridreplay/internal/engine"
	"gridreplay/internal/logger"
	"gridreplay/internal/metrics"
	"gridreplay/internal/models"
	"gridreplay/internal/publish"
	"gridreplay/internal/replay"
	"gridreplay/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrGenerationChanged = errors.New("session was reloaded")
)

// sessionEntry serializes advance-and-persist for one session so the stored
// snapshot never runs behind an earlier write.
type sessionEntry struct {
	mu      sync.Mutex
	session *replay.Session
}

type ReplayService struct {
	classifier *engine.Classifier
	datasets   repository.DatasetRepo
	rows       repository.RowRepo
	states     repository.StateRepo
	events     repository.EventRepo
	sink       publish.RowSink
	log        *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewReplayService(repos *repository.Repository, cfg engine.Config, sink publish.RowSink, log *logger.Logger) (*ReplayService, error) {
	c, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReplayService{
		classifier: c,
		datasets:   repos.DatasetRepo,
		rows:       repos.RowRepo,
		states:     repos.StateRepo,
		events:     repos.EventRepo,
		sink:       sink,
		log:        log,
		sessions:   make(map[string]*sessionEntry),
	}, nil
}

func (s *ReplayService) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

// LoadDataset opens a new session over a stored dataset.
func (s *ReplayService) LoadDataset(ctx context.Context, datasetID string) (string, replay.Summary, error) {
	_, rows, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return "", replay.Summary{}, err
	}

	sess := replay.NewSession(s.classifier)
	if err := sess.Load(datasetID, rows, false); err != nil {
		return "", replay.Summary{}, err
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{session: sess}
	s.mu.Unlock()

	metrics.SessionLoaded(id)
	sum := sess.Summary()
	s.record(ctx, models.SessionEvent{
		SessionID:   id,
		Type:        models.EventLoad,
		RowIndex:    -1,
		Description: fmt.Sprintf("Loaded dataset %s (%d rows)", datasetID, sum.TotalRows),
		Metadata:    map[string]any{"dataset_id": datasetID, "rows": sum.TotalRows},
	})
	s.saveSnapshot(ctx, id, sess)
	s.log.Infow("session_loaded", "session", id, "dataset", datasetID, "rows", sum.TotalRows)
	return id, sum, nil
}

// ReloadDataset replaces the dataset of an existing session. It destroys the
// annotated history; unexported history is only dropped when discard is set.
func (s *ReplayService) ReloadDataset(ctx context.Context, sessionID, datasetID string, discard bool) (replay.Summary, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return replay.Summary{}, err
	}
	_, rows, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return replay.Summary{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dropped := e.session.Summary().CurrentRow
	if err := e.session.Load(datasetID, rows, discard); err != nil {
		return replay.Summary{}, err
	}
	if err := s.rows.DeleteSession(ctx, sessionID); err != nil {
		s.log.Warnw("delete_rows_failed", "session", sessionID, "err", err)
	}

	metrics.SessionReloaded(sessionID)
	sum := e.session.Summary()
	s.record(ctx, models.SessionEvent{
		SessionID:   sessionID,
		Type:        models.EventLoad,
		RowIndex:    -1,
		Description: fmt.Sprintf("Reloaded with dataset %s (%d rows)", datasetID, sum.TotalRows),
		Metadata:    map[string]any{"dataset_id": datasetID, "rows": sum.TotalRows, "dropped_rows": dropped, "discard": discard},
	})
	s.saveSnapshot(ctx, sessionID, e.session)
	s.log.Infow("session_reloaded", "session", sessionID, "dataset", datasetID, "dropped_rows", dropped)
	return sum, nil
}

// Advance classifies the next row and persists it. Row-level errors come
// back in Issues; only a failed row-store write is returned as an error, in
// which case the row is still kept in the session's history.
func (s *ReplayService) Advance(ctx context.Context, sessionID string) (AdvanceResult, error) {
	return s.advance(ctx, sessionID, -1)
}

// AdvanceGeneration advances only while the session still holds the load
// identified by generation; after a reload it returns ErrGenerationChanged
// and leaves the session untouched.
func (s *ReplayService) AdvanceGeneration(ctx context.Context, sessionID string, generation int) (AdvanceResult, error) {
	return s.advance(ctx, sessionID, generation)
}

func (s *ReplayService) advance(ctx context.Context, sessionID string, generation int) (AdvanceResult, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return AdvanceResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if generation >= 0 && e.session.Summary().Generation != generation {
		return AdvanceResult{}, ErrGenerationChanged
	}

	step, err := e.session.Advance()
	if err != nil {
		return AdvanceResult{}, err
	}
	sum := e.session.Summary()
	if step.Done {
		return AdvanceResult{Done: true, Summary: sum}, nil
	}

	row := step.Row
	if err := s.rows.Append(ctx, sessionID, sum.DatasetID, row); err != nil {
		return AdvanceResult{}, fmt.Errorf("persist row %d: %w", row.Index, err)
	}
	s.saveSnapshot(ctx, sessionID, e.session)
	s.recordRow(ctx, sessionID, row, step.Err)
	metrics.ObserveRow(sessionID, row, step.Err)

	if s.sink != nil {
		if err := s.sink.PublishRow(ctx, sessionID, row); err != nil {
			s.log.Warnw("publish_row_failed", "session", sessionID, "row", row.Index, "err", err)
		}
	}

	if step.Exhausted {
		s.record(ctx, models.SessionEvent{
			SessionID:   sessionID,
			Type:        models.EventDone,
			RowIndex:    row.Index,
			Description: fmt.Sprintf("Dataset exhausted after %d rows", sum.TotalRows),
			Metadata:    map[string]any{"discharge_cycles": sum.DischargeCycles},
		})
		s.log.Infow("session_exhausted", "session", sessionID, "rows", sum.TotalRows, "discharge_cycles", sum.DischargeCycles)
	}

	return AdvanceResult{Row: &row, Issues: row.Issues, Summary: sum}, nil
}

func (s *ReplayService) Summary(_ context.Context, sessionID string) (replay.Summary, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return replay.Summary{}, err
	}
	return e.session.Summary(), nil
}

// Rows returns the annotated rows with index >= from. Closed sessions are
// served from the row store.
func (s *ReplayService) Rows(ctx context.Context, sessionID string, from int) ([]models.AnnotatedRow, error) {
	e, err := s.entry(sessionID)
	if err == nil {
		return e.session.RowsSince(from), nil
	}
	rows, lerr := s.rows.List(ctx, sessionID, from)
	if lerr != nil {
		return nil, lerr
	}
	if len(rows) == 0 {
		return nil, err
	}
	return rows, nil
}

// Export writes every dataset row with the annotations produced so far.
// The history counts as exported only once the whole file was written.
func (s *ReplayService) Export(ctx context.Context, sessionID string, format dataset.Format, w io.Writer) error {
	e, err := s.entry(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Summary().Phase == replay.PhaseUnloaded {
		return replay.ErrSessionNotLoaded
	}
	rows := e.session.ExportAnnotated()
	var buf bytes.Buffer
	if err := dataset.Encode(&buf, format, rows); err != nil {
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	e.session.MarkExported()

	annotated := e.session.Summary().CurrentRow
	s.record(ctx, models.SessionEvent{
		SessionID:   sessionID,
		Type:        models.EventExport,
		RowIndex:    -1,
		Description: fmt.Sprintf("Exported %d rows (%d annotated) as %s", len(rows), annotated, format),
		Metadata:    map[string]any{"format": string(format), "rows": len(rows), "annotated": annotated},
	})
	return nil
}

// CloseSession forgets an in-memory session. Persisted rows and events stay.
func (s *ReplayService) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	metrics.SessionClosed(sessionID)
	s.log.Infow("session_closed", "session", sessionID)
	return nil
}

func (s *ReplayService) recordRow(ctx context.Context, sessionID string, row models.AnnotatedRow, rowErr error) {
	for _, a := range row.Alerts {
		s.record(ctx, models.SessionEvent{
			SessionID:   sessionID,
			Type:        models.EventAlert,
			RowIndex:    row.Index,
			Description: a.Message,
			Metadata:    map[string]any{"code": a.Code, "timestamp": row.Timestamp},
		})
	}
	for _, err := range engine.RowErrors(rowErr) {
		meta := map[string]any{"timestamp": row.Timestamp}
		var verr *engine.DataValidationError
		if errors.As(err, &verr) {
			meta["field"] = verr.Field
			meta["value"] = verr.Value
		}
		s.record(ctx, models.SessionEvent{
			SessionID:   sessionID,
			Type:        models.EventValidation,
			RowIndex:    row.Index,
			Description: err.Error(),
			Metadata:    meta,
		})
		s.log.Debugw("row_issue", "session", sessionID, "row", row.Index, "err", err)
	}
}

func (s *ReplayService) record(ctx context.Context, ev models.SessionEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Warnw("append_event_failed", "session", ev.SessionID, "type", ev.Type, "err", err)
	}
}

func (s *ReplayService) saveSnapshot(ctx context.Context, sessionID string, sess *replay.Session) {
	snap := sess.Snapshot(sessionID)
	snap.UpdatedAt = time.Now().UTC()
	if err := s.states.Save(ctx, snap); err != nil {
		s.log.Warnw("save_snapshot_failed", "session", sessionID, "err", err)
	}
}
