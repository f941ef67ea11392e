package service

import (
	"context"
	"errors"
	"time"

	"gridreplay/internal/models"
	"gridreplay/internal/replay"
	"gridreplay/internal/repository"
)

type summaryReader interface {
	Summary(ctx context.Context, sessionID string) (replay.Summary, error)
}

type playbackReader interface {
	PlaybackStatus(sessionID string) PlaybackStatus
}

type MonitoringService struct {
	sessions  summaryReader
	playback  playbackReader
	stateRepo repository.StateRepo
}

func NewMonitoringService(sessions summaryReader, playback playbackReader, stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{sessions: sessions, playback: playback, stateRepo: stateRepo}
}

// GetStatus reads the live session. For a session that is no longer in
// memory (e.g. after a restart) it falls back to the last persisted snapshot.
func (s *MonitoringService) GetStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	sum, err := s.sessions.Summary(ctx, sessionID)
	if err == nil {
		return SessionStatus{
			SessionID: sessionID,
			Live:      true,
			Summary:   sum,
			Playback:  s.playback.PlaybackStatus(sessionID),
			UpdatedAt: time.Now().UTC(),
		}, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return SessionStatus{}, err
	}

	snap, err := s.stateRepo.Load(ctx, sessionID)
	if err != nil {
		return SessionStatus{}, err
	}
	if snap.SessionID == "" {
		return SessionStatus{}, ErrSessionNotFound
	}
	return SessionStatus{
		SessionID: sessionID,
		Summary:   summaryFromSnapshot(snap),
		Playback:  PlaybackStatus{SessionID: sessionID},
		UpdatedAt: toUTC(snap.UpdatedAt),
	}, nil
}

func summaryFromSnapshot(snap models.SessionSnapshot) replay.Summary {
	return replay.Summary{
		DatasetID:       snap.DatasetID,
		TotalRows:       snap.TotalRows,
		CurrentRow:      snap.Cursor,
		DischargeCycles: snap.DischargeCycles,
		LastAction:      snap.LastAction,
		Phase:           replay.Phase(snap.Phase),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
