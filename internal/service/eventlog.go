package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gridreplay/internal/models"
	"gridreplay/internal/repository"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must not be after to")
	ErrUnknownEventType = errors.New("unknown event type")
)

var eventTypes = map[string]struct{}{
	models.EventLoad:       {},
	models.EventAlert:      {},
	models.EventValidation: {},
	models.EventDone:       {},
	models.EventExport:     {},
	models.EventPlayback:   {},
}

// EventLogService reads the per-session event log written during replay.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns matching events oldest first. Bounds are inclusive and
// compared in UTC; a zero bound is open.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.SessionEvent, error) {
	f, err := cleanFilter(f)
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, f.SessionID, f.From, f.To, f.Type)
}

func cleanFilter(f LogFilter) (LogFilter, error) {
	f.SessionID = strings.TrimSpace(f.SessionID)
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	if !f.From.IsZero() {
		f.From = f.From.UTC()
	}
	if !f.To.IsZero() {
		f.To = f.To.UTC()
	}

	if f.Type != "" {
		if _, ok := eventTypes[f.Type]; !ok {
			return LogFilter{}, fmt.Errorf("%w %q", ErrUnknownEventType, f.Type)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	return f, nil
}
