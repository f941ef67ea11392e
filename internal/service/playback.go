package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gridreplay/internal/config"
	"gridreplay/internal/logger"
	"gridreplay/internal/models"
	"gridreplay/internal/replay"
	"gridreplay/internal/repository"
)

// MaxPlaybackInterval bounds the slowest selectable replay speed.
const MaxPlaybackInterval = 10 * time.Second

var ErrSessionExhausted = errors.New("session has no rows left to play")

type advancer interface {
	AdvanceGeneration(ctx context.Context, sessionID string, generation int) (AdvanceResult, error)
	Summary(ctx context.Context, sessionID string) (replay.Summary, error)
}

// player is bound to the load generation that was current at Play.
type player struct {
	interval   time.Duration
	nextDue    time.Time
	generation int
}

// PlaybackService auto-advances playing sessions from a single ticker loop.
// Advances go through the replay service, so persistence and events match
// manual stepping.
type PlaybackService struct {
	replay    advancer
	eventRepo repository.EventRepo
	cfg       config.PlaybackConfig
	log       *logger.Logger
	now       func() time.Time

	// pass is held for a whole advanceDue pass; Pause takes it so no
	// selected advance is still pending once Pause returns.
	pass sync.Mutex

	mu      sync.Mutex
	players map[string]*player
}

func NewPlaybackService(r advancer, eventRepo repository.EventRepo, cfg config.PlaybackConfig, log *logger.Logger) *PlaybackService {
	if log == nil {
		log = logger.Nop()
	}
	return &PlaybackService{
		replay:    r,
		eventRepo: eventRepo,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		players:   make(map[string]*player),
	}
}

// clampInterval maps 0 to the default and bounds the rest to
// [min_interval, MaxPlaybackInterval].
func (s *PlaybackService) clampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		d = s.cfg.DefaultInterval
	}
	if d < s.cfg.MinInterval {
		d = s.cfg.MinInterval
	}
	if d > MaxPlaybackInterval {
		d = MaxPlaybackInterval
	}
	return d
}

func (s *PlaybackService) Play(ctx context.Context, sessionID string, interval time.Duration) (PlaybackStatus, error) {
	sum, err := s.replay.Summary(ctx, sessionID)
	if err != nil {
		return PlaybackStatus{}, err
	}
	if sum.Phase == replay.PhaseExhausted {
		return PlaybackStatus{}, ErrSessionExhausted
	}

	d := s.clampInterval(interval)
	s.mu.Lock()
	s.players[sessionID] = &player{interval: d, nextDue: s.now().Add(d), generation: sum.Generation}
	s.mu.Unlock()

	s.recordPlayback(ctx, sessionID, fmt.Sprintf("Playback started every %s", d), d)
	s.log.Infow("playback_started", "session", sessionID, "interval", d)
	return PlaybackStatus{SessionID: sessionID, Playing: true, IntervalMS: d.Milliseconds()}, nil
}

// Pause stops auto-advance. Pausing an idle session is not an error.
func (s *PlaybackService) Pause(ctx context.Context, sessionID string) (PlaybackStatus, error) {
	if _, err := s.replay.Summary(ctx, sessionID); err != nil {
		return PlaybackStatus{}, err
	}
	s.pass.Lock()
	defer s.pass.Unlock()

	s.mu.Lock()
	p, ok := s.players[sessionID]
	delete(s.players, sessionID)
	s.mu.Unlock()

	if ok {
		s.recordPlayback(ctx, sessionID, "Playback paused", p.interval)
		s.log.Infow("playback_paused", "session", sessionID)
	}
	return PlaybackStatus{SessionID: sessionID}, nil
}

// SetSpeed changes the interval; a paused session stays paused.
func (s *PlaybackService) SetSpeed(ctx context.Context, sessionID string, interval time.Duration) (PlaybackStatus, error) {
	if _, err := s.replay.Summary(ctx, sessionID); err != nil {
		return PlaybackStatus{}, err
	}
	d := s.clampInterval(interval)

	s.mu.Lock()
	p, ok := s.players[sessionID]
	if ok {
		p.interval = d
		p.nextDue = s.now().Add(d)
	}
	s.mu.Unlock()

	return PlaybackStatus{SessionID: sessionID, Playing: ok, IntervalMS: d.Milliseconds()}, nil
}

func (s *PlaybackService) PlaybackStatus(sessionID string) PlaybackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[sessionID]; ok {
		return PlaybackStatus{SessionID: sessionID, Playing: true, IntervalMS: p.interval.Milliseconds()}
	}
	return PlaybackStatus{SessionID: sessionID}
}

// Run ticks at the given interval until ctx is canceled.
func (s *PlaybackService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.advanceDue(ctx, now)
		}
	}
}

type dueStep struct {
	sessionID string
	player    *player
}

// advanceDue advances every session whose next step is due, once each.
func (s *PlaybackService) advanceDue(ctx context.Context, now time.Time) {
	s.pass.Lock()
	defer s.pass.Unlock()

	s.mu.Lock()
	due := make([]dueStep, 0, len(s.players))
	for id, p := range s.players {
		if !now.Before(p.nextDue) {
			due = append(due, dueStep{sessionID: id, player: p})
			p.nextDue = now.Add(p.interval)
		}
	}
	s.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].sessionID < due[j].sessionID })

	for _, d := range due {
		id := d.sessionID
		// Play may have replaced the player since it was selected.
		if !s.current(id, d.player) {
			continue
		}
		res, err := s.replay.AdvanceGeneration(ctx, id, d.player.generation)
		switch {
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, replay.ErrSessionNotLoaded):
			s.stop(id, d.player)
		case errors.Is(err, ErrGenerationChanged):
			if s.stop(id, d.player) {
				s.recordPlayback(ctx, id, "Playback stopped: session reloaded", 0)
				s.log.Infow("playback_stopped_on_reload", "session", id)
			}
		case err != nil:
			s.log.Errorw("playback_advance_failed", "session", id, "err", err)
		case res.Done || res.Summary.Phase == replay.PhaseExhausted:
			s.stop(id, d.player)
			s.recordPlayback(ctx, id, "Playback finished", 0)
			s.log.Infow("playback_finished", "session", id, "rows", res.Summary.TotalRows)
		}
	}
}

func (s *PlaybackService) current(sessionID string, p *player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[sessionID] == p
}

// stop removes p if it is still the session's player.
func (s *PlaybackService) stop(sessionID string, p *player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.players[sessionID] != p {
		return false
	}
	delete(s.players, sessionID)
	return true
}

func (s *PlaybackService) recordPlayback(ctx context.Context, sessionID, msg string, interval time.Duration) {
	err := s.eventRepo.Append(ctx, models.SessionEvent{
		SessionID:   sessionID,
		OccurredAt:  s.now().UTC(),
		Type:        models.EventPlayback,
		RowIndex:    -1,
		Description: msg,
		Metadata:    map[string]any{"interval_ms": interval.Milliseconds()},
	})
	if err != nil {
		s.log.Warnw("append_event_failed", "session", sessionID, "type", models.EventPlayback, "err", err)
	}
}
