package service

import (
	"context"
	"io"
	"time"

	"gridreplay/internal/config"
	"gridreplay/internal/dataset"
	"gridreplay/internal/engine"
	"gridreplay/internal/logger"
	"gridreplay/internal/models"
	"gridreplay/internal/publish"
	"gridreplay/internal/replay"
	"gridreplay/internal/repository"
)

// Authorization registers operators and guards the API with bearer tokens.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Datasets imports telemetry spreadsheets into the dataset store.
type Datasets interface {
	ImportDataset(ctx context.Context, filename string, r io.Reader) (DatasetImport, error)
	ListDatasets(ctx context.Context) ([]models.Dataset, error)
}

// Replay is the driver-facing surface over replay sessions.
type Replay interface {
	LoadDataset(ctx context.Context, datasetID string) (string, replay.Summary, error)
	ReloadDataset(ctx context.Context, sessionID, datasetID string, discard bool) (replay.Summary, error)
	Advance(ctx context.Context, sessionID string) (AdvanceResult, error)
	Summary(ctx context.Context, sessionID string) (replay.Summary, error)
	Rows(ctx context.Context, sessionID string, from int) ([]models.AnnotatedRow, error)
	Export(ctx context.Context, sessionID string, format dataset.Format, w io.Writer) error
	CloseSession(ctx context.Context, sessionID string) error
}

// Playback advances sessions on a timer. Stop Run via context cancellation.
type Playback interface {
	Play(ctx context.Context, sessionID string, interval time.Duration) (PlaybackStatus, error)
	Pause(ctx context.Context, sessionID string) (PlaybackStatus, error)
	SetSpeed(ctx context.Context, sessionID string, interval time.Duration) (PlaybackStatus, error)
	PlaybackStatus(sessionID string) PlaybackStatus
	Run(ctx context.Context, tick time.Duration)
}

// Monitoring exposes a read-only view of a session.
type Monitoring interface {
	GetStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}

// EventLog exposes the append-only session event log.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.SessionEvent, error)
}

type Service struct {
	Replay
	Datasets
	Playback
	Monitoring
	EventLog
	Authorization
}

// Deps carries the non-repository dependencies of the services.
type Deps struct {
	Engine   engine.Config
	Auth     config.AuthConfig
	Playback config.PlaybackConfig
	Sink     publish.RowSink // nil disables row publishing
	Log      *logger.Logger
}

func NewService(repos *repository.Repository, deps Deps) (*Service, error) {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	replaySvc, err := NewReplayService(repos, deps.Engine, deps.Sink, deps.Log)
	if err != nil {
		return nil, err
	}
	playback := NewPlaybackService(replaySvc, repos.EventRepo, deps.Playback, deps.Log)
	return &Service{
		Replay:        replaySvc,
		Datasets:      NewDatasetService(repos.DatasetRepo, deps.Log),
		Playback:      playback,
		Monitoring:    NewMonitoringService(replaySvc, playback, repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Operators, deps.Auth),
	}, nil
}
