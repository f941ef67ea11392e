package repository

import (
	"context"
	"database/sql"
	"time"

	"gridreplay/internal/models"
)

type OperatorRepo interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (models.Operator, error)
}

type DatasetRepo interface {
	Create(ctx context.Context, d models.Dataset, rows []models.RawRow) error
	Get(ctx context.Context, id string) (models.Dataset, []models.RawRow, error)
	List(ctx context.Context) ([]models.Dataset, error)
}

type RowRepo interface {
	Append(ctx context.Context, sessionID, datasetID string, row models.AnnotatedRow) error
	List(ctx context.Context, sessionID string, from int) ([]models.AnnotatedRow, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type StateRepo interface {
	Save(ctx context.Context, s models.SessionSnapshot) error
	Load(ctx context.Context, sessionID string) (models.SessionSnapshot, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.SessionEvent) error
	List(ctx context.Context, sessionID string, from, to time.Time, typ string) ([]models.SessionEvent, error)
}

type Repository struct {
	DatasetRepo DatasetRepo
	RowRepo     RowRepo
	StateRepo   StateRepo
	EventRepo   EventRepo
	Operators   OperatorRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DatasetRepo: NewDatasetSQLite(db),
		RowRepo:     NewRowSQLite(db),
		StateRepo:   NewStateSQLite(db),
		EventRepo:   NewEventSQLite(db),
		Operators:   NewOperatorSQLite(db),
	}
}
