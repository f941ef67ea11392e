package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gridreplay/internal/models"
)

var ErrDatasetNotFound = errors.New("dataset not found")

type DatasetSQLite struct {
	db *sql.DB
}

func NewDatasetSQLite(db *sql.DB) *DatasetSQLite { return &DatasetSQLite{db: db} }

const (
	insertDatasetSQL = `INSERT INTO datasets (id, name, format, row_count, rows, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	selectDatasetSQL = `SELECT id, name, format, row_count, rows, created_at FROM datasets WHERE id = ?`
	listDatasetsSQL  = `SELECT id, name, format, row_count, created_at FROM datasets ORDER BY created_at DESC`
)

// Create stores the dataset metadata together with its decoded rows.
func (r *DatasetSQLite) Create(ctx context.Context, d models.Dataset, rows []models.RawRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal dataset %s rows: %w", d.ID, err)
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, insertDatasetSQL,
		d.ID, d.Name, d.Format, len(rows), string(payload), created.UTC(),
	); err != nil {
		return fmt.Errorf("insert dataset %s: %w", d.ID, err)
	}
	return nil
}

// Get returns ErrDatasetNotFound for unknown ids.
func (r *DatasetSQLite) Get(ctx context.Context, id string) (models.Dataset, []models.RawRow, error) {
	var (
		d       models.Dataset
		payload string
	)
	err := r.db.QueryRowContext(ctx, selectDatasetSQL, id).
		Scan(&d.ID, &d.Name, &d.Format, &d.RowCount, &payload, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Dataset{}, nil, ErrDatasetNotFound
		}
		return models.Dataset{}, nil, fmt.Errorf("select dataset %s: %w", id, err)
	}

	var rows []models.RawRow
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		return models.Dataset{}, nil, fmt.Errorf("decode dataset %s rows: %w", id, err)
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return d, rows, nil
}

// List returns dataset metadata, newest first, without the rows.
func (r *DatasetSQLite) List(ctx context.Context) ([]models.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, listDatasetsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Dataset, 0, 16)
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.Format, &d.RowCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.CreatedAt = d.CreatedAt.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}
