package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gridreplay/internal/models"
)

var (
	// ErrUserExists is returned by Create when the username is already taken.
	ErrUserExists       = errors.New("username already taken")
	ErrOperatorNotFound = errors.New("operator not found")
)

type OperatorSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite {
	return &OperatorSQLite{db: db, now: time.Now}
}

var _ OperatorRepo = (*OperatorSQLite)(nil)

const (
	insertOperatorSQL = `INSERT INTO operators (username, password_hash, created_at) VALUES (?, ?, ?)`

	selectOperatorByUsernameSQL = `
		SELECT id, username, password_hash, created_at
		FROM operators WHERE username = ?
	`
)

// Create stores a new operator and returns its id.
func (r *OperatorSQLite) Create(ctx context.Context, username, passwordHash string) (int, error) {
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, username, passwordHash, r.now().UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("insert operator %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for operator %q: %w", username, err)
	}
	return int(id), nil
}

// GetByUsername returns ErrOperatorNotFound when no row matches.
func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (models.Operator, error) {
	var op models.Operator
	err := r.db.QueryRowContext(ctx, selectOperatorByUsernameSQL, username).
		Scan(&op.ID, &op.Username, &op.PasswordHash, &op.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.Operator{}, ErrOperatorNotFound
	case err != nil:
		return models.Operator{}, fmt.Errorf("select operator %q: %w", username, err)
	}
	op.CreatedAt = op.CreatedAt.UTC()
	return op, nil
}
