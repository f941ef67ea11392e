package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

// datasets.rows holds the decoded RawRows as a JSON array.
const schemaDatasets = `
CREATE TABLE IF NOT EXISTS datasets (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    format TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    rows TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

const schemaAnnotatedRows = `
CREATE TABLE IF NOT EXISTS annotated_rows (
    session_id TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    dataset_id TEXT NOT NULL,
    payload TEXT NOT NULL,
    PRIMARY KEY (session_id, row_index)
);
`

const schemaSessionState = `
CREATE TABLE IF NOT EXISTS session_state (
    session_id TEXT PRIMARY KEY,
    dataset_id TEXT NOT NULL,
    phase TEXT NOT NULL,
    cursor INTEGER NOT NULL,
    total_rows INTEGER NOT NULL,
    discharge_cycles INTEGER NOT NULL,
    last_action TEXT,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaSessionEvents = `
CREATE TABLE IF NOT EXISTS session_events (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    row_index INTEGER NOT NULL DEFAULT -1,
    message TEXT NOT NULL,
    meta TEXT
);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (session_id, occurred_at);
`

const schemaOperators = `
CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaDatasets,
		schemaAnnotatedRows,
		schemaSessionState,
		schemaSessionEvents,
		schemaOperators,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
