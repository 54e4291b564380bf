package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// One writer: the control loop. API reads share the same connection.
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

const schemaMinerStatus = `
CREATE TABLE IF NOT EXISTS miner_status (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    running BOOLEAN NOT NULL,
    pid INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP,
    session_s REAL NOT NULL,
    total_s REAL NOT NULL,
    policy TEXT NOT NULL,
    override_enabled BOOLEAN NOT NULL,
    override_state TEXT NOT NULL,
    last_power_w REAL,
    last_power_at TIMESTAMP,
    start_threshold_w REAL NOT NULL,
    stop_threshold_w REAL NOT NULL,
    poll_interval_s INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaMinerEvents = `
CREATE TABLE IF NOT EXISTS miner_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

const indexMinerEvents = `
CREATE INDEX IF NOT EXISTS idx_miner_events_occurred_at ON miner_events (occurred_at);
`

const schemaMinerSessions = `
CREATE TABLE IF NOT EXISTS miner_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    stopped_at TIMESTAMP NOT NULL,
    seconds REAL NOT NULL,
    policy TEXT NOT NULL,
    reason TEXT NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL
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
		schemaMinerStatus,
		schemaMinerEvents,
		indexMinerEvents,
		schemaMinerSessions,
		schemaUsers,
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
