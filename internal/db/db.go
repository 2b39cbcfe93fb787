// Package db provides the SQLite connection and schema for the diagnostics
// ledger. No control state lives here; the lamp always boots locally
// controlled with hue 0.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Frame ledger - append-only history of inbound commands and emitted
	// status frames, for debugging peers in the field.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS frame_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			opcode INTEGER NOT NULL,
			payload TEXT,
			applied INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_frame_ledger_type_ts ON frame_ledger(event_type, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create frame_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
