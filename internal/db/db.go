// Package db manages the local SQLite database holding habits, check-ins and
// the analytics cache table.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// foreign_keys and busy_timeout are per connection, so they go in the DSN.
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.NormalizeDateKeys(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to normalize date keys: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-16000", // 16MB cache
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createHabitsTable(); err != nil {
		return err
	}
	if err := db.createCheckinsTable(); err != nil {
		return err
	}
	return db.createKVTable()
}

func (db *DB) createHabitsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		start_date DATETIME NOT NULL,
		archived INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_habits_user ON habits(user_id);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// createCheckinsTable keeps both completion representations as stored so
// the union is resolved in one place on read.
func (db *DB) createCheckinsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS checkins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		habit_id TEXT NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		date_key TEXT NOT NULL,
		completed_at DATETIME,
		timestamp DATETIME,
		is_completed INTEGER,
		status TEXT,
		progress_value REAL,
		UNIQUE(habit_id, date_key)
	);
	CREATE INDEX IF NOT EXISTS idx_checkins_user_habit ON checkins(user_id, habit_id);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createKVTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
