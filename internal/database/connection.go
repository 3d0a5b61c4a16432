package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when the sqlite DSN is empty
var DefaultSQLitePath = filepath.Join("data", "reviewbot.db")

// ErrNotFound is returned when a file or word does not exist
var ErrNotFound = errors.New("database: not found")

// Connect opens the database and makes sure the schema exists
func Connect(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			if err := os.MkdirAll(filepath.Dir(DefaultSQLitePath), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			dsn = DefaultSQLitePath
		}
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres DSN is empty")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers; one connection also keeps
		// an in-memory database alive between queries.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	statements := sqliteSchema
	if db.DriverName() == DriverPostgres {
		statements = postgresSchema
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		daily_words INTEGER,
		review_interval TEXT,
		review_start TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		text TEXT NOT NULL,
		translation TEXT NOT NULL DEFAULT '',
		pronunciation TEXT NOT NULL DEFAULT '',
		translations TEXT NOT NULL DEFAULT '{}',
		review_count INTEGER NOT NULL DEFAULT 0,
		last_reviewed TIMESTAMP,
		next_review TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE,
		UNIQUE(file_id, idx)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_words_file_text ON words(file_id, text)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		daily_words INTEGER,
		review_interval TEXT,
		review_start TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id BIGSERIAL PRIMARY KEY,
		file_id BIGINT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		text TEXT NOT NULL,
		translation TEXT NOT NULL DEFAULT '',
		pronunciation TEXT NOT NULL DEFAULT '',
		translations TEXT NOT NULL DEFAULT '{}',
		review_count INTEGER NOT NULL DEFAULT 0,
		last_reviewed TIMESTAMPTZ,
		next_review TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(file_id, idx)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_words_file_text ON words(file_id, text)`,
}
