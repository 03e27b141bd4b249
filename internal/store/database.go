// Package store handles the host's SQLite database: stored procedure and
// function definitions, data tables scripts query through EXECUTE, and
// persisted query results.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Database is the SQLite database handle.
type Database struct {
	db  *sql.DB
	now func() time.Time
}

var (
	// ErrDefinitionNotFound indicates the requested definition is not stored.
	ErrDefinitionNotFound = errors.New("definition not found")
	// ErrNewerSchema indicates the database was written by a newer plesql.
	ErrNewerSchema = errors.New("database schema is newer than this binary supports")
)

// CurrentDBVersion is the current database schema version.
const CurrentDBVersion = 1

// DB returns the underlying sql.DB for advanced queries.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Open opens or creates the database at path.
func Open(path string) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db, now: time.Now}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// OpenInMemory opens an in-memory database (for testing).
func OpenInMemory() (*Database, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	d := &Database{db: db, now: time.Now}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// Close closes the database.
func (d *Database) Close() error {
	return d.db.Close()
}

// Version returns the schema version recorded in the database.
func (d *Database) Version(ctx context.Context) (int, error) {
	var raw string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&raw)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// initialize creates the database schema.
func (d *Database) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
		PRAGMA temp_store = MEMORY;
		PRAGMA busy_timeout = 5000;

		-- Metadata table for version tracking
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		-- Stored procedures and functions, body kept in the YAML tree format
		CREATE TABLE IF NOT EXISTS definitions (
			name TEXT PRIMARY KEY COLLATE NOCASE,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		-- Results written by EXECUTE ... PERSIST INTO
		CREATE TABLE IF NOT EXISTS persisted_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			target TEXT NOT NULL,
			columns TEXT NOT NULL DEFAULT '[]',
			rows TEXT NOT NULL DEFAULT '[]',
			row_count INTEGER NOT NULL,
			persisted_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_persisted_target ON persisted_results(target);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	var raw string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key = 'version'`).Scan(&raw)
	if err == nil {
		if v, convErr := strconv.Atoi(raw); convErr == nil && v > CurrentDBVersion {
			return fmt.Errorf("%w (found v%d, supported v%d)", ErrNewerSchema, v, CurrentDBVersion)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read database version: %w", err)
	}

	if err := setMeta(context.Background(), d.db, "version", strconv.Itoa(CurrentDBVersion)); err != nil {
		return fmt.Errorf("failed to set database version: %w", err)
	}

	return nil
}
