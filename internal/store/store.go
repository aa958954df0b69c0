// Package store provides SQLite storage for the exercise catalog and
// service settings.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store represents a SQLite database connection.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the database at dbPath, switches it to WAL and migrates the
// schema to the latest version.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL is persisted in the file, so one statement covers every pooled
	// connection.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}
