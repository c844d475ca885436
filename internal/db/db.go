// Package db opens SQLite databases and applies versioned schema migrations.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Schema is an ordered list of DDL scripts. Script i brings the database to
// user_version i+1.
type Schema []string

// Open opens (or creates) the SQLite database at path and applies any
// migrations in schema that have not run yet.
func Open(path string, schema Schema) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	if err := Migrate(conn, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return conn, nil
}

// OpenMemory opens an in-memory database for tests.
func OpenMemory(schema Schema) (*sql.DB, error) {
	return Open(":memory:", schema)
}

// Migrate runs the scripts of schema above the current user_version.
func Migrate(conn *sql.DB, schema Schema) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= len(schema) {
		return nil
	}

	for v := version; v < len(schema); v++ {
		if _, err := conn.Exec(schema[v]); err != nil {
			return fmt.Errorf("apply schema v%d: %w", v+1, err)
		}
	}

	_, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(schema)))
	return err
}

// Version returns the schema version recorded in the database.
func Version(conn *sql.DB) (int, error) {
	var version int
	err := conn.QueryRow("PRAGMA user_version").Scan(&version)
	return version, err
}

// DefaultDir returns ~/.config/basketscore
func DefaultDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "basketscore"), nil
}
