// Package db owns the on-disk workspace: all state lives in one SQLite
// file under <workspace>/.cadence/. Opening the database creates that
// directory, so callers never bootstrap the workspace separately.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	stateDir = ".cadence"
	fileName = "cadence.db"
)

type Config struct {
	Workspace string
}

// Dir returns the state directory for a workspace root.
func Dir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, stateDir)
}

// Path returns the database file path for a workspace root.
func Path(workspace string) string {
	return filepath.Join(Dir(workspace), fileName)
}

// Open creates the workspace state directory if needed and opens its
// database. WAL keeps readers unblocked while the engine holds a write
// transaction; the busy timeout covers the CLI and the server sharing
// one workspace.
func Open(cfg Config) (*sql.DB, error) {
	dir := Dir(cfg.Workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	dsn := "file:" + Path(cfg.Workspace) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", Path(cfg.Workspace), err)
	}
	return conn, nil
}
