// Package db holds the shared DuckDB connection used by the spatial
// buffer engine.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DataDir opens an
// in-memory database.
type Config struct {
	DataDir string
	DBName  string
}

// Path is the database file, or "" for an in-memory database.
func (c Config) Path() string {
	if c.DataDir == "" {
		return ""
	}
	name := c.DBName
	if name == "" {
		name = "river"
	}
	return filepath.Join(c.DataDir, "duckdb", name+".duckdb")
}

// Get returns the singleton DuckDB connection with the spatial extension
// loaded.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(cfg)
	})
	return instance, initErr
}

// Open opens a fresh connection. Most callers want Get.
func Open(cfg Config) (*sql.DB, error) {
	path := cfg.Path()
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
	}

	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// INSTALL fails offline when the extension is already cached; LOAD is
	// the one that must succeed.
	_, _ = conn.Exec("INSTALL spatial;")
	if _, err := conn.Exec("LOAD spatial;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("load spatial extension: %w", err)
	}
	return conn, nil
}

// Close closes the shared connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
