// Package catalog persists scan results so later commands can query them
// without rescanning the source tree.
//
// Two backends share one schema: SQLite (catalog.db) for plain snapshots and
// Dolt (a repository under catalog/) when every saved run should become a
// commit whose differences can be queried.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/dolthub/driver"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a filter is not in the catalog.
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned for history queries on a backend without history.
var ErrUnsupported = errors.New("not supported by this backend")

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendDolt   = "dolt"
)

const doltDatabase = "ffscan"

// Catalog is an open catalog database.
type Catalog struct {
	db      *sql.DB
	path    string
	backend string
}

// Open opens or creates the catalog of the given backend inside dir.
func Open(backend, dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	var (
		c   *Catalog
		err error
	)
	switch backend {
	case BackendSQLite, "":
		c, err = openSQLite(dir)
	case BackendDolt:
		c, err = openDolt(dir)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	if err := c.initSchema(); err != nil {
		c.db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return c, nil
}

func openSQLite(dir string) (*Catalog, error) {
	dbPath := filepath.Join(dir, "catalog.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	// Enable WAL mode so readers (the MCP server) do not block a scan
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	return &Catalog{db: db, path: dbPath, backend: BackendSQLite}, nil
}

func openDolt(dir string) (*Catalog, error) {
	dbPath := filepath.Join(dir, "catalog")
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("create dolt directory: %w", err)
	}

	// First, connect without specifying database to create it if needed
	initDSN := fmt.Sprintf("file://%s?commitname=ffscan&commitemail=ffscan@local", dbPath)
	initDB, err := sql.Open("dolt", initDSN)
	if err != nil {
		return nil, fmt.Errorf("open dolt for init: %w", err)
	}
	if _, err := initDB.Exec("CREATE DATABASE IF NOT EXISTS " + doltDatabase); err != nil {
		initDB.Close()
		return nil, fmt.Errorf("create database: %w", err)
	}
	initDB.Close()

	dsn := fmt.Sprintf("file://%s?commitname=ffscan&commitemail=ffscan@local&database=%s", dbPath, doltDatabase)
	db, err := sql.Open("dolt", dsn)
	if err != nil {
		return nil, fmt.Errorf("open dolt db: %w", err)
	}

	return &Catalog{db: db, path: dbPath, backend: BackendDolt}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file or repository path.
func (c *Catalog) Path() string {
	return c.path
}

// Backend returns the backend name.
func (c *Catalog) Backend() string {
	return c.backend
}
