// Package store provides SQLite-backed persistence for shelfkeep.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository code runs against either, so transaction scope is decided by the
// caller, never by the repository.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite-backed data store. The database is single-process,
// single-writer: one pooled connection, exclusive transactions for every
// mutating operation.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	version *versionMarker
}

// MemoryDSN opens a private in-memory database, used by tests.
const MemoryDSN = ":memory:"

// Open opens (or creates) the database at path and bootstraps the baseline
// schema when the file carries no tables yet. Migrations are not run here;
// callers run the Migrator before touching repositories.
func Open(path string) (*Store, error) {
	dsn := "file:" + path
	if path == MemoryDSN {
		dsn = "file::memory:"
	}
	// _txlock=exclusive makes BeginTx issue BEGIN EXCLUSIVE, serializing
	// readers and writers for the transaction's duration.
	dsn += "?_txlock=exclusive&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection enforces the single-writer model and keeps
	// connection-scoped pragmas (and :memory: databases) stable.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, version: newVersionMarker(path)}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// bootstrap installs the baseline (version 0) schema on a fresh database,
// the equivalent of shipping a template database file. The migration runner
// brings it forward from whatever version the marker reports.
func (s *Store) bootstrap() error {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'pages'`,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec(baselineSchema); err != nil {
		return fmt.Errorf("create baseline schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SchemaVersion reports the persisted schema version, 0 when absent.
func (s *Store) SchemaVersion() (int, error) {
	return s.version.read()
}

// WithExclusiveTx runs fn inside one exclusive transaction. Any error from fn
// rolls the whole transaction back and is returned unchanged.
func (s *Store) WithExclusiveTx(ctx context.Context, fn func(q Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WithRead runs fn against the store without a transaction. Reads that are
// not part of a write do not need exclusivity.
func (s *Store) WithRead(ctx context.Context, fn func(q Querier) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.db)
}
