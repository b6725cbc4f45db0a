// Package storage defines the backend-agnostic boundary between the
// transform-and-load core and the relational database. Concrete backends
// (postgres, sqlite, mssql) register themselves with the factory and
// implement these semantics in their own idiomatic way (RETURNING,
// LastInsertId, OUTPUT INSERTED, etc).
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the connection-scoped handle for one logical pipeline phase.
//
// IMPORTANT: This interface is intentionally minimal and focused on what the
// loaders need: idempotent DDL, a single transaction per loader, and the
// ad-hoc query path the analytical runner uses.
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTables creates tables and constraints as needed
	// (create-if-not-exists semantics). A failure here is fatal to the run.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// Begin opens the loader's unit of work. Loaders insert row by row and
	// commit exactly once after the insert loop.
	Begin(ctx context.Context) (Tx, error)

	// Query executes an ad-hoc SQL statement and materializes the result.
	// Used by the analytical query runner, not by the load path.
	Query(ctx context.Context, sql string, args ...any) (columns []string, rows [][]any, err error)
}

// Tx is a single open transaction.
type Tx interface {
	// InsertReturningID inserts one row and returns the generated surrogate
	// key (idColumn). A uniqueness violation is reported as
	// *DuplicateKeyError so callers can branch explicitly instead of
	// string-matching driver errors.
	InsertReturningID(ctx context.Context, table, idColumn string, columns []string, values []any) (int64, error)

	// LookupID fetches the surrogate key of the row whose matchColumn equals
	// value. found is false when no row matches.
	LookupID(ctx context.Context, table, idColumn, matchColumn string, value any) (id int64, found bool, err error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DuplicateKeyError reports a uniqueness violation, identifying the violated
// column so callers can decide whether the duplicate is recoverable.
//
// Backends derive Table/Column from the constraint name, which the DDL
// builders emit as uq_<table>_<column> precisely so every backend can
// recover the column without vendor-specific metadata queries.
type DuplicateKeyError struct {
	Table  string
	Column string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("storage: duplicate key on %s.%s", e.Table, e.Column)
}

// ---- factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast and
//     avoid ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Concurrency:
//   - Safe for concurrent use with Register. New takes a read lock while
//     selecting the factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
