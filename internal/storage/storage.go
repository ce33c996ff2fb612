package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Querier is the statement surface shared by a live connection and an open
// transaction. Queries are written with ? placeholders; each backend rebinds
// them to its native form.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Connector is a live storage backend. Implementations bootstrap their own
// schema on open and are safe for concurrent use.
type Connector interface {
	Querier

	// WithinTx runs fn inside a transaction: commit on nil, rollback on
	// error or panic (the panic is re-raised).
	WithinTx(ctx context.Context, fn func(q Querier) error) error

	Ping(ctx context.Context) error
	Close() error
	DriverName() string
	Stats() sql.DBStats
}

// Config selects and configures a backend
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Factory builds a connected backend from a Config
type Factory func(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// ErrUnknownDriver is returned by Open for driver names nothing registered
var ErrUnknownDriver = errors.New("unknown storage driver")

// Register makes a backend available under a driver name. Backends call it
// from init, so importing a backend package is what registers it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if name == "" {
		panic("storage: driver name cannot be empty")
	}
	if factory == nil {
		panic("storage: factory cannot be nil")
	}
	if _, dup := registry[name]; dup {
		panic("storage: driver " + name + " registered twice")
	}
	registry[name] = factory
}

// Drivers lists the registered driver names, sorted
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open resolves cfg.Driver against the registry, connects the backend, and
// seeds the built-in roles. Unknown driver names fail with ErrUnknownDriver
// so misconfiguration surfaces at startup rather than first use.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Driver]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownDriver, cfg.Driver, strings.Join(Drivers(), ", "))
	}

	conn, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Driver, err)
	}

	if err := SeedRoles(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to seed built-in roles: %w", err)
	}

	return conn, nil
}
