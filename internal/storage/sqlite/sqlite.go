// Package sqlite provides the embedded SQLite storage backend. Importing it
// registers the "sqlite" driver with the storage registry.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sacbeh/gatehouse/internal/storage"
	"github.com/sacbeh/gatehouse/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// DriverName is the registry name of this backend
const DriverName = "sqlite"

func init() {
	storage.Register(DriverName, New)
}

// New opens the database at cfg.DSN, applies connection pragmas and schema
// migrations, and wraps the pool as a storage.Connector. Plain file paths
// and URI DSNs (including file:name?mode=memory&cache=shared for tests)
// both work.
func New(ctx context.Context, cfg storage.Config, logger *slog.Logger) (storage.Connector, error) {
	db, err := sql.Open("sqlite", applyPragmas(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run sqlite migrations: %w", err)
	}

	logger.Info("sqlite storage ready", slog.String("dsn", cfg.DSN))

	return storage.NewDB(db, DriverName, sqlx.QUESTION, logger), nil
}

// applyPragmas appends the connection pragmas every pool needs, in the
// _pragma form the modernc driver understands.
func applyPragmas(dsn string) string {
	pragmas := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}
