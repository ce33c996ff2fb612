// Package postgres provides the PostgreSQL storage backend over the pgx
// driver. Importing it registers the "postgres" driver with the storage
// registry.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sacbeh/gatehouse/internal/storage"
	"github.com/sacbeh/gatehouse/internal/storage/postgres/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DriverName is the registry name of this backend
const DriverName = "postgres"

func init() {
	storage.Register(DriverName, New)
}

// New connects to the database at cfg.DSN, applies schema migrations, and
// wraps the pool as a storage.Connector. Queries arrive with ? placeholders
// and are rebound to $N before execution.
func New(ctx context.Context, cfg storage.Config, logger *slog.Logger) (storage.Connector, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
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
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run postgres migrations: %w", err)
	}

	logger.Info("postgres storage ready")

	return storage.NewDB(db, DriverName, sqlx.DOLLAR, logger), nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}
