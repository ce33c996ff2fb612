package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// DB adapts a database/sql pool to the Connector interface, rebinding ?
// placeholders into the backend's native style. Both provided backends are
// thin wrappers around this type.
type DB struct {
	db     *sql.DB
	driver string
	bind   int
	logger *slog.Logger
}

// NewDB wraps an open pool. bind is one of the sqlx bindvar styles
// (sqlx.QUESTION, sqlx.DOLLAR, ...).
func NewDB(db *sql.DB, driver string, bind int, logger *slog.Logger) *DB {
	return &DB{
		db:     db,
		driver: driver,
		bind:   bind,
		logger: logger,
	}
}

func (d *DB) rebind(query string) string {
	if d.bind == sqlx.QUESTION {
		return query
	}
	return sqlx.Rebind(d.bind, query)
}

func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.rebind(query), args...)
}

func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.rebind(query), args...)
}

// WithinTx runs fn inside a transaction. The transaction commits when fn
// returns nil, rolls back when it returns an error, and rolls back before
// re-raising when fn panics.
func (d *DB) WithinTx(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(&txQuerier{tx: tx, bind: d.bind})
	return err
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) DriverName() string {
	return d.driver
}

func (d *DB) Stats() sql.DBStats {
	return d.db.Stats()
}

// txQuerier scopes the Querier surface to one open transaction
type txQuerier struct {
	tx   *sql.Tx
	bind int
}

func (t *txQuerier) rebind(query string) string {
	if t.bind == sqlx.QUESTION {
		return query
	}
	return sqlx.Rebind(t.bind, query)
}

func (t *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.rebind(query), args...)
}

func (t *txQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.rebind(query), args...)
}

func (t *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.rebind(query), args...)
}
