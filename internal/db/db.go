package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"photo-rating/internal/config"
	"photo-rating/internal/db/migrations"
	"photo-rating/internal/dbx"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DB owns the PostgreSQL pool and a database/sql handle backed by it.
type DB struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Open creates the connection pool and waits for PostgreSQL to answer,
// retrying with a linear backoff up to cfg.ConnectRetries times.
func Open(ctx context.Context, cfg config.Database, logger *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	poolCfg.MinConns = min(2, poolCfg.MaxConns)
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	attempts := max(cfg.ConnectRetries, 1)
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt >= attempts {
			pool.Close()
			return nil, fmt.Errorf("unable to ping database after %d attempts: %w", attempt, err)
		}
		wait := cfg.RetryInterval * time.Duration(attempt)
		logger.Warn("database not ready, retrying", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	logger.Info("connected to PostgreSQL", "max_conns", poolCfg.MaxConns)
	return &DB{Pool: pool, SQL: stdlib.OpenDBFromPool(pool)}, nil
}

// Close closes the sql handle and then the pool.
func (d *DB) Close() {
	if d == nil {
		return
	}
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// WithConnection pins one connection for the duration of fn and always
// returns it to the pool.
func WithConnection(ctx context.Context, db *sql.DB, fn func(ctx context.Context, conn dbx.DBTX) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(ctx, conn)
}

// Ping checks the database using a scoped connection.
func Ping(ctx context.Context, db *sql.DB) error {
	return WithConnection(ctx, db, func(ctx context.Context, conn dbx.DBTX) error {
		var one int
		return conn.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	})
}

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
