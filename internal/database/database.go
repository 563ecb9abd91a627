// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxConns      int32
	Attempts      int
	RetryInterval time.Duration
}

// DefaultPoolOptions returns pool defaults for a small service.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{MaxConns: 20, Attempts: 5, RetryInterval: 2 * time.Second}
}

// NewPool creates and validates a pgxpool connection pool.
// It retries to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string, opts PoolOptions, logger *logging.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = logging.Default()
	}
	def := DefaultPoolOptions()
	if opts.MaxConns <= 0 {
		opts.MaxConns = def.MaxConns
	}
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = def.RetryInterval
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = opts.MaxConns
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn("db connect attempt failed", "attempt", attempt, "max", opts.Attempts, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryInterval):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}
