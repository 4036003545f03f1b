// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	// MaxConns caps open connections; zero keeps the pgxpool default.
	MaxConns int32
	// ConnectAttempts bounds the startup ping retries.
	ConnectAttempts uint64
	// ConnectBackoff is the first retry delay; it doubles per attempt.
	ConnectBackoff time.Duration
}

// DefaultPoolConfig returns the settings used by the server.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		ConnectAttempts: 5,
		ConnectBackoff:  250 * time.Millisecond,
	}
}

// Connect opens a pool and waits until the database answers a ping,
// retrying with exponential backoff while it starts up.
func Connect(ctx context.Context, dsn string, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	backoff := cfg.ConnectBackoff
	if backoff <= 0 {
		backoff = DefaultPoolConfig().ConnectBackoff
	}
	b := retry.WithMaxRetries(cfg.ConnectAttempts, retry.NewExponential(backoff))

	attempt := 0
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}

	logger.Info("connected to database", "host", poolCfg.ConnConfig.Host, "database", poolCfg.ConnConfig.Database)
	return pool, nil
}
