// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/auth/memstore"
	"github.com/hashlock/hashlock/internal/auth/postgres"
	"github.com/hashlock/hashlock/internal/config"
	"github.com/hashlock/hashlock/internal/store"
)

// Backend bundles the repositories behind the auth services.
type Backend struct {
	Users    auth.UserRepository
	Accounts auth.AccountRepository
	Sessions auth.SessionRepository
	Resets   auth.ResetTokenRepository

	// Ping reports whether the datastore answers.
	Ping func(ctx context.Context) error
	// Close releases connections.
	Close func()
}

// MemoryBackend returns a Backend over a fresh in-memory store.
func MemoryBackend() *Backend {
	s := memstore.New()
	return &Backend{
		Users:    s.Users(),
		Accounts: s.Accounts(),
		Sessions: s.Sessions(),
		Resets:   s.Resets(),
		Ping:     func(context.Context) error { return nil },
		Close:    func() {},
	}
}

// openBackend connects to Postgres, applying migrations first when
// configured, or falls back to memory in development.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg.UseMemoryStore() {
		logger.Warn("no database configured, using in-memory store; all data is lost on exit")
		return MemoryBackend(), nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return nil, err
		}
		logger.Info("database schema up to date")
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, store.DefaultPoolConfig(), logger)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	logger.Info("connected to database")

	return &Backend{
		Users:    postgres.NewUserRepository(pool),
		Accounts: postgres.NewAccountRepository(pool),
		Sessions: postgres.NewSessionRepository(pool),
		Resets:   postgres.NewResetTokenRepository(pool),
		Ping:     pool.Ping,
		Close:    pool.Close,
	}, nil
}

func migrateUp(databaseURL string) (err error) {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return migrator.Up()
}

// requireDatabase rejects maintenance commands that would act on an
// empty in-memory store.
func requireDatabase(cfg *config.Config) error {
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database.url is required (set --database-url, DATABASE_URL or HASHLOCK_DATABASE__URL)")
	}
	return nil
}
