// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/config"
	"github.com/hashlock/hashlock/internal/gateway"
	"github.com/hashlock/hashlock/internal/notify"
	"github.com/hashlock/hashlock/internal/oauth"
)

// services is the wired auth layer.
type services struct {
	accounts *auth.Service
	sessions *auth.SessionStore
	linker   *auth.IdentityLinker
	resets   *auth.ResetManager
	gateway  *gateway.Gateway
}

func buildServices(cfg *config.Config, backend *Backend, tasks auth.TaskSubmitter, logger *slog.Logger) (*services, error) {
	opts := []auth.Option{auth.WithLogger(logger)}
	hasher := auth.NewArgon2idHasher()

	accounts, err := auth.NewService(backend.Users, hasher, opts...)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("component", "accounts").Wrap(err)
	}
	sessions, err := auth.NewSessionStore(backend.Sessions, opts...)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("component", "sessions").Wrap(err)
	}
	linker, err := auth.NewIdentityLinker(backend.Users, backend.Accounts, sessions, opts...)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("component", "linker").Wrap(err)
	}

	notifier, err := notify.New(cfg.Notify, cfg.AppURL, logger)
	if err != nil {
		return nil, err
	}
	resets, err := auth.NewResetManager(backend.Users, backend.Resets, hasher, notifier, tasks, opts...)
	if err != nil {
		return nil, oops.Code("WIRING_FAILED").With("component", "resets").Wrap(err)
	}

	svc := gateway.Services{
		Accounts: accounts,
		Sessions: sessions,
		Linker:   linker,
		Resets:   resets,
	}
	if cfg.OAuth.Google.Enabled() {
		google, err := oauth.NewGoogle(cfg.OAuth.Google)
		if err != nil {
			return nil, err
		}
		svc.Provider = google
	} else {
		logger.Info("google sign-in disabled, no client credentials configured")
	}

	gw, err := gateway.New(svc, cfg.AppURL, logger)
	if err != nil {
		return nil, err
	}

	return &services{
		accounts: accounts,
		sessions: sessions,
		linker:   linker,
		resets:   resets,
		gateway:  gw,
	}, nil
}
