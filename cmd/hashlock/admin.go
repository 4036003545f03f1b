// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hashlock/hashlock/internal/auth"
)

func newReapCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Delete expired sessions and reset tokens once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, deps, func(svc *services) error {
				reaper := auth.NewReaper(svc.sessions, svc.resets, 0, nil)
				sessions, resets := reaper.RunOnce(cmd.Context())
				cmd.Printf("Removed %d expired sessions and %d expired reset tokens\n", sessions, resets)
				return nil
			})
		},
	}
}

func newPromoteCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "promote EMAIL",
		Short: "Grant the admin role to a user",
		Long: `Grant the admin role to the user registered with EMAIL. This is how
the first administrator is created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, deps, func(svc *services) error {
				user, err := svc.accounts.PromoteByEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				cmd.Printf("Promoted %s (%s) to %s\n", user.Email, user.ID, user.Role)
				return nil
			})
		},
	}
}

// withServices wires the auth layer against the configured database for a
// one-shot command. Notifications run inline.
func withServices(cmd *cobra.Command, deps *Deps, fn func(*services) error) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireDatabase(cfg); err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	backend, err := deps.OpenBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc, err := buildServices(cfg, backend, inlineTasks{}, logger)
	if err != nil {
		return err
	}
	return fn(svc)
}

// inlineTasks runs submitted work synchronously.
type inlineTasks struct{}

func (inlineTasks) Submit(_ string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}
