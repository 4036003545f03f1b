// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hashlock/hashlock/internal/config"
	"github.com/hashlock/hashlock/internal/logging"
)

// NewRootCmd creates the root command for the hashlock CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "hashlock",
		Short: "hashlock - account, session and password reset service",
		Long: `hashlock serves e-mail/password and Google sign-in, cookie sessions,
password resets and a small admin surface over HTTP.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newReapCmd(deps))
	cmd.AddCommand(newPromoteCmd(deps))
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the configuration for cmd, including inherited flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(cmd.Flags())
}

// newLogger builds the process logger from cfg and installs it as the
// slog default.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.Setup("hashlock", version, cfg.Log.Format, cmd.ErrOrStderr(), logging.WithLevel(level))
	slog.SetDefault(logger)
	return logger, nil
}
