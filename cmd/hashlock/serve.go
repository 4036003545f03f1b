// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/config"
	"github.com/hashlock/hashlock/internal/gateway"
	"github.com/hashlock/hashlock/internal/observability"
	"github.com/hashlock/hashlock/internal/ratelimit"
	"github.com/hashlock/hashlock/internal/tasks"
	"github.com/hashlock/hashlock/pkg/errutil"
)

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the auth gateway",
		Long: `Start the HTTP auth gateway together with the observability server,
the background task pool and the expired-row reaper.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg, deps)
		},
	}
}

// runServe runs until ctx is cancelled or a server fails, then shuts
// everything down in reverse order.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, deps *Deps) error {
	deps = deps.withDefaults()

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	logger.Info("starting hashlock",
		"version", version,
		"environment", cfg.Environment,
		"addr", cfg.Server.Addr)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Environment,
			Release:     version,
		}); err != nil {
			return oops.Code("SENTRY_INIT_FAILED").Wrap(err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	backend, err := deps.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	pool := tasks.NewPool(cfg.Tasks, logger)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := pool.Close(drainCtx); err != nil {
			errutil.LogError(logger, "task pool did not drain", err)
		}
	}()

	svc, err := buildServices(cfg, backend, pool, logger)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewManager(cfg.RateLimit, ratelimit.WithLogger(logger))
	defer func() {
		if err := limiter.Close(); err != nil {
			logger.Warn("error closing rate limiter", "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router, err := gateway.NewRouter(svc.gateway, gateway.RouterConfig{
		SecureCookies:  cfg.IsProduction(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		Limiter:        limiter,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	reaper := auth.NewReaper(svc.sessions, svc.resets, cfg.Reaper.Interval, logger)
	reaper.Start()
	defer reaper.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Observability.Addr != "" {
		obs := deps.ObservabilityServerFactory(cfg.Observability.Addr, version,
			[]observability.Registrar{
				gateway.RegisterMetrics,
				ratelimit.RegisterMetrics,
				tasks.RegisterMetrics,
			},
			observability.WithLogger(logger),
			observability.WithReadiness(func(ctx context.Context) bool {
				return backend.Ping(ctx) == nil
			}),
		)
		obsErrCh, err := obs.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := obs.Stop(stopCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
	}

	listener, err := deps.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	httpErrCh := make(chan error, 1)
	go func() {
		defer close(httpErrCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			httpErrCh <- serveErr
		}
	}()

	addr := listener.Addr().String()
	logger.Info("auth gateway ready", "addr", addr, "app_url", cfg.AppURL)
	cmd.Println("hashlock listening on " + addr)
	deps.OnReady(addr)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-httpErrCh:
		if ok && err != nil {
			serveErr = oops.Code("SERVE_FAILED").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping auth gateway", "error", err)
	}

	logger.Info("shutdown complete")
	return serveErr
}

// monitorServerErrors cancels ctx when the server reports an error. It
// exits when the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
