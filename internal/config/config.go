// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package config loads hashlock configuration from built-in defaults, a
// YAML file, HASHLOCK_* environment variables and command-line flags, in
// that order of precedence.
package config

import (
	"time"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/notify"
	"github.com/hashlock/hashlock/internal/oauth"
	"github.com/hashlock/hashlock/internal/ratelimit"
	"github.com/hashlock/hashlock/internal/tasks"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config is the complete service configuration.
type Config struct {
	Environment   string              `koanf:"environment" yaml:"environment"`
	AppURL        string              `koanf:"app_url" yaml:"app_url"`
	Server        ServerConfig        `koanf:"server" yaml:"server"`
	Log           LogConfig           `koanf:"log" yaml:"log"`
	Database      DatabaseConfig      `koanf:"database" yaml:"database"`
	RateLimit     ratelimit.Config    `koanf:"ratelimit" yaml:"ratelimit"`
	Tasks         tasks.Config        `koanf:"tasks" yaml:"tasks"`
	Notify        notify.Config       `koanf:"notify" yaml:"notify"`
	OAuth         OAuthConfig         `koanf:"oauth" yaml:"oauth"`
	Reaper        ReaperConfig        `koanf:"reaper" yaml:"reaper"`
	Observability ObservabilityConfig `koanf:"observability" yaml:"observability"`
	Sentry        SentryConfig        `koanf:"sentry" yaml:"sentry"`
}

// ServerConfig configures the gateway listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	// AllowedOrigins are glob patterns for credentialed CORS callers.
	AllowedOrigins []string `koanf:"allowed_origins" yaml:"allowed_origins"`
	// TrustedProxies are the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the peer address is always the client address.
	TrustedProxies []string `koanf:"trusted_proxies" yaml:"trusted_proxies"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// DatabaseConfig configures Postgres. An empty URL in development selects
// the in-memory store.
type DatabaseConfig struct {
	URL         string `koanf:"url" yaml:"url"`
	AutoMigrate bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// OAuthConfig holds identity provider credentials.
type OAuthConfig struct {
	Google oauth.GoogleConfig `koanf:"google" yaml:"google"`
}

// ReaperConfig configures the expired-row sweeper.
type ReaperConfig struct {
	Interval time.Duration `koanf:"interval" yaml:"interval"`
}

// ObservabilityConfig configures the metrics and probes listener. An empty
// address disables it.
type ObservabilityConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN string `koanf:"dsn" yaml:"dsn"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment: EnvDevelopment,
		AppURL:      "http://localhost:3000",
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{},
			TrustedProxies:  []string{},
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Database: DatabaseConfig{
			AutoMigrate: true,
		},
		RateLimit: ratelimit.DefaultConfig(),
		Tasks:     tasks.DefaultConfig(),
		Notify: notify.Config{
			Provider: notify.ProviderLog,
			Resend: notify.ResendConfig{
				From:     notify.DefaultFrom,
				Endpoint: notify.DefaultResendEndpoint,
			},
		},
		Reaper: ReaperConfig{
			Interval: auth.DefaultReapInterval,
		},
		Observability: ObservabilityConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// UseMemoryStore reports whether the in-memory store replaces Postgres.
func (c *Config) UseMemoryStore() bool {
	return c.Database.URL == "" && !c.IsProduction()
}
