// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package notify delivers password reset links.
package notify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
)

// Providers.
const (
	ProviderLog    = "log"
	ProviderResend = "resend"
)

// Config selects and configures a notifier.
type Config struct {
	Provider string       `koanf:"provider" yaml:"provider"`
	Resend   ResendConfig `koanf:"resend" yaml:"resend"`
}

// New builds the notifier named by cfg.Provider. appURL is the public base
// URL reset links point at.
func New(cfg Config, appURL string, logger *slog.Logger) (auth.Notifier, error) {
	switch cfg.Provider {
	case "", ProviderLog:
		return NewLogNotifier(appURL, logger), nil
	case ProviderResend:
		return NewResendNotifier(cfg.Resend, appURL, WithLogger(logger))
	default:
		return nil, oops.Code("NOTIFY_UNKNOWN_PROVIDER").
			With("provider", cfg.Provider).
			Errorf("unknown notifier provider %q", cfg.Provider)
	}
}

// ResetLink returns the page URL that redeems token.
func ResetLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// LogNotifier writes reset links to the log instead of sending them. Meant
// for development.
type LogNotifier struct {
	appURL string
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(appURL string, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{appURL: appURL, logger: logger}
}

// Send logs the reset link for address.
func (n *LogNotifier) Send(ctx context.Context, address, token string) error {
	n.logger.InfoContext(ctx, "password reset requested",
		"to", address,
		"link", ResetLink(n.appURL, token))
	return nil
}

var _ auth.Notifier = (*LogNotifier)(nil)
