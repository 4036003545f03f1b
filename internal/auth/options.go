// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"log/slog"
	"time"
)

// Option configures the auth services.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
	tokens *TokenIssuer
}

func applyOptions(opts []Option) options {
	o := options{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tokens == nil {
		o.tokens = NewTokenIssuer()
	}
	return o
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTokenIssuer overrides the token issuer.
func WithTokenIssuer(tokens *TokenIssuer) Option {
	return func(o *options) {
		if tokens != nil {
			o.tokens = tokens
		}
	}
}
