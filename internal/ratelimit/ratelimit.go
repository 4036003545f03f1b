// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package ratelimit provides sliding-window admission control keyed by
// client and bucket. Only admitted calls occupy a slot in the window.
package ratelimit

import (
	"context"
	"time"
)

// Buckets guarded by the gateway.
const (
	BucketLogin          = "login"
	BucketRegister       = "register"
	BucketForgotPassword = "forgot-password"
	BucketResetPassword  = "reset-password"
)

// DefaultPolicy admits five calls per key per rolling minute.
var DefaultPolicy = Policy{Limit: 5, Window: time.Minute}

// Policy bounds admissions per key within a rolling window. A non-positive
// Limit disables limiting.
type Policy struct {
	Limit  int           `koanf:"limit" yaml:"limit"`
	Window time.Duration `koanf:"window" yaml:"window"`
}

// Disabled reports whether the policy admits everything.
func (p Policy) Disabled() bool {
	return p.Limit <= 0 || p.Window <= 0
}

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until a slot frees up; zero when Allowed.
	RetryAfter time.Duration
}

// Limiter records admissions for a key under a policy.
type Limiter interface {
	Allow(ctx context.Context, key string, p Policy, now time.Time) (Result, error)
}

// Key joins a bucket and a client identity into a limiter key.
func Key(bucket, clientKey string) string {
	if clientKey == "" {
		clientKey = "unknown"
	}
	return bucket + ":" + clientKey
}
