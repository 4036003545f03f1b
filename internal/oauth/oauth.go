// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package oauth exchanges external authorization codes for verified
// identity profiles.
package oauth

import (
	"context"

	"github.com/hashlock/hashlock/internal/auth"
)

// Provider turns an authorization code into a verified profile.
type Provider interface {
	Name() string
	Exchange(ctx context.Context, code string) (auth.Profile, error)
}
