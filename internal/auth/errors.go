// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import "errors"

// Repository sentinels. Implementations wrap these with oops so callers can
// match them with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")

	// ErrTokenExpired is returned when a reset token exists but is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)
