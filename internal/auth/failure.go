// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"errors"
	"fmt"
)

// Kind is the fixed discriminant of a Failure.
type Kind string

// Failure kinds.
const (
	// KindValidation marks malformed input.
	KindValidation Kind = "validation"
	// KindAuthentication marks bad credentials or a missing/expired session.
	KindAuthentication Kind = "authentication"
	// KindAuthorization marks a valid session with an insufficient role.
	KindAuthorization Kind = "authorization"
	// KindConflict marks a duplicate identity (registration with a taken email).
	KindConflict Kind = "conflict"
	// KindMaskedNotFound marks a lookup miss that callers must observe as success.
	KindMaskedNotFound Kind = "masked_not_found"
	// KindUpstream marks an OAuth provider failure.
	KindUpstream Kind = "upstream"
	// KindRateLimited marks a request rejected by the admission gate.
	KindRateLimited Kind = "rate_limited"
	// KindInternal marks datastore, hashing or other unexpected failures.
	KindInternal Kind = "internal"
)

// Stable failure codes shared with the HTTP layer.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeAuthFailed         = "AUTHENTICATION_FAILED"
	CodeForbidden          = "FORBIDDEN"
	CodeUserExists         = "USER_EXISTS"
	CodeUnknownEmail       = "UNKNOWN_EMAIL"
	CodeUpstream           = "UPSTREAM_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	CodeResetTokenExpired  = "RESET_TOKEN_EXPIRED"
	CodeInternal           = "INTERNAL"
)

// Caller-visible messages. These never carry detail about which check failed.
const (
	MsgInvalidCredentials = "invalid email or password"
	MsgAuthFailed         = "authentication failed"
	MsgUnauthenticated    = "not authenticated"
	MsgForbidden          = "forbidden"
	MsgUserExists         = "user already exists"
	MsgInvalidRequest     = "invalid request"
	MsgResetTokenInvalid  = "invalid or expired reset token"
	MsgResetTokenExpired  = "reset token has expired"
	MsgRateLimited        = "too many requests"
	MsgInternal           = "internal server error"
)

// Failure is the single error shape handed to callers of the auth services.
// Message and Fields are safe to show; Err holds the cause for logging only.
type Failure struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// WithCause returns a copy of f carrying err as its cause.
func (f *Failure) WithCause(err error) *Failure {
	c := *f
	c.Err = err
	return &c
}

// NewFailure creates a Failure.
func NewFailure(kind Kind, code, message string) *Failure {
	return &Failure{Kind: kind, Code: code, Message: message}
}

// ValidationFailure creates a validation failure with per-field messages.
func ValidationFailure(fields map[string]string) *Failure {
	return &Failure{
		Kind:    KindValidation,
		Code:    CodeInvalidInput,
		Message: MsgInvalidRequest,
		Fields:  fields,
	}
}

// InvalidCredentials is the one failure returned for every failed login.
func InvalidCredentials() *Failure {
	return NewFailure(KindAuthentication, CodeInvalidCredentials, MsgInvalidCredentials)
}

// AuthenticationFailed is the one failure returned for every failed external login.
func AuthenticationFailed(cause error) *Failure {
	return NewFailure(KindAuthentication, CodeAuthFailed, MsgAuthFailed).WithCause(cause)
}

// Unauthenticated is returned when a protected surface sees no valid session.
func Unauthenticated() *Failure {
	return NewFailure(KindAuthentication, CodeUnauthenticated, MsgUnauthenticated)
}

// Forbidden is returned when the caller's role does not permit the operation.
func Forbidden() *Failure {
	return NewFailure(KindAuthorization, CodeForbidden, MsgForbidden)
}

// UnknownEmail reports a reset requested for an address nobody owns.
// Callers answer it exactly as they answer success.
func UnknownEmail() *Failure {
	return NewFailure(KindMaskedNotFound, CodeUnknownEmail, "")
}

// Upstream is returned when an external identity provider fails. The cause
// is kept for logs only.
func Upstream(cause error) *Failure {
	return NewFailure(KindUpstream, CodeUpstream, MsgAuthFailed).WithCause(cause)
}

// Internal wraps an unexpected error behind the generic message.
func Internal(cause error) *Failure {
	return NewFailure(KindInternal, CodeInternal, MsgInternal).WithCause(cause)
}

// AsFailure returns err as a Failure. Anything that is not already a Failure
// becomes an internal failure. A nil error yields nil.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return Internal(err)
}

// KindOf returns the discriminant of err, or "" for nil.
func KindOf(err error) Kind {
	if f := AsFailure(err); f != nil {
		return f.Kind
	}
	return ""
}
