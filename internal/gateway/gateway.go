// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package gateway exposes the auth services to clients. Gateway handlers are
// transport neutral: the session credential comes in on Caller and leaves as
// a CredentialInstruction on Response. The gin adapter in this package maps
// both onto the session cookie.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/oauth"
)

// Caller describes who is making a request.
type Caller struct {
	// Credential is the session token presented by the client, if any.
	Credential string
	// ClientKey identifies the client for rate limiting and audit logs.
	ClientKey string
}

// CredentialOp tells the transport what to do with the client credential.
type CredentialOp int

// Credential operations.
const (
	CredentialUnchanged CredentialOp = iota
	CredentialSet
	CredentialClear
)

// String implements fmt.Stringer.
func (op CredentialOp) String() string {
	switch op {
	case CredentialSet:
		return "set"
	case CredentialClear:
		return "clear"
	default:
		return "unchanged"
	}
}

// CredentialInstruction is the credential change a Response asks for.
type CredentialInstruction struct {
	Op        CredentialOp
	Value     string
	ExpiresAt time.Time
}

// Response is a transport-neutral reply. A non-empty Location means redirect.
type Response struct {
	Status     int
	Body       any
	Location   string
	Credential CredentialInstruction
}

// Services bundles the auth components a Gateway drives.
type Services struct {
	Accounts *auth.Service
	Sessions *auth.SessionStore
	Linker   *auth.IdentityLinker
	Resets   *auth.ResetManager
	// Provider is the external identity provider. Nil disables the OAuth
	// callback.
	Provider oauth.Provider
}

// Gateway implements the auth endpoints.
type Gateway struct {
	svc    Services
	appURL string
	logger *slog.Logger
}

// New creates a Gateway. appURL is the public site base used for redirects.
func New(svc Services, appURL string, logger *slog.Logger) (*Gateway, error) {
	if svc.Accounts == nil || svc.Sessions == nil || svc.Linker == nil || svc.Resets == nil {
		return nil, oops.Code("GATEWAY_INVALID_SERVICES").Errorf("accounts, sessions, linker and resets are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		svc:    svc,
		appURL: strings.TrimRight(appURL, "/"),
		logger: logger,
	}, nil
}

// Authenticate resolves a credential to its user and session. Both are nil
// when the credential is empty, unknown or expired.
func (g *Gateway) Authenticate(ctx context.Context, credential string) (*auth.User, *auth.Session, error) {
	user, session, err := g.svc.Sessions.Validate(ctx, credential)
	if err != nil {
		return nil, nil, auth.Internal(err)
	}
	return user, session, nil
}

// StatusFor maps a Failure to its HTTP status.
func StatusFor(f *auth.Failure) int {
	switch f.Kind {
	case auth.KindValidation:
		if f.Code == auth.CodeResetTokenExpired {
			return http.StatusGone
		}
		return http.StatusBadRequest
	case auth.KindAuthentication:
		return http.StatusUnauthorized
	case auth.KindAuthorization:
		return http.StatusForbidden
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindMaskedNotFound:
		return http.StatusOK
	case auth.KindUpstream:
		return http.StatusFound
	case auth.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON shape of every failure response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewErrorBody renders the caller-safe parts of f.
func NewErrorBody(f *auth.Failure) ErrorBody {
	return ErrorBody{Error: f.Message, Code: f.Code, Fields: f.Fields}
}

func (g *Gateway) redirect(path string) string {
	return g.appURL + path
}
