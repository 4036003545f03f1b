// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTTL is the fixed lifetime of a session. Sessions are never renewed.
const SessionTTL = 7 * 24 * time.Hour

// Session is proof of authentication. The bearer token handed to the client
// is not stored; TokenHash is its SHA-256 digest.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(userID ulid.ULID, tokenHash string, now time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	now = now.UTC()
	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}, nil
}

// IsExpiredAt reports whether the session is expired at t. A session is
// valid only while t < ExpiresAt.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session and its owner. Expired rows are
	// returned as-is; callers decide validity.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, *User, error)

	// DeleteByTokenHash removes a session. Deleting a missing session is not an error.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByUser removes every session of a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes sessions with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore issues, validates and revokes sessions.
type SessionStore struct {
	sessions SessionRepository
	tokens   *TokenIssuer
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(sessions SessionRepository, opts ...Option) (*SessionStore, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	o := applyOptions(opts)
	return &SessionStore{
		sessions: sessions,
		tokens:   o.tokens,
		now:      o.now,
		logger:   o.logger,
	}, nil
}

// Create issues a session for userID and returns it with the plaintext token.
func (s *SessionStore) Create(ctx context.Context, userID ulid.ULID) (*Session, string, error) {
	token, tokenHash, err := s.tokens.Issue()
	if err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").With("operation", "generate token").Wrap(err)
	}

	session, err := NewSession(userID, tokenHash, s.now())
	if err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").With("operation", "build session").Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}

	return session, token, nil
}

// Validate resolves a bearer token. Unknown, empty and expired tokens all
// yield (nil, nil, nil); an error means the datastore failed.
func (s *SessionStore) Validate(ctx context.Context, token string) (*User, *Session, error) {
	if token == "" {
		return nil, nil, nil
	}

	session, user, err := s.sessions.GetByTokenHash(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpiredAt(s.now()) {
		return nil, nil, nil
	}

	return user, session, nil
}

// Destroy revokes the session behind token. Idempotent.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(ctx, HashToken(token)); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").With("operation", "delete session").Wrap(err)
	}
	return nil
}

// DestroyAllForUser revokes every session of userID.
func (s *SessionStore) DestroyAllForUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return n, nil
}

// Reap deletes expired rows. Validation never depends on it.
func (s *SessionStore) Reap(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_REAP_FAILED").Wrap(err)
	}
	if n > 0 {
		s.logger.Debug("reaped expired sessions", "count", n)
	}
	return n, nil
}
