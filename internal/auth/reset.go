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

	"github.com/hashlock/hashlock/pkg/errutil"
)

// ResetTokenTTL is the lifetime of a password reset token.
const ResetTokenTTL = time.Hour

// PasswordResetToken is a single-use capability to replace the password of
// the user owning Email. Only the token digest is stored.
type PasswordResetToken struct {
	ID        ulid.ULID
	Email     string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewPasswordResetToken creates a validated PasswordResetToken.
func NewPasswordResetToken(email, tokenHash string, now time.Time) (*PasswordResetToken, error) {
	if email == "" {
		return nil, oops.Code("RESET_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	now = now.UTC()
	return &PasswordResetToken{
		ID:        ulid.Make(),
		Email:     email,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	}, nil
}

// IsExpiredAt reports whether the token is expired at t.
func (r *PasswordResetToken) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// ResetTokenRepository manages reset token persistence. Both mutating
// operations are single atomic units.
type ResetTokenRepository interface {
	// Replace deletes every token for token.Email and stores token.
	Replace(ctx context.Context, token *PasswordResetToken) error

	// Redeem consumes the token with tokenHash, sets the owner's password
	// hash and deletes all of the owner's sessions. Returns ErrNotFound when
	// no such token (or owner) exists and ErrTokenExpired when the token is
	// past its expiry at now; an expired token is deleted, nothing else changes.
	Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error)

	// DeleteExpired removes tokens with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers reset tokens to users.
type Notifier interface {
	Send(ctx context.Context, address, token string) error
}

// TaskSubmitter runs work asynchronously. Submit reports whether the task
// was accepted.
type TaskSubmitter interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}

// ResetManager runs the forgot-password and reset-password flows.
type ResetManager struct {
	users    UserRepository
	resets   ResetTokenRepository
	hasher   PasswordHasher
	notifier Notifier
	tasks    TaskSubmitter
	tokens   *TokenIssuer
	now      func() time.Time
	logger   *slog.Logger
}

// NewResetManager creates a ResetManager.
func NewResetManager(
	users UserRepository,
	resets ResetTokenRepository,
	hasher PasswordHasher,
	notifier Notifier,
	tasks TaskSubmitter,
	opts ...Option,
) (*ResetManager, error) {
	switch {
	case users == nil:
		return nil, oops.Errorf("user repository is required")
	case resets == nil:
		return nil, oops.Errorf("reset repository is required")
	case hasher == nil:
		return nil, oops.Errorf("password hasher is required")
	case notifier == nil:
		return nil, oops.Errorf("notifier is required")
	case tasks == nil:
		return nil, oops.Errorf("task submitter is required")
	}
	o := applyOptions(opts)
	return &ResetManager{
		users:    users,
		resets:   resets,
		hasher:   hasher,
		notifier: notifier,
		tasks:    tasks,
		tokens:   o.tokens,
		now:      o.now,
		logger:   o.logger,
	}, nil
}

// Issue starts a reset for email. A malformed address is a validation
// failure and an address nobody owns is an UnknownEmail failure, which
// callers must present as success. Storing or sending the token may fail
// silently; those failures are logged.
func (m *ResetManager) Issue(ctx context.Context, email string) error {
	if f := ValidateEmail(email); f != nil {
		return f
	}

	if _, err := m.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			m.logger.Debug("reset requested for unknown email")
			return UnknownEmail()
		}
		errutil.LogError(m.logger, "reset lookup failed", err)
		return nil
	}

	token, tokenHash, err := m.tokens.Issue()
	if err != nil {
		errutil.LogError(m.logger, "reset token generation failed", err)
		return nil
	}

	reset, err := NewPasswordResetToken(email, tokenHash, m.now())
	if err != nil {
		errutil.LogError(m.logger, "reset token invalid", err)
		return nil
	}

	if err := m.resets.Replace(ctx, reset); err != nil {
		errutil.LogError(m.logger, "reset token store failed",
			oops.Code("RESET_STORE_FAILED").With("reset_id", reset.ID.String()).Wrap(err))
		return nil
	}

	accepted := m.tasks.Submit("send-reset-token", func(taskCtx context.Context) error {
		if err := m.notifier.Send(taskCtx, email, token); err != nil {
			errutil.LogError(m.logger, "reset notification failed",
				oops.Code("RESET_NOTIFY_FAILED").With("reset_id", reset.ID.String()).Wrap(err))
			return err
		}
		return nil
	})
	if !accepted {
		m.logger.Warn("reset notification dropped", "reset_id", reset.ID.String())
	}

	return nil
}

// Redeem consumes token and sets newPassword for its owner, revoking every
// existing session of that user.
func (m *ResetManager) Redeem(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ValidationFailure(map[string]string{"token": "is required"})
	}
	if f := ValidatePassword(newPassword); f != nil {
		return f
	}

	passwordHash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return Internal(oops.Code("RESET_HASH_FAILED").Wrap(err))
	}

	userID, err := m.resets.Redeem(ctx, HashToken(token), passwordHash, m.now())
	switch {
	case errors.Is(err, ErrNotFound):
		return NewFailure(KindValidation, CodeResetTokenInvalid, MsgResetTokenInvalid)
	case errors.Is(err, ErrTokenExpired):
		return NewFailure(KindValidation, CodeResetTokenExpired, MsgResetTokenExpired)
	case err != nil:
		return Internal(oops.Code("RESET_REDEEM_FAILED").Wrap(err))
	}

	m.logger.Info("password reset completed", "user_id", userID.String())
	return nil
}

// Reap deletes expired reset tokens.
func (m *ResetManager) Reap(ctx context.Context) (int64, error) {
	n, err := m.resets.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.Code("RESET_REAP_FAILED").Wrap(err)
	}
	return n, nil
}
