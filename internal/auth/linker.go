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

// Profile is an identity asserted by an external provider after a
// successful code exchange.
type Profile struct {
	Provider string
	Subject  string
	Email    string
}

// IdentityLinker resolves an external profile to a local user, linking or
// creating as needed, and signs that user in.
type IdentityLinker struct {
	users    UserRepository
	accounts AccountRepository
	sessions *SessionStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewIdentityLinker creates an IdentityLinker.
func NewIdentityLinker(users UserRepository, accounts AccountRepository, sessions *SessionStore, opts ...Option) (*IdentityLinker, error) {
	switch {
	case users == nil:
		return nil, oops.Errorf("user repository is required")
	case accounts == nil:
		return nil, oops.Errorf("account repository is required")
	case sessions == nil:
		return nil, oops.Errorf("session store is required")
	}
	o := applyOptions(opts)
	return &IdentityLinker{
		users:    users,
		accounts: accounts,
		sessions: sessions,
		now:      o.now,
		logger:   o.logger,
	}, nil
}

// Link resolves profile and issues a session. Every failure is reported as
// the same authentication failure; the cause is kept for logging.
func (l *IdentityLinker) Link(ctx context.Context, profile Profile) (*User, *Session, string, error) {
	if profile.Provider == "" || profile.Subject == "" || profile.Email == "" {
		return nil, nil, "", AuthenticationFailed(oops.Code("LINK_INVALID_PROFILE").Errorf("incomplete profile"))
	}

	user, err := l.resolve(ctx, profile)
	if errors.Is(err, ErrDuplicate) {
		// Lost a race with a concurrent first sign-in for the same email.
		user, err = l.resolve(ctx, profile)
	}
	if err != nil {
		return nil, nil, "", AuthenticationFailed(err)
	}

	session, token, err := l.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, "", AuthenticationFailed(err)
	}

	return user, session, token, nil
}

func (l *IdentityLinker) resolve(ctx context.Context, profile Profile) (*User, error) {
	user, err := l.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if err := l.ensureLinked(ctx, user, profile); err != nil {
			return nil, err
		}
		return user, nil
	case errors.Is(err, ErrNotFound):
		return l.createLinked(ctx, profile)
	default:
		return nil, oops.Code("LINK_LOOKUP_FAILED").With("operation", "get user by email").Wrap(err)
	}
}

func (l *IdentityLinker) ensureLinked(ctx context.Context, user *User, profile Profile) error {
	existing, err := l.accounts.GetByProvider(ctx, profile.Provider, profile.Subject)
	if err == nil {
		if existing.UserID != user.ID {
			l.logger.Warn("provider identity linked to a different user",
				"provider", profile.Provider,
				"user_id", user.ID.String(),
				"linked_user_id", existing.UserID.String())
		}
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return oops.Code("LINK_LOOKUP_FAILED").With("operation", "get account by provider").Wrap(err)
	}

	account, err := NewAccount(user.ID, profile.Provider, profile.Subject, l.now())
	if err != nil {
		return oops.Code("LINK_FAILED").Wrap(err)
	}
	if err := l.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Linked concurrently; the pair exists, which is all we need.
			return nil
		}
		return oops.Code("LINK_FAILED").With("operation", "create account").Wrap(err)
	}

	l.logger.Info("linked provider identity", "provider", profile.Provider, "user_id", user.ID.String())
	return nil
}

func (l *IdentityLinker) createLinked(ctx context.Context, profile Profile) (*User, error) {
	user, err := NewUser(profile.Email, nil, true, l.now())
	if err != nil {
		return nil, oops.Code("LINK_FAILED").Wrap(err)
	}
	account, err := NewAccount(user.ID, profile.Provider, profile.Subject, l.now())
	if err != nil {
		return nil, oops.Code("LINK_FAILED").Wrap(err)
	}

	if err := l.users.CreateWithAccount(ctx, user, account); err != nil {
		return nil, oops.Code("LINK_CREATE_FAILED").With("operation", "create user with account").Wrap(err)
	}

	l.logger.Info("created user from provider identity", "provider", profile.Provider, "user_id", user.ID.String())
	return user, nil
}

// Providers lists the external providers linked to a user, oldest link
// first.
func (l *IdentityLinker) Providers(ctx context.Context, userID ulid.ULID) ([]string, error) {
	accounts, err := l.accounts.ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	providers := make([]string, 0, len(accounts))
	for _, a := range accounts {
		providers = append(providers, a.Provider)
	}
	return providers, nil
}
