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

// dummyPasswordHash is verified when a user doesn't exist or has no password,
// so every failed login costs one argon2 evaluation.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides password registration, login and role management.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(users UserRepository, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	o := applyOptions(opts)
	return &Service{
		users:  users,
		hasher: hasher,
		now:    o.now,
		logger: o.logger,
	}, nil
}

// Register creates a password user. A taken email is a conflict.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if f := ValidateEmail(email); f != nil {
		return nil, f
	}
	if f := ValidatePassword(password); f != nil {
		return nil, f
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, NewFailure(KindConflict, CodeUserExists, MsgUserExists)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, Internal(oops.Code("REGISTER_FAILED").With("operation", "get user by email").Wrap(err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, Internal(oops.Code("REGISTER_FAILED").With("operation", "hash password").Wrap(err))
	}

	user, err := NewUser(email, &hash, false, s.now())
	if err != nil {
		return nil, Internal(oops.Code("REGISTER_FAILED").Wrap(err))
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, NewFailure(KindConflict, CodeUserExists, MsgUserExists)
		}
		return nil, Internal(oops.Code("REGISTER_FAILED").With("operation", "create user").Wrap(err))
	}

	s.logger.Info("user registered", "user_id", user.ID.String())
	return user, nil
}

// Login checks email and password. A missing user, a user without a
// password and a wrong password produce the same failure.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, Internal(oops.Code("LOGIN_FAILED").With("operation", "get user by email").Wrap(err))
	}

	target := dummyPasswordHash
	usable := user != nil && user.HasPassword()
	if usable {
		target = *user.PasswordHash
	}

	// Always verify so the three failure paths take the same time.
	valid := s.hasher.Verify(password, target)
	if !usable || !valid {
		return nil, InvalidCredentials()
	}

	if s.hasher.NeedsRehash(target) {
		s.rehash(ctx, user, password)
	}

	return user, nil
}

func (s *Service) rehash(ctx context.Context, user *User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogError(s.logger, "password rehash failed", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		errutil.LogError(s.logger, "password rehash store failed", err)
		return
	}
	user.PasswordHash = &hash
}

// Promote grants ADMIN to targetID. actor must be an admin; a nil actor is
// treated as an unprivileged caller.
func (s *Service) Promote(ctx context.Context, actor *User, targetID ulid.ULID) error {
	if !actor.IsAdmin() {
		return Forbidden()
	}

	if err := s.users.UpdateRole(ctx, targetID, RoleAdmin); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ValidationFailure(map[string]string{"targetUserId": "unknown user"})
		}
		return Internal(oops.Code("PROMOTE_FAILED").With("target_id", targetID.String()).Wrap(err))
	}

	s.logger.Info("user promoted", "user_id", targetID.String(), "by", actor.ID.String())
	return nil
}

// PromoteByEmail grants ADMIN without an acting user. It is the bootstrap
// path for operators and is not reachable over HTTP.
func (s *Service) PromoteByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("PROMOTE_FAILED").With("operation", "get user by email").Wrap(err)
	}
	if err := s.users.UpdateRole(ctx, user.ID, RoleAdmin); err != nil {
		return nil, oops.Code("PROMOTE_FAILED").With("operation", "update role").Wrap(err)
	}
	user.Role = RoleAdmin
	return user, nil
}

// ListUsers returns every user, newest first. actor must be an admin.
func (s *Service) ListUsers(ctx context.Context, actor *User) ([]*User, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden()
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, Internal(oops.Code("LIST_USERS_FAILED").Wrap(err))
	}
	return users, nil
}
