// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the two-level permission flag carried by every user.
type Role string

// Roles.
const (
	RoleStandard Role = "STANDARD"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStandard || r == RoleAdmin
}

// User is a local identity. PasswordHash is nil for accounts that only sign
// in through an external provider.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash *string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
}

// NewUser creates a standard-role user. A user without a password hash must
// be persisted together with a linked Account (see UserRepository.CreateWithAccount).
func NewUser(email string, passwordHash *string, verified bool, now time.Time) (*User, error) {
	if email == "" {
		return nil, oops.Code("USER_INVALID").Errorf("email cannot be empty")
	}
	if passwordHash != nil && *passwordHash == "" {
		return nil, oops.Code("USER_INVALID").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleStandard,
		Verified:     verified,
		CreatedAt:    now.UTC(),
	}, nil
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Account links a user to an identity at an external provider.
type Account struct {
	ID                ulid.ULID
	UserID            ulid.ULID
	Provider          string
	ProviderAccountID string
	CreatedAt         time.Time
}

// NewAccount creates an Account for userID.
func NewAccount(userID ulid.ULID, provider, providerAccountID string, now time.Time) (*Account, error) {
	if provider == "" {
		return nil, oops.Code("ACCOUNT_INVALID").Errorf("provider cannot be empty")
	}
	if providerAccountID == "" {
		return nil, oops.Code("ACCOUNT_INVALID").Errorf("provider account id cannot be empty")
	}
	return &Account{
		ID:                ulid.Make(),
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: providerAccountID,
		CreatedAt:         now.UTC(),
	}, nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, user *User) error

	// CreateWithAccount stores a user and its first linked account as one
	// atomic unit. Returns ErrDuplicate if either unique key is taken; in
	// that case neither row exists afterwards.
	CreateWithAccount(ctx context.Context, user *User, account *Account) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by exact email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// UpdateRole sets the role. Returns ErrNotFound for an unknown id.
	UpdateRole(ctx context.Context, id ulid.ULID, role Role) error

	// List returns all users, newest first.
	List(ctx context.Context) ([]*User, error)
}

// AccountRepository manages external identity links.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicate if the
	// (provider, provider account id) pair is already linked.
	Create(ctx context.Context, account *Account) error

	// GetByProvider retrieves the account for a provider identity.
	GetByProvider(ctx context.Context, provider, providerAccountID string) (*Account, error)

	// ListByUser returns the accounts linked to a user.
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Account, error)
}
