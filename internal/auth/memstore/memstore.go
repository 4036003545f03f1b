// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package memstore provides in-memory implementations of the auth
// repositories. Every operation runs under one mutex, so the multi-row units
// (user with account, token replace, token redeem) are atomic.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
)

type accountKey struct {
	provider string
	subject  string
}

// Store holds all auth state in memory.
type Store struct {
	mu sync.Mutex

	users       map[ulid.ULID]auth.User
	userByEmail map[string]ulid.ULID
	accounts    map[accountKey]auth.Account
	sessions    map[string]auth.Session
	resets      map[string]auth.PasswordResetToken
	resetByMail map[string]string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[ulid.ULID]auth.User),
		userByEmail: make(map[string]ulid.ULID),
		accounts:    make(map[accountKey]auth.Account),
		sessions:    make(map[string]auth.Session),
		resets:      make(map[string]auth.PasswordResetToken),
		resetByMail: make(map[string]string),
	}
}

// Users returns the user repository view.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Accounts returns the account repository view.
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }

// Sessions returns the session repository view.
func (s *Store) Sessions() *SessionRepository { return &SessionRepository{s: s} }

// Resets returns the reset token repository view.
func (s *Store) Resets() *ResetTokenRepository { return &ResetTokenRepository{s: s} }

// Counts reports the number of stored rows per table.
func (s *Store) Counts() (users, accounts, sessions, resets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.accounts), len(s.sessions), len(s.resets)
}

func copyUser(u auth.User) *auth.User {
	if u.PasswordHash != nil {
		h := *u.PasswordHash
		u.PasswordHash = &h
	}
	return &u
}

// UserRepository implements auth.UserRepository.
type UserRepository struct{ s *Store }

var _ auth.UserRepository = (*UserRepository)(nil)

// Create stores a new user.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insertLocked(user)
}

func (r *UserRepository) insertLocked(user *auth.User) error {
	if _, taken := r.s.userByEmail[user.Email]; taken {
		return oops.Code("USER_DUPLICATE").With("email", user.Email).Wrap(auth.ErrDuplicate)
	}
	if _, taken := r.s.users[user.ID]; taken {
		return oops.Code("USER_DUPLICATE").With("id", user.ID.String()).Wrap(auth.ErrDuplicate)
	}
	r.s.users[user.ID] = *copyUser(*user)
	r.s.userByEmail[user.Email] = user.ID
	return nil
}

// CreateWithAccount stores a user and its first account atomically.
func (r *UserRepository) CreateWithAccount(_ context.Context, user *auth.User, account *auth.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := accountKey{account.Provider, account.ProviderAccountID}
	if _, taken := r.s.accounts[key]; taken {
		return oops.Code("ACCOUNT_DUPLICATE").With("provider", account.Provider).Wrap(auth.ErrDuplicate)
	}
	if err := r.insertLocked(user); err != nil {
		return err
	}
	r.s.accounts[key] = *account
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return copyUser(u), nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.userByEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return copyUser(r.s.users[id]), nil
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	u.PasswordHash = &passwordHash
	r.s.users[id] = u
	return nil
}

// UpdateRole sets the role.
func (r *UserRepository) UpdateRole(_ context.Context, id ulid.ULID, role auth.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	u.Role = role
	r.s.users[id] = u
	return nil
}

// List returns all users, newest first.
func (r *UserRepository) List(_ context.Context) ([]*auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*auth.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Compare(out[j].ID) > 0
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AccountRepository implements auth.AccountRepository.
type AccountRepository struct{ s *Store }

var _ auth.AccountRepository = (*AccountRepository)(nil)

// Create stores a new account.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := accountKey{account.Provider, account.ProviderAccountID}
	if _, taken := r.s.accounts[key]; taken {
		return oops.Code("ACCOUNT_DUPLICATE").With("provider", account.Provider).Wrap(auth.ErrDuplicate)
	}
	if _, ok := r.s.users[account.UserID]; !ok {
		return oops.Code("ACCOUNT_CREATE_FAILED").Errorf("owning user %s does not exist", account.UserID)
	}
	r.s.accounts[key] = *account
	return nil
}

// GetByProvider retrieves the account for a provider identity.
func (r *AccountRepository) GetByProvider(_ context.Context, provider, providerAccountID string) (*auth.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[accountKey{provider, providerAccountID}]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &a, nil
}

// ListByUser returns the accounts linked to a user.
func (r *AccountRepository) ListByUser(_ context.Context, userID ulid.ULID) ([]*auth.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*auth.Account
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SessionRepository implements auth.SessionRepository.
type SessionRepository struct{ s *Store }

var _ auth.SessionRepository = (*SessionRepository)(nil)

// Create stores a new session.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.sessions[session.TokenHash]; taken {
		return oops.Code("SESSION_DUPLICATE").Wrap(auth.ErrDuplicate)
	}
	if _, ok := r.s.users[session.UserID]; !ok {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("owning user %s does not exist", session.UserID)
	}
	r.s.sessions[session.TokenHash] = *session
	return nil
}

// GetByTokenHash retrieves a session and its owner.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, *auth.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[tokenHash]
	if !ok {
		return nil, nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u, ok := r.s.users[sess.UserID]
	if !ok {
		return nil, nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &sess, copyUser(u), nil
}

// DeleteByTokenHash removes a session if present.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, tokenHash)
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepository) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.deleteSessionsLocked(userID), nil
}

func (s *Store) deleteSessionsLocked(userID ulid.ULID) int64 {
	var n int64
	for hash, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, hash)
			n++
		}
	}
	return n
}

// DeleteExpired removes sessions expired at now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for hash, sess := range r.s.sessions {
		if sess.IsExpiredAt(now) {
			delete(r.s.sessions, hash)
			n++
		}
	}
	return n, nil
}

// ResetTokenRepository implements auth.ResetTokenRepository.
type ResetTokenRepository struct{ s *Store }

var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)

// Replace deletes existing tokens for the email and stores token.
func (r *ResetTokenRepository) Replace(_ context.Context, token *auth.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.resets[token.TokenHash]; taken {
		return oops.Code("RESET_DUPLICATE").Wrap(auth.ErrDuplicate)
	}
	if old, ok := r.s.resetByMail[token.Email]; ok {
		delete(r.s.resets, old)
	}
	r.s.resets[token.TokenHash] = *token
	r.s.resetByMail[token.Email] = token.TokenHash
	return nil
}

// Redeem consumes a token, updates the password and revokes sessions.
func (r *ResetTokenRepository) Redeem(_ context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token, ok := r.s.resets[tokenHash]
	if !ok {
		return ulid.ULID{}, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	if token.IsExpiredAt(now) {
		r.s.deleteResetLocked(token)
		return ulid.ULID{}, oops.Code("RESET_EXPIRED").Wrap(auth.ErrTokenExpired)
	}

	id, ok := r.s.userByEmail[token.Email]
	if !ok {
		return ulid.ULID{}, oops.Code("RESET_USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}

	r.s.deleteResetLocked(token)
	u := r.s.users[id]
	u.PasswordHash = &passwordHash
	r.s.users[id] = u
	r.s.deleteSessionsLocked(id)
	return id, nil
}

func (s *Store) deleteResetLocked(token auth.PasswordResetToken) {
	delete(s.resets, token.TokenHash)
	if s.resetByMail[token.Email] == token.TokenHash {
		delete(s.resetByMail, token.Email)
	}
}

// DeleteExpired removes tokens expired at now.
func (r *ResetTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, tok := range r.s.resets {
		if tok.IsExpiredAt(now) {
			r.s.deleteResetLocked(tok)
			n++
		}
	}
	return n, nil
}
