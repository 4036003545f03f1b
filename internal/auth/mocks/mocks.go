// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package mocks provides testify mocks of the auth ports.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/hashlock/hashlock/internal/auth"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(t TestingT, m *mock.Mock) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

func userOrNil(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User)
}

// MockUserRepository mocks auth.UserRepository.
type MockUserRepository struct{ mock.Mock }

var _ auth.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates a MockUserRepository that asserts its
// expectations on test cleanup.
func NewMockUserRepository(t TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) CreateWithAccount(ctx context.Context, user *auth.User, account *auth.Account) error {
	return m.Called(ctx, user, account).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	ret := m.Called(ctx, id)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	return userOrNil(ret.Get(0)), ret.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id ulid.ULID, role auth.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*auth.User, error) {
	ret := m.Called(ctx)
	users, _ := ret.Get(0).([]*auth.User)
	return users, ret.Error(1)
}

// MockAccountRepository mocks auth.AccountRepository.
type MockAccountRepository struct{ mock.Mock }

var _ auth.AccountRepository = (*MockAccountRepository)(nil)

// NewMockAccountRepository creates a MockAccountRepository.
func NewMockAccountRepository(t TestingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (*auth.Account, error) {
	ret := m.Called(ctx, provider, providerAccountID)
	account, _ := ret.Get(0).(*auth.Account)
	return account, ret.Error(1)
}

func (m *MockAccountRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*auth.Account, error) {
	ret := m.Called(ctx, userID)
	accounts, _ := ret.Get(0).([]*auth.Account)
	return accounts, ret.Error(1)
}

// MockSessionRepository mocks auth.SessionRepository.
type MockSessionRepository struct{ mock.Mock }

var _ auth.SessionRepository = (*MockSessionRepository)(nil)

// NewMockSessionRepository creates a MockSessionRepository.
func NewMockSessionRepository(t TestingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, *auth.User, error) {
	ret := m.Called(ctx, tokenHash)
	session, _ := ret.Get(0).(*auth.Session)
	return session, userOrNil(ret.Get(1)), ret.Error(2)
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	ret := m.Called(ctx, userID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

// MockResetTokenRepository mocks auth.ResetTokenRepository.
type MockResetTokenRepository struct{ mock.Mock }

var _ auth.ResetTokenRepository = (*MockResetTokenRepository)(nil)

// NewMockResetTokenRepository creates a MockResetTokenRepository.
func NewMockResetTokenRepository(t TestingT) *MockResetTokenRepository {
	m := &MockResetTokenRepository{}
	register(t, &m.Mock)
	return m
}

func (m *MockResetTokenRepository) Replace(ctx context.Context, token *auth.PasswordResetToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockResetTokenRepository) Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error) {
	ret := m.Called(ctx, tokenHash, passwordHash, now)
	return ret.Get(0).(ulid.ULID), ret.Error(1)
}

func (m *MockResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	return ret.Get(0).(int64), ret.Error(1)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct{ mock.Mock }

var _ auth.PasswordHasher = (*MockPasswordHasher)(nil)

// NewMockPasswordHasher creates a MockPasswordHasher.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	register(t, &m.Mock)
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, encodedHash string) bool {
	return m.Called(password, encodedHash).Bool(0)
}

func (m *MockPasswordHasher) NeedsRehash(encodedHash string) bool {
	return m.Called(encodedHash).Bool(0)
}

// MockNotifier mocks auth.Notifier.
type MockNotifier struct{ mock.Mock }

var _ auth.Notifier = (*MockNotifier)(nil)

// NewMockNotifier creates a MockNotifier.
func NewMockNotifier(t TestingT) *MockNotifier {
	m := &MockNotifier{}
	register(t, &m.Mock)
	return m
}

func (m *MockNotifier) Send(ctx context.Context, address, token string) error {
	return m.Called(ctx, address, token).Error(0)
}

// InlineTasks runs submitted tasks synchronously on the caller's goroutine.
type InlineTasks struct {
	Reject bool
	Errors []error
}

var _ auth.TaskSubmitter = (*InlineTasks)(nil)

// Submit runs fn immediately unless Reject is set.
func (s *InlineTasks) Submit(_ string, fn func(ctx context.Context) error) bool {
	if s.Reject {
		return false
	}
	if err := fn(context.Background()); err != nil {
		s.Errors = append(s.Errors, err)
	}
	return true
}
