// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/auth/memstore"
	"github.com/hashlock/hashlock/internal/auth/mocks"
	"github.com/hashlock/hashlock/internal/gateway"
)

const appURL = "https://hashlock.test"

func init() {
	gin.SetMode(gin.TestMode)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	profile auth.Profile
	err     error
	codes   []string
}

func (p *fakeProvider) Name() string { return "google" }

func (p *fakeProvider) Exchange(_ context.Context, code string) (auth.Profile, error) {
	p.codes = append(p.codes, code)
	return p.profile, p.err
}

type outbox struct {
	mu   sync.Mutex
	sent map[string]string
}

func (o *outbox) Send(_ context.Context, address, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sent == nil {
		o.sent = make(map[string]string)
	}
	o.sent[address] = token
	return nil
}

func (o *outbox) tokenFor(t *testing.T, address string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	token, ok := o.sent[address]
	require.True(t, ok, "no reset sent to %s", address)
	return token
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// countingSessions counts token lookups so tests can assert how often a
// request touches the session table.
type countingSessions struct {
	auth.SessionRepository
	lookups atomic.Int64
}

func (c *countingSessions) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, *auth.User, error) {
	c.lookups.Add(1)
	return c.SessionRepository.GetByTokenHash(ctx, tokenHash)
}

type env struct {
	store    *memstore.Store
	sessions *countingSessions
	clock    *clock
	outbox   *outbox
	provider *fakeProvider
	accounts *auth.Service
	gw       *gateway.Gateway
	logs     *bytes.Buffer
	logger   *slog.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		store:    memstore.New(),
		clock:    &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		outbox:   &outbox{},
		provider: &fakeProvider{profile: auth.Profile{Provider: "google", Subject: "g-1", Email: "oauth@example.com"}},
		logs:     &bytes.Buffer{},
	}
	e.logger = slog.New(slog.NewJSONHandler(e.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts := []auth.Option{auth.WithClock(e.clock.Now), auth.WithLogger(e.logger)}

	hasher, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
	require.NoError(t, err)
	e.sessions = &countingSessions{SessionRepository: e.store.Sessions()}
	sessions, err := auth.NewSessionStore(e.sessions, opts...)
	require.NoError(t, err)
	e.accounts, err = auth.NewService(e.store.Users(), hasher, opts...)
	require.NoError(t, err)
	linker, err := auth.NewIdentityLinker(e.store.Users(), e.store.Accounts(), sessions, opts...)
	require.NoError(t, err)
	resets, err := auth.NewResetManager(e.store.Users(), e.store.Resets(), hasher, e.outbox, &mocks.InlineTasks{}, opts...)
	require.NoError(t, err)

	e.gw, err = gateway.New(gateway.Services{
		Accounts: e.accounts,
		Sessions: sessions,
		Linker:   linker,
		Resets:   resets,
		Provider: e.provider,
	}, appURL+"/", e.logger)
	require.NoError(t, err)
	return e
}

func (e *env) register(t *testing.T, email, password string) *auth.User {
	t.Helper()
	user, err := e.accounts.Register(context.Background(), email, password)
	require.NoError(t, err)
	return user
}

func (e *env) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, err := e.gw.Login(context.Background(), gateway.Caller{ClientKey: "test"}, gateway.LoginInput{Email: email, Password: password})
	require.NoError(t, err)
	require.Equal(t, gateway.CredentialSet, resp.Credential.Op)
	return resp.Credential.Value
}

func (e *env) admin(t *testing.T, email string) string {
	t.Helper()
	e.register(t, email, "admin-password")
	_, err := e.accounts.PromoteByEmail(context.Background(), email)
	require.NoError(t, err)
	return e.login(t, email, "admin-password")
}

func requireFailure(t *testing.T, err error, kind auth.Kind, code string) *auth.Failure {
	t.Helper()
	require.Error(t, err)
	f := auth.AsFailure(err)
	require.Equal(t, kind, f.Kind, "failure: %v", err)
	if code != "" {
		require.Equal(t, code, f.Code)
	}
	return f
}
