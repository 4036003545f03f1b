// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/auth/memstore"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier captures every sent token.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentToken
	err  error
}

type sentToken struct {
	address string
	token   string
}

func (n *recordingNotifier) Send(_ context.Context, address, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentToken{address: address, token: token})
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) sentToken {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "expected a notification")
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// syncTasks runs tasks inline so tests observe their effects immediately.
type syncTasks struct{}

func (syncTasks) Submit(_ string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

// fixture wires every auth service to one in-memory store.
type fixture struct {
	store    *memstore.Store
	clock    *fakeClock
	logs     *bytes.Buffer
	hasher   *auth.Argon2idHasher
	notifier *recordingNotifier
	sessions *auth.SessionStore
	service  *auth.Service
	linker   *auth.IdentityLinker
	resets   *auth.ResetManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memstore.New(),
		clock:    newFakeClock(),
		logs:     &bytes.Buffer{},
		hasher:   newFastHasher(t),
		notifier: &recordingNotifier{},
	}
	opts := []auth.Option{
		auth.WithClock(f.clock.Now),
		auth.WithLogger(slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	}

	var err error
	f.sessions, err = auth.NewSessionStore(f.store.Sessions(), opts...)
	require.NoError(t, err)
	f.service, err = auth.NewService(f.store.Users(), f.hasher, opts...)
	require.NoError(t, err)
	f.linker, err = auth.NewIdentityLinker(f.store.Users(), f.store.Accounts(), f.sessions, opts...)
	require.NoError(t, err)
	f.resets, err = auth.NewResetManager(f.store.Users(), f.store.Resets(), f.hasher, f.notifier, syncTasks{}, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *auth.User {
	t.Helper()
	user, err := f.service.Register(context.Background(), email, password)
	require.NoError(t, err)
	return user
}

// requireFailure asserts err is a Failure of the given kind and code.
func requireFailure(t *testing.T, err error, kind auth.Kind, code string) *auth.Failure {
	t.Helper()
	require.Error(t, err)
	var f *auth.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, kind, f.Kind)
	if code != "" {
		require.Equal(t, code, f.Code)
	}
	return f
}
