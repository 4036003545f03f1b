// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/config"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a
// running server.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// isolate keeps the developer's config file and DATABASE_URL out of a
// test, and restores the default logger the commands replace.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(config.DatabaseURLEnv, "")
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })
}

func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, deps, args...)
}

func executeContext(ctx context.Context, t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	out := &syncBuffer{}
	cmd := newRootCmd(deps)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// seededBackend is an in-memory backend served to commands through Deps.
type seededBackend struct {
	*Backend
	accounts *auth.Service
	hasher   *auth.Argon2idHasher
}

func newSeededBackend(t *testing.T) *seededBackend {
	t.Helper()
	hasher, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
	require.NoError(t, err)
	backend := MemoryBackend()
	accounts, err := auth.NewService(backend.Users, hasher)
	require.NoError(t, err)
	return &seededBackend{Backend: backend, accounts: accounts, hasher: hasher}
}

func (s *seededBackend) deps() *Deps {
	return &Deps{
		OpenBackend: func(context.Context, *config.Config, *slog.Logger) (*Backend, error) {
			return s.Backend, nil
		},
	}
}
