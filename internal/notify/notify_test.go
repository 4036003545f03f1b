// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashlock/hashlock/internal/notify"
	"github.com/hashlock/hashlock/pkg/errutil"
)

const token = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestResetLink(t *testing.T) {
	assert.Equal(t, "https://hashlock.dev/reset-password?token=abc",
		notify.ResetLink("https://hashlock.dev/", "abc"))
	assert.Equal(t, "http://localhost:3000/reset-password?token=a%2Bb",
		notify.ResetLink("http://localhost:3000", "a+b"))
}

func TestLogNotifier_Send(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier("http://localhost:3000", slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.Send(context.Background(), "ada@example.com", token))

	assert.Contains(t, buf.String(), "password reset requested")
	assert.Contains(t, buf.String(), "ada@example.com")
	assert.Contains(t, buf.String(), "/reset-password?token="+token)
}

func TestNew(t *testing.T) {
	n, err := notify.New(notify.Config{}, "http://x", nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)

	n, err = notify.New(notify.Config{Provider: notify.ProviderResend, Resend: notify.ResendConfig{APIKey: "re_test"}}, "http://x", nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.ResendNotifier{}, n)

	_, err = notify.New(notify.Config{Provider: notify.ProviderResend}, "http://x", nil)
	errutil.AssertErrorCode(t, err, "NOTIFY_CONFIG_INVALID")

	_, err = notify.New(notify.Config{Provider: "carrier-pigeon"}, "http://x", nil)
	errutil.AssertErrorCode(t, err, "NOTIFY_UNKNOWN_PROVIDER")
}

type captured struct {
	auth    string
	payload map[string]any
}

func newResend(t *testing.T, handler http.HandlerFunc) *notify.ResendNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	n, err := notify.NewResendNotifier(
		notify.ResendConfig{APIKey: "re_test", From: "Hash Lock <auth@hashlock.dev>", Endpoint: srv.URL},
		"https://hashlock.dev",
		notify.WithHTTPClient(srv.Client()),
		notify.WithRetry(3, time.Millisecond),
		notify.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	require.NoError(t, err)
	return n
}

func TestResendNotifier_Send(t *testing.T) {
	var got captured
	n := newResend(t, func(w http.ResponseWriter, r *http.Request) {
		got.auth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got.payload))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	})

	require.NoError(t, n.Send(context.Background(), "ada@example.com", token))

	assert.Equal(t, "Bearer re_test", got.auth)
	assert.Equal(t, "Hash Lock <auth@hashlock.dev>", got.payload["from"])
	assert.Equal(t, []any{"ada@example.com"}, got.payload["to"])
	assert.Equal(t, "Reset your password", got.payload["subject"])

	html, _ := got.payload["html"].(string)
	assert.Contains(t, html, "Reset Password Request")
	assert.Contains(t, html, "Hash Lock account")
	assert.Contains(t, html, "expires in 1 hour")
	assert.Contains(t, html, `href="https://hashlock.dev/reset-password?token=`+token+`"`)
}

func TestResendNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	n := newResend(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, n.Send(context.Background(), "ada@example.com", token))
	assert.Equal(t, int32(3), calls.Load())
}

func TestResendNotifier_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	n := newResend(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := n.Send(context.Background(), "ada@example.com", token)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOTIFY_SEND_FAILED")
	errutil.AssertErrorContext(t, err, "attempts", 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResendNotifier_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	n := newResend(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	err := n.Send(context.Background(), "not-an-address", token)

	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "status", http.StatusUnprocessableEntity)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResendNotifier_RetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	n, err := notify.NewResendNotifier(
		notify.ResendConfig{APIKey: "re_test", Endpoint: endpoint},
		"https://hashlock.dev",
		notify.WithRetry(2, time.Millisecond),
	)
	require.NoError(t, err)

	err = n.Send(context.Background(), "ada@example.com", token)
	require.Error(t, err)
	errutil.AssertErrorContext(t, err, "attempts", 2)
}

func TestResendNotifier_HonoursContext(t *testing.T) {
	n := newResend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, "ada@example.com", token)
	assert.True(t, errors.Is(err, context.Canceled))
}
