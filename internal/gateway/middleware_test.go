// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/gateway"
)

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(gateway.RequestID())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, gateway.RequestIDFrom(c))
	})

	rec := do(engine, http.MethodGet, "/", "")
	generated := rec.Header().Get(gateway.RequestIDHeader)
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
	assert.Equal(t, generated, rec.Body.String())

	supplied := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(gateway.RequestIDHeader, supplied)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, supplied, rec.Header().Get(gateway.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(gateway.RequestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(gateway.RequestIDHeader))
}

func TestSecurityHeaders(t *testing.T) {
	engine := gin.New()
	engine.Use(gateway.SecurityHeaders(false))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := do(engine, http.MethodGet, "/", "")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func corsEngine(t *testing.T, patterns ...string) *gin.Engine {
	t.Helper()
	cors, err := gateway.CORS(patterns)
	require.NoError(t, err)
	engine := gin.New()
	engine.Use(cors)
	engine.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func TestCORS(t *testing.T) {
	engine := corsEngine(t, "https://hashlock.dev", "https://*.hashlock.dev")

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"exact origin preflight", http.MethodOptions, "https://hashlock.dev", http.StatusNoContent, "https://hashlock.dev"},
		{"wildcard subdomain", http.MethodPost, "https://app.hashlock.dev", http.StatusOK, "https://app.hashlock.dev"},
		{"wildcard stops at dots", http.MethodPost, "https://a.b.hashlock.dev", http.StatusOK, ""},
		{"foreign preflight", http.MethodOptions, "https://evil.example", http.StatusForbidden, ""},
		{"foreign simple request", http.MethodPost, "https://evil.example", http.StatusOK, ""},
		{"same origin", http.MethodPost, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/login", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantAllow != "" {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestCORS_InvalidPattern(t *testing.T) {
	_, err := gateway.CORS([]string{"https://[hashlock.dev"})
	require.Error(t, err)
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	engine := gin.New()
	engine.Use(gateway.Recovery(slog.New(slog.NewJSONHandler(&logs, nil))))
	engine.GET("/boom", func(*gin.Context) { panic("nil map write") })

	rec := do(engine, http.MethodGet, "/boom", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, auth.CodeInternal, decodeError(t, rec).Code)
	assert.NotContains(t, rec.Body.String(), "nil map")
	assert.Contains(t, logs.String(), "panic serving request")
}
