// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/hashlock/hashlock/internal/auth"
)

const (
	// DefaultResendEndpoint is the Resend send-email API.
	DefaultResendEndpoint = "https://api.resend.com/emails"
	// DefaultFrom is the sender used when none is configured.
	DefaultFrom = "noreply@hashlock.dev"

	resetSubject          = "Reset your password"
	defaultRequestTimeout = 10 * time.Second
	defaultAttempts       = 4
	defaultBackoff        = 200 * time.Millisecond
)

// ResendConfig configures the Resend notifier.
type ResendConfig struct {
	APIKey   string `koanf:"api_key" yaml:"api_key"`
	From     string `koanf:"from" yaml:"from"`
	Endpoint string `koanf:"endpoint" yaml:"endpoint"`
}

var resetEmail = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
  <h2>Reset Password Request</h2>
  <p>You requested a password reset for your Hash Lock account.</p>
  <p>Click the button below to set a new password. This link expires in 1 hour.</p>
  <a href="{{.Link}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block; margin: 10px 0;">Reset Password</a>
  <p style="color: #666; font-size: 14px; margin-top: 20px;">If you didn't ask for this, you can safely ignore this email.</p>
</div>
`))

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendOption configures a ResendNotifier.
type ResendOption func(*ResendNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ResendOption {
	return func(n *ResendNotifier) { n.client = c }
}

// WithRetry overrides the attempt count and base backoff.
func WithRetry(attempts uint64, base time.Duration) ResendOption {
	return func(n *ResendNotifier) {
		n.attempts = attempts
		n.backoff = base
	}
}

// WithLogger sets the logger for retry warnings.
func WithLogger(logger *slog.Logger) ResendOption {
	return func(n *ResendNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// ResendNotifier emails reset links through the Resend API. Server errors
// and transport failures are retried with exponential backoff; client
// errors are not.
type ResendNotifier struct {
	cfg      ResendConfig
	appURL   string
	client   *http.Client
	attempts uint64
	backoff  time.Duration
	logger   *slog.Logger
}

// NewResendNotifier creates a ResendNotifier. An API key is required.
func NewResendNotifier(cfg ResendConfig, appURL string, opts ...ResendOption) (*ResendNotifier, error) {
	if cfg.APIKey == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("resend api key is required")
	}
	if cfg.From == "" {
		cfg.From = DefaultFrom
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultResendEndpoint
	}

	n := &ResendNotifier{
		cfg:      cfg,
		appURL:   appURL,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.attempts < 1 {
		n.attempts = 1
	}
	if n.backoff <= 0 {
		n.backoff = defaultBackoff
	}
	return n, nil
}

// Send emails the reset link for token to address.
func (n *ResendNotifier) Send(ctx context.Context, address, token string) error {
	var html bytes.Buffer
	if err := resetEmail.Execute(&html, struct{ Link string }{ResetLink(n.appURL, token)}); err != nil {
		return oops.Code("NOTIFY_RENDER_FAILED").Wrap(err)
	}

	payload, err := json.Marshal(resendRequest{
		From:    n.cfg.From,
		To:      []string{address},
		Subject: resetSubject,
		HTML:    html.String(),
	})
	if err != nil {
		return oops.Code("NOTIFY_ENCODE_FAILED").Wrap(err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(n.attempts-1, retry.NewExponential(n.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := n.post(ctx, payload)
		if err != nil && attempt < int(n.attempts) {
			n.logger.Warn("resend request failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").With("attempts", attempt).Wrap(err)
	}
	return nil
}

func (n *ResendNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return oops.Code("NOTIFY_REQUEST_INVALID").Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return retry.RetryableError(oops.Code("NOTIFY_UPSTREAM_ERROR").
			With("status", resp.StatusCode).
			Errorf("resend returned %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest:
		return oops.Code("NOTIFY_REJECTED").
			With("status", resp.StatusCode).
			Errorf("resend rejected the message with %d", resp.StatusCode)
	default:
		return nil
	}
}

var _ auth.Notifier = (*ResendNotifier)(nil)
