// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package oauth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/hashlock/hashlock/internal/auth"
)

// GoogleName is the provider name stored on linked accounts.
const GoogleName = "google"

// DefaultGoogleUserInfoURL returns id, email and verified_email for the
// token's owner.
const DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

const googleRequestTimeout = 10 * time.Second

// GoogleConfig configures the Google provider. The endpoint overrides exist
// for tests and proxies.
type GoogleConfig struct {
	ClientID     string `koanf:"client_id" yaml:"client_id"`
	ClientSecret string `koanf:"client_secret" yaml:"client_secret"`
	RedirectURL  string `koanf:"redirect_url" yaml:"redirect_url"`
	TokenURL     string `koanf:"token_url" yaml:"token_url,omitempty"`
	UserInfoURL  string `koanf:"userinfo_url" yaml:"userinfo_url,omitempty"`
}

// Enabled reports whether client credentials are configured.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Google implements Provider for Google sign-in.
type Google struct {
	oauth       oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewGoogle creates the Google provider.
func NewGoogle(cfg GoogleConfig) (*Google, error) {
	if !cfg.Enabled() {
		return nil, oops.Code("OAUTH_CONFIG_INVALID").Errorf("google client id and secret are required")
	}

	endpoint := endpoints.Google
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = DefaultGoogleUserInfoURL
	}

	return &Google{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "email"},
		},
		userInfoURL: userInfo,
		client:      &http.Client{Timeout: googleRequestTimeout},
	}, nil
}

// WithHTTPClient returns a copy of g using c for every request.
func (g *Google) WithHTTPClient(c *http.Client) *Google {
	cp := *g
	cp.client = c
	return &cp
}

// Name implements Provider.
func (g *Google) Name() string { return GoogleName }

// Exchange swaps code for an access token and fetches the profile. Profiles
// without an id or email, or with an unverified email, are rejected.
func (g *Google) Exchange(ctx context.Context, code string) (auth.Profile, error) {
	if code == "" {
		return auth.Profile{}, oops.Code("OAUTH_CODE_MISSING").Errorf("authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return auth.Profile{}, oops.Code("OAUTH_EXCHANGE_FAILED").With("provider", GoogleName).Wrap(err)
	}

	user, err := g.fetchUser(ctx, token)
	if err != nil {
		return auth.Profile{}, err
	}

	switch {
	case user.ID == "" || user.Email == "":
		return auth.Profile{}, oops.Code("OAUTH_PROFILE_INCOMPLETE").
			With("provider", GoogleName).
			Errorf("profile is missing id or email")
	case !user.VerifiedEmail:
		return auth.Profile{}, oops.Code("OAUTH_EMAIL_UNVERIFIED").
			With("provider", GoogleName).
			Errorf("email is not verified")
	}

	return auth.Profile{Provider: GoogleName, Subject: user.ID, Email: user.Email}, nil
}

func (g *Google) fetchUser(ctx context.Context, token *oauth2.Token) (googleUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return googleUser{}, oops.Code("OAUTH_PROFILE_FAILED").Wrap(err)
	}

	resp, err := g.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return googleUser{}, oops.Code("OAUTH_PROFILE_FAILED").With("provider", GoogleName).Wrap(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return googleUser{}, oops.Code("OAUTH_PROFILE_FAILED").
			With("provider", GoogleName).
			With("status", resp.StatusCode).
			Errorf("userinfo returned %d", resp.StatusCode)
	}

	var user googleUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&user); err != nil {
		return googleUser{}, oops.Code("OAUTH_PROFILE_FAILED").With("provider", GoogleName).Wrap(err)
	}
	return user, nil
}

var _ Provider = (*Google)(nil)
