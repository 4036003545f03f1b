// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package config

import (
	"net/url"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/hashlock/hashlock/internal/logging"
)

// Redacted returns a copy with every secret masked.
func (c Config) Redacted() Config {
	out := c
	out.Database.URL = redactURL(c.Database.URL)
	out.RateLimit.Redis.Password = mask(c.RateLimit.Redis.Password)
	out.Notify.Resend.APIKey = mask(c.Notify.Resend.APIKey)
	out.OAuth.Google.ClientSecret = mask(c.OAuth.Google.ClientSecret)
	out.Sentry.DSN = redactURL(c.Sentry.DSN)
	return out
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return logging.Redacted
}

// redactURL hides userinfo and keeps the rest readable. Unparseable values
// are masked whole.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return logging.Redacted
	}
	if u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return u.Redacted()
	}
	u.User = url.User("redacted")
	return u.String()
}
