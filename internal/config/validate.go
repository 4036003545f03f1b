// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/logging"
	"github.com/hashlock/hashlock/internal/notify"
	"github.com/hashlock/hashlock/internal/ratelimit"
)

var knownBuckets = map[string]bool{
	ratelimit.BucketLogin:          true,
	ratelimit.BucketRegister:       true,
	ratelimit.BucketForgotPassword: true,
	ratelimit.BucketResetPassword:  true,
}

// Validate reports every problem with the configuration in one error.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Environment {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		add("environment %q must be development, test or production", c.Environment)
	}

	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		add("log.format %q must be json or text", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level %q is not a level", c.Log.Level)
	}

	app, err := url.Parse(c.AppURL)
	if err != nil || app.Host == "" || (app.Scheme != "http" && app.Scheme != "https") {
		add("app_url %q must be an absolute http(s) URL", c.AppURL)
	} else if c.IsProduction() && app.Scheme != "https" {
		add("app_url must use https in production")
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			add("server.trusted_proxies entry %q must be an IP or CIDR", proxy)
		}
	}
	if c.IsProduction() && c.Database.URL == "" {
		add("database.url is required in production")
	}

	if !validPolicy(c.RateLimit.Default) {
		add("ratelimit.default needs a positive limit and window")
	}
	buckets := make([]string, 0, len(c.RateLimit.Buckets))
	for name := range c.RateLimit.Buckets {
		buckets = append(buckets, name)
	}
	sort.Strings(buckets)
	for _, name := range buckets {
		if !knownBuckets[name] {
			add("ratelimit.buckets.%s is not a rate limited endpoint", name)
		} else if !validPolicy(c.RateLimit.Buckets[name]) {
			add("ratelimit.buckets.%s needs a positive limit and window", name)
		}
	}

	if c.Tasks.Workers <= 0 || c.Tasks.QueueSize <= 0 {
		add("tasks.workers and tasks.queue_size must be positive")
	}

	switch c.Notify.Provider {
	case notify.ProviderLog:
		if c.IsProduction() {
			add("notify.provider log cannot deliver resets in production")
		}
	case notify.ProviderResend:
		if c.Notify.Resend.APIKey == "" {
			add("notify.resend.api_key is required for the resend provider")
		}
	default:
		add("notify.provider %q must be log or resend", c.Notify.Provider)
	}

	g := c.OAuth.Google
	if (g.ClientID == "") != (g.ClientSecret == "") {
		add("oauth.google needs both client_id and client_secret")
	}
	if g.Enabled() && g.RedirectURL == "" {
		add("oauth.google.redirect_url is required when google sign-in is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").
		With("problems", problems).
		Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

func validPolicy(p ratelimit.Policy) bool {
	return p.Limit > 0 && p.Window > 0
}

func validProxy(s string) bool {
	if _, err := netip.ParseAddr(s); err == nil {
		return true
	}
	_, err := netip.ParsePrefix(s)
	return err == nil
}
