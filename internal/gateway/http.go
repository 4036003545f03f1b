// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway

import (
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/ratelimit"
	"github.com/hashlock/hashlock/pkg/errutil"
)

// CookieName is the session cookie.
const CookieName = "session_id"

// RouterConfig configures the HTTP adapter.
type RouterConfig struct {
	// SecureCookies marks the session cookie Secure and enables HSTS.
	SecureCookies  bool
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For. Empty trusts no proxy and
	// keys rate limits on the peer address.
	TrustedProxies []string
	// Limiter gates the credential endpoints. Nil disables rate limiting.
	Limiter Admitter
	Logger  *slog.Logger
}

type router struct {
	g      *Gateway
	cfg    RouterConfig
	logger *slog.Logger
}

// NewRouter builds the gin engine serving the gateway.
func NewRouter(g *Gateway, cfg RouterConfig) (*gin.Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = g.logger
	}

	cors, err := CORS(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	rt := &router{g: g, cfg: cfg, logger: logger}
	limit := func(bucket string) gin.HandlerFunc {
		return RateLimit(cfg.Limiter, bucket, logger)
	}

	engine := gin.New()
	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}
	if err := engine.SetTrustedProxies(proxies); err != nil {
		return nil, oops.Code("GATEWAY_INVALID_TRUSTED_PROXIES").
			With("trusted_proxies", cfg.TrustedProxies).
			Wrap(err)
	}
	engine.Use(
		Recovery(logger),
		RequestID(),
		Tracing(),
		AccessLog(logger),
		SecurityHeaders(cfg.SecureCookies),
		cors,
	)

	engine.POST("/register", limit(ratelimit.BucketRegister), rt.register)
	engine.POST("/login", limit(ratelimit.BucketLogin), rt.login)
	engine.POST("/logout", rt.logout)
	engine.GET("/oauth/callback", rt.oauthCallback)
	engine.POST("/forgot-password", limit(ratelimit.BucketForgotPassword), rt.forgotPassword)
	engine.POST("/reset-password", limit(ratelimit.BucketResetPassword), rt.resetPassword)
	engine.POST("/admin/promote", rt.promote)
	engine.GET("/admin/users", rt.listUsers)
	engine.GET("/me", rt.me)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorBody{Error: "not found", Code: "NOT_FOUND"})
	})

	return engine, nil
}

func (rt *router) caller(c *gin.Context) Caller {
	credential, _ := c.Cookie(CookieName)
	return Caller{
		Credential: credential,
		ClientKey:  c.ClientIP(),
	}
}

// bindJSON decodes the body into in. Validation happens in the Gateway.
func (rt *router) bindJSON(c *gin.Context, in any) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		rt.fail(c, auth.ValidationFailure(map[string]string{"body": "malformed request body"}))
		return false
	}
	return true
}

func (rt *router) register(c *gin.Context) {
	var in RegisterInput
	if !rt.bindJSON(c, &in) {
		return
	}
	resp, err := rt.g.Register(c.Request.Context(), rt.caller(c), in)
	rt.respond(c, resp, err)
}

func (rt *router) login(c *gin.Context) {
	var in LoginInput
	if !rt.bindJSON(c, &in) {
		return
	}
	resp, err := rt.g.Login(c.Request.Context(), rt.caller(c), in)
	rt.respond(c, resp, err)
}

func (rt *router) logout(c *gin.Context) {
	resp, err := rt.g.Logout(c.Request.Context(), rt.caller(c))
	rt.respond(c, resp, err)
}

func (rt *router) oauthCallback(c *gin.Context) {
	in := OAuthCallbackInput{Code: c.Query("code"), Error: c.Query("error")}
	resp, err := rt.g.OAuthCallback(c.Request.Context(), rt.caller(c), in)
	rt.respond(c, resp, err)
}

func (rt *router) forgotPassword(c *gin.Context) {
	var in ForgotPasswordInput
	if !rt.bindJSON(c, &in) {
		return
	}
	resp, err := rt.g.ForgotPassword(c.Request.Context(), rt.caller(c), in)
	rt.respond(c, resp, err)
}

func (rt *router) resetPassword(c *gin.Context) {
	var in ResetPasswordInput
	if !rt.bindJSON(c, &in) {
		return
	}
	resp, err := rt.g.ResetPassword(c.Request.Context(), rt.caller(c), in)
	rt.respond(c, resp, err)
}

func (rt *router) promote(c *gin.Context) {
	caller := rt.caller(c)
	actor, _, err := rt.g.Authenticate(c.Request.Context(), caller.Credential)
	if err != nil {
		rt.fail(c, auth.AsFailure(err))
		return
	}
	// Refuse before reading the body so non-admins learn nothing about it.
	if !actor.IsAdmin() {
		rt.fail(c, auth.Forbidden())
		return
	}

	var in PromoteInput
	if !rt.bindJSON(c, &in) {
		return
	}
	resp, err := rt.g.promoteAs(c.Request.Context(), actor, in)
	rt.respond(c, resp, err)
}

func (rt *router) listUsers(c *gin.Context) {
	resp, err := rt.g.ListUsers(c.Request.Context(), rt.caller(c))
	rt.respond(c, resp, err)
}

func (rt *router) me(c *gin.Context) {
	resp, err := rt.g.Me(c.Request.Context(), rt.caller(c))
	rt.respond(c, resp, err)
}

func (rt *router) respond(c *gin.Context, resp Response, err error) {
	if err != nil {
		rt.fail(c, auth.AsFailure(err))
		return
	}

	rt.applyCredential(c, resp.Credential)
	if resp.Location != "" {
		c.Redirect(resp.Status, resp.Location)
		return
	}
	c.JSON(resp.Status, resp.Body)
}

func (rt *router) applyCredential(c *gin.Context, ci CredentialInstruction) {
	switch ci.Op {
	case CredentialSet:
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     CookieName,
			Value:    ci.Value,
			Path:     "/",
			Expires:  ci.ExpiresAt,
			HttpOnly: true,
			Secure:   rt.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	case CredentialClear:
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   rt.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	case CredentialUnchanged:
	}
}

func (rt *router) fail(c *gin.Context, f *auth.Failure) {
	if f.Kind == auth.KindUpstream {
		c.Redirect(http.StatusFound, rt.g.redirect(OAuthFailurePath))
		c.Abort()
		return
	}
	if f.Kind == auth.KindInternal {
		errutil.LogError(rt.logger.With("request_id", RequestIDFrom(c), "route", c.FullPath()),
			"request failed", f.Err)
		report(RequestIDFrom(c), c.FullPath(), f.Err)
	}
	c.AbortWithStatusJSON(StatusFor(f), NewErrorBody(f))
}

// report sends an internal failure to Sentry when a client is configured.
func report(requestID, route string, err error) {
	if err == nil {
		return
	}
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("request_id", requestID)
		scope.SetTag("route", route)
	})
	hub.CaptureException(err)
}
