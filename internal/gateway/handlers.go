// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/pkg/errutil"
)

// OAuth redirect targets relative to the app URL.
const (
	OAuthSuccessPath = "/dashboard"
	OAuthFailurePath = "/login?error=google_auth_failed"
)

func validateInput(in any) error {
	if err := auth.Validator().Struct(in); err != nil {
		return auth.ValidationFailureFrom(err)
	}
	return nil
}

func setCredential(session *auth.Session, token string) CredentialInstruction {
	return CredentialInstruction{Op: CredentialSet, Value: token, ExpiresAt: session.ExpiresAt}
}

// Register creates a password account and signs it in.
func (g *Gateway) Register(ctx context.Context, caller Caller, in RegisterInput) (Response, error) {
	if err := validateInput(in); err != nil {
		return Response{}, err
	}

	user, err := g.svc.Accounts.Register(ctx, in.Email, in.Password)
	if err != nil {
		return Response{}, err
	}

	resp := Response{Status: http.StatusCreated, Body: UserBody{User: NewUserView(user)}}

	session, token, err := g.svc.Sessions.Create(ctx, user.ID)
	if err != nil {
		// The account exists; the client can still log in.
		errutil.LogError(g.logger.With("user_id", user.ID.String()), "session after register failed", err)
		return resp, nil
	}
	resp.Credential = setCredential(session, token)
	return resp, nil
}

// Login checks a password and issues a session.
func (g *Gateway) Login(ctx context.Context, caller Caller, in LoginInput) (Response, error) {
	if err := validateInput(in); err != nil {
		return Response{}, err
	}

	user, err := g.svc.Accounts.Login(ctx, in.Email, in.Password)
	if err != nil {
		if auth.KindOf(err) == auth.KindAuthentication {
			g.logger.InfoContext(ctx, "login rejected", "client", caller.ClientKey)
		}
		return Response{}, err
	}

	session, token, err := g.svc.Sessions.Create(ctx, user.ID)
	if err != nil {
		return Response{}, auth.Internal(err)
	}

	return Response{
		Status:     http.StatusOK,
		Body:       success,
		Credential: setCredential(session, token),
	}, nil
}

// Logout ends the caller's session, if any, and redirects home.
func (g *Gateway) Logout(ctx context.Context, caller Caller) (Response, error) {
	if caller.Credential != "" {
		if err := g.svc.Sessions.Destroy(ctx, caller.Credential); err != nil {
			errutil.LogError(g.logger, "logout destroy failed", err)
		}
	}
	return Response{
		Status:     http.StatusSeeOther,
		Location:   "/",
		Credential: CredentialInstruction{Op: CredentialClear},
	}, nil
}

// OAuthCallback completes an external sign-in. Provider and linking
// failures redirect to the login error page; only a missing code is
// reported as an error.
func (g *Gateway) OAuthCallback(ctx context.Context, caller Caller, in OAuthCallbackInput) (Response, error) {
	if in.Code == "" {
		return Response{}, auth.ValidationFailure(map[string]string{"code": "is required"})
	}

	fail := func(f *auth.Failure) (Response, error) {
		errutil.LogError(g.logger.With("client", caller.ClientKey, "kind", string(f.Kind)),
			"oauth callback failed", f.Err)
		return Response{Status: http.StatusFound, Location: g.redirect(OAuthFailurePath)}, nil
	}

	if g.svc.Provider == nil {
		return fail(auth.Upstream(oops.Code("OAUTH_DISABLED").Errorf("no identity provider configured")))
	}

	profile, err := g.svc.Provider.Exchange(ctx, in.Code)
	if err != nil {
		return fail(auth.Upstream(err))
	}

	user, session, token, err := g.svc.Linker.Link(ctx, profile)
	if err != nil {
		return fail(auth.AsFailure(err))
	}

	g.logger.InfoContext(ctx, "oauth sign-in", "user_id", user.ID.String(), "provider", profile.Provider)
	return Response{
		Status:     http.StatusFound,
		Location:   g.redirect(OAuthSuccessPath),
		Credential: setCredential(session, token),
	}, nil
}

// ForgotPassword starts a reset. The reply is the same whether or not the
// email belongs to anyone.
func (g *Gateway) ForgotPassword(ctx context.Context, _ Caller, in ForgotPasswordInput) (Response, error) {
	if err := validateInput(in); err != nil {
		return Response{}, err
	}
	err := g.svc.Resets.Issue(ctx, in.Email)
	if err != nil && auth.KindOf(err) != auth.KindMaskedNotFound {
		return Response{}, err
	}
	return Response{Status: http.StatusOK, Body: success}, nil
}

// ResetPassword redeems a reset token. Every session of the owner is
// revoked, so the caller's credential is cleared too.
func (g *Gateway) ResetPassword(ctx context.Context, _ Caller, in ResetPasswordInput) (Response, error) {
	if err := validateInput(in); err != nil {
		return Response{}, err
	}
	if err := g.svc.Resets.Redeem(ctx, in.Token, in.Password); err != nil {
		return Response{}, err
	}
	return Response{
		Status:     http.StatusOK,
		Body:       success,
		Credential: CredentialInstruction{Op: CredentialClear},
	}, nil
}

// Promote grants ADMIN to another user. Only admins may call it; callers
// without a session are refused the same way.
func (g *Gateway) Promote(ctx context.Context, caller Caller, in PromoteInput) (Response, error) {
	actor, _, err := g.Authenticate(ctx, caller.Credential)
	if err != nil {
		return Response{}, err
	}
	if !actor.IsAdmin() {
		return Response{}, auth.Forbidden()
	}
	return g.promoteAs(ctx, actor, in)
}

// promoteAs runs Promote for an actor already resolved from the session.
func (g *Gateway) promoteAs(ctx context.Context, actor *auth.User, in PromoteInput) (Response, error) {
	if err := validateInput(in); err != nil {
		return Response{}, err
	}
	target, err := ulid.ParseStrict(in.TargetUserID)
	if err != nil {
		return Response{}, auth.ValidationFailure(map[string]string{"targetUserId": "must be a valid id"})
	}

	if err := g.svc.Accounts.Promote(ctx, actor, target); err != nil {
		return Response{}, err
	}
	return Response{Status: http.StatusOK, Body: success}, nil
}

// Me returns the signed-in user.
func (g *Gateway) Me(ctx context.Context, caller Caller) (Response, error) {
	user, _, err := g.Authenticate(ctx, caller.Credential)
	if err != nil {
		return Response{}, err
	}
	if user == nil {
		return Response{}, auth.Unauthenticated()
	}
	providers, err := g.svc.Linker.Providers(ctx, user.ID)
	if err != nil {
		return Response{}, auth.Internal(err)
	}
	return Response{Status: http.StatusOK, Body: MeBody{User: NewUserView(user), Providers: providers}}, nil
}

// ListUsers returns every user, newest first. Admin only.
func (g *Gateway) ListUsers(ctx context.Context, caller Caller) (Response, error) {
	actor, _, err := g.Authenticate(ctx, caller.Credential)
	if err != nil {
		return Response{}, err
	}

	users, err := g.svc.Accounts.ListUsers(ctx, actor)
	if err != nil {
		return Response{}, err
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, NewUserView(u))
	}
	return Response{Status: http.StatusOK, Body: UsersBody{Users: views}}, nil
}
