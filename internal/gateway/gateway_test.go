// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/gateway"
)

var anon = gateway.Caller{ClientKey: "198.51.100.7"}

func TestNew_RequiresServices(t *testing.T) {
	_, err := gateway.New(gateway.Services{}, appURL, nil)
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.gw.Register(ctx, anon, gateway.RegisterInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	body, ok := resp.Body.(gateway.UserBody)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", body.User.Email)
	assert.Equal(t, auth.RoleStandard, body.User.Role)
	assert.False(t, body.User.Verified)

	require.Equal(t, gateway.CredentialSet, resp.Credential.Op)
	assert.Len(t, resp.Credential.Value, 64)
	assert.Equal(t, e.clock.Now().Add(auth.SessionTTL), resp.Credential.ExpiresAt)

	user, _, err := e.gw.Authenticate(ctx, resp.Credential.Value)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, body.User.ID, user.ID.String())
}

func TestRegister_Failures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "taken@example.com", "password-1")

	_, err := e.gw.Register(ctx, anon, gateway.RegisterInput{Email: "taken@example.com", Password: "password-2"})
	f := requireFailure(t, err, auth.KindConflict, auth.CodeUserExists)
	assert.Equal(t, http.StatusConflict, gateway.StatusFor(f))

	_, err = e.gw.Register(ctx, anon, gateway.RegisterInput{Email: "nope", Password: "short"})
	f = requireFailure(t, err, auth.KindValidation, auth.CodeInvalidInput)
	assert.Contains(t, f.Fields, "email")
	assert.Contains(t, f.Fields, "password")

	users, _, _, _ := e.store.Counts()
	assert.Equal(t, 1, users)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.register(t, "ada@example.com", "correct horse")

	resp, err := e.gw.Login(context.Background(), anon, gateway.LoginInput{Email: "ada@example.com", Password: "correct horse"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, gateway.SuccessBody{Success: true}, resp.Body)
	assert.Equal(t, gateway.CredentialSet, resp.Credential.Op)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "ada@example.com", "correct horse")

	e.provider.profile = auth.Profile{Provider: "google", Subject: "g-9", Email: "oauth-only@example.com"}
	_, err := e.gw.OAuthCallback(ctx, anon, gateway.OAuthCallbackInput{Code: "c"})
	require.NoError(t, err)

	attempts := []gateway.LoginInput{
		{Email: "ada@example.com", Password: "wrong password"},
		{Email: "ghost@example.com", Password: "correct horse"},
		{Email: "oauth-only@example.com", Password: "correct horse"},
	}

	var failures []*auth.Failure
	for _, in := range attempts {
		resp, err := e.gw.Login(ctx, anon, in)
		assert.Equal(t, gateway.CredentialUnchanged, resp.Credential.Op)
		failures = append(failures, requireFailure(t, err, auth.KindAuthentication, auth.CodeInvalidCredentials))
	}
	for _, f := range failures[1:] {
		assert.Equal(t, gateway.NewErrorBody(failures[0]), gateway.NewErrorBody(f))
		assert.Equal(t, http.StatusUnauthorized, gateway.StatusFor(f))
	}
	assert.Contains(t, e.logs.String(), "login rejected")
	assert.Contains(t, e.logs.String(), anon.ClientKey)
}

func TestLogin_Validation(t *testing.T) {
	e := newEnv(t)
	_, err := e.gw.Login(context.Background(), anon, gateway.LoginInput{Email: "ada@example.com"})
	f := requireFailure(t, err, auth.KindValidation, "")
	assert.Contains(t, f.Fields, "password")
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "ada@example.com", "correct horse")
	token := e.login(t, "ada@example.com", "correct horse")

	resp, err := e.gw.Logout(ctx, gateway.Caller{Credential: token})
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.Status)
	assert.Equal(t, "/", resp.Location)
	assert.Equal(t, gateway.CredentialClear, resp.Credential.Op)

	user, _, err := e.gw.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, user)

	resp, err = e.gw.Logout(ctx, anon)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.Status)
}

func TestOAuthCallback(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.gw.OAuthCallback(ctx, anon, gateway.OAuthCallbackInput{Code: "4/abc"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, appURL+"/dashboard", resp.Location)
	require.Equal(t, gateway.CredentialSet, resp.Credential.Op)
	assert.Equal(t, []string{"4/abc"}, e.provider.codes)

	user, _, err := e.gw.Authenticate(ctx, resp.Credential.Value)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, user.Verified)
	assert.False(t, user.HasPassword())

	users, accounts, sessions, _ := e.store.Counts()
	assert.Equal(t, []int{1, 1, 1}, []int{users, accounts, sessions})
}

func TestOAuthCallback_LinksExistingPasswordUser(t *testing.T) {
	e := newEnv(t)
	existing := e.register(t, "oauth@example.com", "correct horse")

	resp, err := e.gw.OAuthCallback(context.Background(), anon, gateway.OAuthCallbackInput{Code: "c"})
	require.NoError(t, err)
	require.Equal(t, gateway.CredentialSet, resp.Credential.Op)

	user, _, err := e.gw.Authenticate(context.Background(), resp.Credential.Value)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)

	users, accounts, _, _ := e.store.Counts()
	assert.Equal(t, 1, users)
	assert.Equal(t, 1, accounts)

	me, err := e.gw.Me(context.Background(), gateway.Caller{Credential: resp.Credential.Value})
	require.NoError(t, err)
	body, ok := me.Body.(gateway.MeBody)
	require.True(t, ok)
	assert.Equal(t, []string{"google"}, body.Providers)
}

func TestOAuthCallback_Failures(t *testing.T) {
	tests := []struct {
		name    string
		profile auth.Profile
		err     error
	}{
		{"provider error", auth.Profile{}, errors.New("token endpoint: 500 internal error")},
		{"incomplete profile", auth.Profile{Provider: "google", Subject: "g-1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.provider.profile = tt.profile
			e.provider.err = tt.err

			resp, err := e.gw.OAuthCallback(context.Background(), anon, gateway.OAuthCallbackInput{Code: "c"})
			require.NoError(t, err)

			assert.Equal(t, http.StatusFound, resp.Status)
			assert.Equal(t, appURL+"/login?error=google_auth_failed", resp.Location)
			assert.Equal(t, gateway.CredentialUnchanged, resp.Credential.Op)
			assert.Contains(t, e.logs.String(), "oauth callback failed")

			users, _, sessions, _ := e.store.Counts()
			assert.Zero(t, users)
			assert.Zero(t, sessions)
		})
	}
}

func TestOAuthCallback_MissingCode(t *testing.T) {
	e := newEnv(t)
	_, err := e.gw.OAuthCallback(context.Background(), anon, gateway.OAuthCallbackInput{Error: "access_denied"})
	f := requireFailure(t, err, auth.KindValidation, "")
	assert.Contains(t, f.Fields, "code")
	assert.Empty(t, e.provider.codes)
}

func TestForgotPassword_SameResponseForUnknownEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "ada@example.com", "correct horse")

	known, err := e.gw.ForgotPassword(ctx, anon, gateway.ForgotPasswordInput{Email: "ada@example.com"})
	require.NoError(t, err)
	unknown, err := e.gw.ForgotPassword(ctx, anon, gateway.ForgotPasswordInput{Email: "ghost@example.com"})
	require.NoError(t, err)

	assert.Equal(t, known, unknown)
	assert.Equal(t, http.StatusOK, known.Status)
	assert.Equal(t, 1, e.outbox.count())

	_, err = e.gw.ForgotPassword(ctx, anon, gateway.ForgotPasswordInput{Email: "not an email"})
	requireFailure(t, err, auth.KindValidation, "")
}

func TestResetPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "ada@example.com", "old password")
	oldSession := e.login(t, "ada@example.com", "old password")

	_, err := e.gw.ForgotPassword(ctx, anon, gateway.ForgotPasswordInput{Email: "ada@example.com"})
	require.NoError(t, err)
	token := e.outbox.tokenFor(t, "ada@example.com")

	resp, err := e.gw.ResetPassword(ctx, anon, gateway.ResetPasswordInput{Token: token, Password: "new password"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, gateway.CredentialClear, resp.Credential.Op)

	user, _, err := e.gw.Authenticate(ctx, oldSession)
	require.NoError(t, err)
	assert.Nil(t, user, "existing sessions are revoked")

	e.login(t, "ada@example.com", "new password")

	_, err = e.gw.ResetPassword(ctx, anon, gateway.ResetPasswordInput{Token: token, Password: "third password"})
	f := requireFailure(t, err, auth.KindValidation, auth.CodeResetTokenInvalid)
	assert.Equal(t, http.StatusBadRequest, gateway.StatusFor(f))
}

func TestResetPassword_Expired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "ada@example.com", "old password")
	_, err := e.gw.ForgotPassword(ctx, anon, gateway.ForgotPasswordInput{Email: "ada@example.com"})
	require.NoError(t, err)
	token := e.outbox.tokenFor(t, "ada@example.com")

	e.clock.Advance(auth.ResetTokenTTL)

	_, err = e.gw.ResetPassword(ctx, anon, gateway.ResetPasswordInput{Token: token, Password: "new password"})
	f := requireFailure(t, err, auth.KindValidation, auth.CodeResetTokenExpired)
	assert.Equal(t, http.StatusGone, gateway.StatusFor(f))

	e.login(t, "ada@example.com", "old password")
}

func TestResetPassword_Validation(t *testing.T) {
	e := newEnv(t)
	_, err := e.gw.ResetPassword(context.Background(), anon, gateway.ResetPasswordInput{Password: "short"})
	f := requireFailure(t, err, auth.KindValidation, "")
	assert.Contains(t, f.Fields, "token")
	assert.Contains(t, f.Fields, "password")
}

func TestPromote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	adminToken := e.admin(t, "root@example.com")
	target := e.register(t, "ada@example.com", "correct horse")

	resp, err := e.gw.Promote(ctx, gateway.Caller{Credential: adminToken}, gateway.PromoteInput{TargetUserID: target.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	promoted, err := e.store.Users().GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, promoted.Role)
}

func TestPromote_Refusals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	adminToken := e.admin(t, "root@example.com")
	target := e.register(t, "ada@example.com", "correct horse")
	e.register(t, "bob@example.com", "correct horse")
	standardToken := e.login(t, "bob@example.com", "correct horse")

	_, err := e.gw.Promote(ctx, gateway.Caller{Credential: standardToken}, gateway.PromoteInput{TargetUserID: target.ID.String()})
	f := requireFailure(t, err, auth.KindAuthorization, auth.CodeForbidden)
	assert.Equal(t, http.StatusForbidden, gateway.StatusFor(f))

	_, err = e.gw.Promote(ctx, anon, gateway.PromoteInput{TargetUserID: target.ID.String()})
	requireFailure(t, err, auth.KindAuthorization, auth.CodeForbidden)

	_, err = e.gw.Promote(ctx, gateway.Caller{Credential: adminToken}, gateway.PromoteInput{TargetUserID: "not-a-ulid"})
	f = requireFailure(t, err, auth.KindValidation, "")
	assert.Contains(t, f.Fields, "targetUserId")

	_, err = e.gw.Promote(ctx, gateway.Caller{Credential: adminToken}, gateway.PromoteInput{TargetUserID: ulid.Make().String()})
	f = requireFailure(t, err, auth.KindValidation, "")
	assert.Contains(t, f.Fields, "targetUserId")

	unchanged, err := e.store.Users().GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStandard, unchanged.Role)
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "ada@example.com", "correct horse")
	token := e.login(t, "ada@example.com", "correct horse")

	resp, err := e.gw.Me(ctx, gateway.Caller{Credential: token})
	require.NoError(t, err)
	body, ok := resp.Body.(gateway.MeBody)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", body.User.Email)
	assert.Empty(t, body.Providers)

	_, err = e.gw.Me(ctx, anon)
	f := requireFailure(t, err, auth.KindAuthentication, auth.CodeUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, gateway.StatusFor(f))

	e.clock.Advance(auth.SessionTTL)
	_, err = e.gw.Me(ctx, gateway.Caller{Credential: token})
	requireFailure(t, err, auth.KindAuthentication, auth.CodeUnauthenticated)
}

func TestListUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	adminToken := e.admin(t, "root@example.com")
	e.clock.Advance(time.Second)
	e.register(t, "ada@example.com", "correct horse")
	e.clock.Advance(time.Second)
	e.register(t, "bob@example.com", "correct horse")

	resp, err := e.gw.ListUsers(ctx, gateway.Caller{Credential: adminToken})
	require.NoError(t, err)
	body, ok := resp.Body.(gateway.UsersBody)
	require.True(t, ok)

	var emails []string
	for _, u := range body.Users {
		emails = append(emails, u.Email)
	}
	assert.Equal(t, []string{"bob@example.com", "ada@example.com", "root@example.com"}, emails)

	bobToken := e.login(t, "bob@example.com", "correct horse")
	_, err = e.gw.ListUsers(ctx, gateway.Caller{Credential: bobToken})
	requireFailure(t, err, auth.KindAuthorization, auth.CodeForbidden)

	_, err = e.gw.ListUsers(ctx, anon)
	requireFailure(t, err, auth.KindAuthorization, auth.CodeForbidden)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		failure *auth.Failure
		want    int
	}{
		{auth.ValidationFailure(nil), http.StatusBadRequest},
		{auth.NewFailure(auth.KindValidation, auth.CodeResetTokenInvalid, auth.MsgResetTokenInvalid), http.StatusBadRequest},
		{auth.NewFailure(auth.KindValidation, auth.CodeResetTokenExpired, auth.MsgResetTokenExpired), http.StatusGone},
		{auth.InvalidCredentials(), http.StatusUnauthorized},
		{auth.Forbidden(), http.StatusForbidden},
		{auth.NewFailure(auth.KindConflict, auth.CodeUserExists, auth.MsgUserExists), http.StatusConflict},
		{auth.NewFailure(auth.KindMaskedNotFound, auth.CodeUnknownEmail, ""), http.StatusOK},
		{auth.Upstream(nil), http.StatusFound},
		{auth.NewFailure(auth.KindRateLimited, auth.CodeRateLimited, auth.MsgRateLimited), http.StatusTooManyRequests},
		{auth.Internal(nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.failure.Kind)+"/"+tt.failure.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, gateway.StatusFor(tt.failure))
		})
	}
}

func TestCredentialOp_String(t *testing.T) {
	assert.Equal(t, "unchanged", gateway.CredentialUnchanged.String())
	assert.Equal(t, "set", gateway.CredentialSet.String())
	assert.Equal(t, "clear", gateway.CredentialClear.String())
}
