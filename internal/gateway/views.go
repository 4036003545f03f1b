// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package gateway

import (
	"time"

	"github.com/hashlock/hashlock/internal/auth"
)

// RegisterInput is the body of POST /register.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginInput is the body of POST /login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// ForgotPasswordInput is the body of POST /forgot-password.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,max=254,email"`
}

// ResetPasswordInput is the body of POST /reset-password.
type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// PromoteInput is the body of POST /admin/promote.
type PromoteInput struct {
	TargetUserID string `json:"targetUserId" validate:"required,ulid"`
}

// OAuthCallbackInput carries the query of GET /oauth/callback.
type OAuthCallbackInput struct {
	Code  string `form:"code"`
	Error string `form:"error"`
}

// UserView is the public shape of a user. It never carries the hash.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserView projects u.
func NewUserView(u *auth.User) UserView {
	return UserView{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

// UserBody wraps a single user.
type UserBody struct {
	User UserView `json:"user"`
}

// MeBody describes the signed-in user and the providers linked to them.
type MeBody struct {
	User      UserView `json:"user"`
	Providers []string `json:"providers"`
}

// UsersBody wraps a user listing.
type UsersBody struct {
	Users []UserView `json:"users"`
}

// SuccessBody acknowledges an operation.
type SuccessBody struct {
	Success bool `json:"success"`
}

var success = SuccessBody{Success: true}
