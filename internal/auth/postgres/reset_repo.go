// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/store"
)

// ResetTokenRepository implements auth.ResetTokenRepository using PostgreSQL.
type ResetTokenRepository struct {
	db store.DB
}

var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(db store.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Replace deletes every token for the email and inserts token, in one transaction.
func (r *ResetTokenRepository) Replace(ctx context.Context, token *auth.PasswordResetToken) error {
	err := store.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE email = $1`, token.Email); err != nil {
			return oops.With("operation", "delete previous tokens").Wrap(err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO password_reset_tokens (id, email, token_hash, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			token.ID.String(),
			token.Email,
			token.TokenHash,
			token.ExpiresAt,
			token.CreatedAt,
		)
		if err != nil {
			return oops.With("operation", "insert token").Wrap(err)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("RESET_DUPLICATE").Wrap(auth.ErrDuplicate)
		}
		return oops.Code("RESET_REPLACE_FAILED").With("reset_id", token.ID.String()).Wrap(err)
	}
	return nil
}

// Redeem consumes the token, sets the owner's password and deletes the
// owner's sessions in one transaction. An expired token is deleted and the
// deletion is committed before ErrTokenExpired is returned.
func (r *ResetTokenRepository) Redeem(ctx context.Context, tokenHash, passwordHash string, now time.Time) (ulid.ULID, error) {
	var (
		userID  ulid.ULID
		expired bool
	)

	err := store.InTx(ctx, r.db, func(tx pgx.Tx) error {
		var (
			email     string
			expiresAt time.Time
		)
		err := tx.QueryRow(ctx, `
			DELETE FROM password_reset_tokens
			WHERE token_hash = $1
			RETURNING email, expires_at
		`, tokenHash).Scan(&email, &expiresAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		if err != nil {
			return oops.With("operation", "consume token").Wrap(err)
		}

		if !now.Before(expiresAt) {
			expired = true
			return nil
		}

		var idStr string
		err = tx.QueryRow(ctx, `
			UPDATE users SET password_hash = $2
			WHERE email = $1
			RETURNING id
		`, email, passwordHash).Scan(&idStr)
		if errors.Is(err, pgx.ErrNoRows) {
			return oops.Code("RESET_USER_NOT_FOUND").Wrap(auth.ErrNotFound)
		}
		if err != nil {
			return oops.With("operation", "update password").Wrap(err)
		}
		if userID, err = parseID(idStr); err != nil {
			return err
		}

		if _, err := deleteUserSessions(ctx, tx, userID); err != nil {
			return oops.With("operation", "revoke sessions").Wrap(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return ulid.ULID{}, err
		}
		return ulid.ULID{}, oops.Code("RESET_REDEEM_FAILED").Wrap(err)
	}
	if expired {
		return ulid.ULID{}, oops.Code("RESET_EXPIRED").Wrap(auth.ErrTokenExpired)
	}
	return userID, nil
}

// DeleteExpired removes tokens with expires_at <= now.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
