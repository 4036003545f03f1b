// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hashlock/hashlock/internal/auth"
	"github.com/hashlock/hashlock/internal/store"
)

const accountColumns = `id, user_id, provider, provider_account_id, created_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db store.DB
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db store.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create links a provider identity to a user.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	if err := insertAccount(ctx, r.db, account); err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACCOUNT_DUPLICATE").With("provider", account.Provider).Wrap(auth.ErrDuplicate)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("user_id", account.UserID.String()).
			Wrap(err)
	}
	return nil
}

func insertAccount(ctx context.Context, db store.DB, account *auth.Account) error {
	_, err := db.Exec(ctx, `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		account.ID.String(),
		account.UserID.String(),
		account.Provider,
		account.ProviderAccountID,
		account.CreatedAt,
	)
	return err //nolint:wrapcheck // callers attach codes
}

// GetByProvider retrieves the account for a provider identity.
func (r *AccountRepository) GetByProvider(ctx context.Context, provider, providerAccountID string) (*auth.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE provider = $1 AND provider_account_id = $2
	`, provider, providerAccountID)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("provider", provider).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("operation", "get account by provider").Wrap(err)
	}
	return account, nil
}

// ListByUser returns the accounts linked to a user, oldest first.
func (r *AccountRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*auth.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY created_at
	`, userID.String())
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	defer rows.Close()

	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_SCAN_FAILED").Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_ROWS_ERROR").Wrap(err)
	}
	return accounts, nil
}

func scanAccount(row rowScanner) (*auth.Account, error) {
	var (
		account       auth.Account
		idStr, userID string
	)
	if err := row.Scan(&idStr, &userID, &account.Provider, &account.ProviderAccountID, &account.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers map ErrNoRows
	}
	var err error
	if account.ID, err = parseID(idStr); err != nil {
		return nil, err
	}
	if account.UserID, err = parseID(userID); err != nil {
		return nil, err
	}
	return &account, nil
}
