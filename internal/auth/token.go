// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/samber/oops"
)

// TokenBytes is the amount of randomness in every opaque token.
const TokenBytes = 32 // 64 hex chars

// TokenIssuer generates opaque bearer tokens. The plaintext goes to the
// client; only the SHA-256 digest is stored.
type TokenIssuer struct {
	random io.Reader
}

// NewTokenIssuer creates a TokenIssuer reading from crypto/rand.
func NewTokenIssuer() *TokenIssuer {
	return &TokenIssuer{random: rand.Reader}
}

// NewTokenIssuerWithReader creates a TokenIssuer with a custom entropy source.
func NewTokenIssuerWithReader(r io.Reader) *TokenIssuer {
	return &TokenIssuer{random: r}
}

// Issue returns a new token and its digest.
func (i *TokenIssuer) Issue() (token, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err = io.ReadFull(i.random, buf); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA-256 digest under which a token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Hash returns the stored digest of token.
func (i *TokenIssuer) Hash(token string) string {
	return HashToken(token)
}
