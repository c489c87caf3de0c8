// Package service contains the customer authentication and address services.
package service

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SessionLifetime is the fixed validity window of a login session.
const SessionLifetime = 8 * time.Hour

// PasswordProvider derives salted password hashes.
type PasswordProvider interface {
	// Encrypt generates a fresh salt and returns it with the password hash under it.
	Encrypt(password string) (salt, hash string, err error)
	// EncryptWithSalt deterministically hashes password under an existing salt.
	EncryptWithSalt(password, salt string) string
	// Matches reports whether password hashes to hash under salt.
	Matches(password, salt, hash string) bool
}

// TokenProvider issues and validates session tokens keyed by the account's password hash.
type TokenProvider interface {
	Generate(passwordHash, subject string, issuedAt, expiresAt time.Time) (string, error)
	DecodeAndValidate(passwordHash, token string) (string, error)
}

func newUUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
