// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32

	saltLen = 16
)

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against expected Argon2id hash and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// PasswordProvider derives salted password hashes in their stored (string) form.
// Salts are base64 text of 16 random bytes; the salt text itself is the KDF salt,
// so any stored salt string round-trips without decoding.
type PasswordProvider struct{}

// NewPasswordProvider constructs a PasswordProvider.
func NewPasswordProvider() *PasswordProvider { return &PasswordProvider{} }

// Encrypt generates a fresh salt and returns it with the hash of password under it.
func (PasswordProvider) Encrypt(password string) (salt, hash string, err error) {
	raw, err := RandBytes(saltLen)
	if err != nil {
		return "", "", err
	}
	salt = base64.RawStdEncoding.EncodeToString(raw)
	return salt, EncryptWithSalt(password, salt), nil
}

// EncryptWithSalt is deterministic: equal (password, salt) always yield equal hashes.
func (PasswordProvider) EncryptWithSalt(password, salt string) string {
	return EncryptWithSalt(password, salt)
}

// Matches recomputes the hash under salt and compares it to hash in constant time.
// A stored hash that is not valid base64 never matches.
func (PasswordProvider) Matches(password, salt, hash string) bool {
	expected, err := base64.RawStdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}
	return VerifyPassword([]byte(password), []byte(salt), expected)
}

// EncryptWithSalt returns base64(Argon2id(password, salt)).
func EncryptWithSalt(password, salt string) string {
	return base64.RawStdEncoding.EncodeToString(HashPassword([]byte(password), []byte(salt)))
}
