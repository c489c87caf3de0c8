// Package model defines domain entities used by services and repositories.
package model

import (
	"time"
)

// Account is a registered customer. Passwords are never stored in plaintext.
type Account struct {
	ID            int64  // internal PK
	UUID          string // externally visible id, immutable
	FirstName     string
	LastName      string
	Email         string
	ContactNumber string // unique
	PasswordHash  string // base64(Argon2id(password, Salt))
	Salt          string // per-account, immutable after creation
	CreatedAt     time.Time
}

// Session is one authenticated login. It is never deleted; LogoutAt marks its end.
type Session struct {
	ID          int64
	UUID        string // visible id of the owning account
	AccountID   int64  // FK -> customer.id
	AccessToken string // unique lookup key
	LoginAt     time.Time
	ExpiresAt   time.Time
	LogoutAt    *time.Time // nil while not logged out
}

// Active reports whether the session is not logged out and not expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.LogoutAt == nil && now.Before(s.ExpiresAt)
}

// Address is a postal address linked to one or more accounts.
type Address struct {
	ID               int64 // saved order
	UUID             string
	FlatBuildingName string
	Locality         string
	City             string
	Pincode          string
	CreatedAt        time.Time
}
