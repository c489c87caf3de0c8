// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/and161185/grocer/internal/model"
)

// AccountRepository is the account directory.
type AccountRepository interface {
	// Create inserts a new account and sets its ID. Returns errs.ErrAlreadyExists on a taken contact number.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by internal ID.
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	// GetByContact loads an account by its unique contact number.
	GetByContact(ctx context.Context, contact string) (*model.Account, error)
	// UpdateProfile stores first and last name.
	UpdateProfile(ctx context.Context, a *model.Account) error
	// ChangePassword replaces the password hash and logs out every active session
	// of the account at revokedAt, atomically. Returns the number of revoked sessions.
	ChangePassword(ctx context.Context, id int64, hash string, revokedAt time.Time) (int64, error)
}
