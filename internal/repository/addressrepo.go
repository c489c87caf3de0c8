package repository

import (
	"context"

	"github.com/and161185/grocer/internal/model"
)

// AddressRepository stores addresses and their links to accounts.
type AddressRepository interface {
	// Create inserts an address linked to accountID and sets its ID.
	Create(ctx context.Context, accountID int64, a *model.Address) error
	// GetByUUID loads an address by its visible id.
	GetByUUID(ctx context.Context, uuid string) (*model.Address, error)
	// IsOwner reports whether the address is linked to the account.
	IsOwner(ctx context.Context, accountID, addressID int64) (bool, error)
	// ListByAccount returns the account's addresses in saved order.
	ListByAccount(ctx context.Context, accountID int64) ([]model.Address, error)
	// Delete removes the address and its account links.
	Delete(ctx context.Context, addressID int64) error
}
