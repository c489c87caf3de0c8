package service

import (
	"context"
	"errors"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/model"
	"github.com/and161185/grocer/internal/repository"
)

// Authorizer resolves a bearer token to the account owning its session.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*model.Account, error)
}

// AddressService manages the addresses of authorized customers.
type AddressService struct {
	auth      Authorizer
	addresses repository.AddressRepository
	newID     func() (string, error)
}

// NewAddressService constructs AddressService.
func NewAddressService(auth Authorizer, addresses repository.AddressRepository) *AddressService {
	return &AddressService{auth: auth, addresses: addresses, newID: newUUID}
}

// SaveAddress validates and stores an address linked to the caller.
func (s *AddressService) SaveAddress(ctx context.Context, token string, in AddressInput) (*model.Address, error) {
	a, err := s.auth.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(in); err != nil {
		return nil, err
	}
	id, err := s.newID()
	if err != nil {
		return nil, errs.Infra("generate address id", err)
	}
	addr := &model.Address{
		UUID:             id,
		FlatBuildingName: in.FlatBuildingName,
		Locality:         in.Locality,
		City:             in.City,
		Pincode:          in.Pincode,
	}
	if err := s.addresses.Create(ctx, a.ID, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// DeleteAddress removes an address linked to the caller and returns it.
func (s *AddressService) DeleteAddress(ctx context.Context, token, addressID string) (*model.Address, error) {
	a, err := s.auth.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	if addressID == "" {
		return nil, errs.New(errs.AddressNotFound, errs.CodeEmptyAddressID, "Address id can not be empty")
	}
	addr, err := s.addresses.GetByUUID(ctx, addressID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, noSuchAddress()
	}
	if err != nil {
		return nil, err
	}
	owner, err := s.addresses.IsOwner(ctx, a.ID, addr.ID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, errs.New(errs.Authorization, errs.CodeNotOwner, "You are not authorized to view/update/delete any one else's address")
	}
	if err := s.addresses.Delete(ctx, addr.ID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, noSuchAddress()
		}
		return nil, err
	}
	return addr, nil
}

// ListAddresses returns the caller's addresses in saved order.
func (s *AddressService) ListAddresses(ctx context.Context, token string) ([]model.Address, error) {
	a, err := s.auth.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.addresses.ListByAccount(ctx, a.ID)
}

func noSuchAddress() error {
	return errs.New(errs.AddressNotFound, errs.CodeNoSuchAddress, "No address by this id")
}
