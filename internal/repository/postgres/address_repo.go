package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/model"
)

// AddressRepo implements AddressRepository using PostgreSQL.
type AddressRepo struct{ db *DB }

// NewAddressRepo constructs an address repository.
func NewAddressRepo(db *DB) *AddressRepo { return &AddressRepo{db: db} }

const addressColumns = `a.id, a.uuid, a.flat_buil_number, a.locality, a.city, a.pincode, a.created_at`

func scanAddress(row pgx.Row) (*model.Address, error) {
	var a model.Address
	if err := row.Scan(&a.ID, &a.UUID, &a.FlatBuildingName, &a.Locality, &a.City, &a.Pincode, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts the address and its customer link in one transaction.
func (r *AddressRepo) Create(ctx context.Context, accountID int64, a *model.Address) error {
	const ins = `
INSERT INTO address (uuid, flat_buil_number, locality, city, pincode)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`
	const link = `INSERT INTO customer_address (customer_id, address_id) VALUES ($1, $2)`

	return r.db.inTx(ctx, "save address", func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, ins, a.UUID, a.FlatBuildingName, a.Locality, a.City, a.Pincode).Scan(&a.ID, &a.CreatedAt)
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		if err != nil {
			return errs.Infra("save address", err)
		}
		if _, err := tx.Exec(ctx, link, accountID, a.ID); err != nil {
			return errs.Infra("link address", err)
		}
		return nil
	})
}

// GetByUUID selects an address by visible id.
func (r *AddressRepo) GetByUUID(ctx context.Context, uuid string) (*model.Address, error) {
	const q = `SELECT ` + addressColumns + ` FROM address a WHERE a.uuid=$1`
	a, err := scanAddress(r.db.Pool.QueryRow(ctx, q, uuid))
	if err != nil {
		return nil, notFoundOr("get address", err)
	}
	return a, nil
}

// IsOwner reports whether a customer_address link exists.
func (r *AddressRepo) IsOwner(ctx context.Context, accountID, addressID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM customer_address WHERE customer_id=$1 AND address_id=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, accountID, addressID).Scan(&ok); err != nil {
		return false, errs.Infra("check address owner", err)
	}
	return ok, nil
}

// ListByAccount returns the customer's addresses ordered by saved order.
func (r *AddressRepo) ListByAccount(ctx context.Context, accountID int64) ([]model.Address, error) {
	const q = `
SELECT ` + addressColumns + `
FROM address a JOIN customer_address ca ON ca.address_id = a.id
WHERE ca.customer_id=$1
ORDER BY a.id ASC`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, errs.Infra("list addresses", err)
	}
	defer rows.Close()

	out := make([]model.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, errs.Infra("scan address", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Infra("list addresses", err)
	}
	return out, nil
}

// Delete removes the links and the address row in one transaction.
func (r *AddressRepo) Delete(ctx context.Context, addressID int64) error {
	const unlink = `DELETE FROM customer_address WHERE address_id=$1`
	const del = `DELETE FROM address WHERE id=$1`

	return r.db.inTx(ctx, "delete address", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, unlink, addressID); err != nil {
			return errs.Infra("unlink address", err)
		}
		tag, err := tx.Exec(ctx, del, addressID)
		if err != nil {
			return errs.Infra("delete address", err)
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
}
