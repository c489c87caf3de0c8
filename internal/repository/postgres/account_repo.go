package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/model"
)

// AccountRepo implements AccountRepository using PostgreSQL.
type AccountRepo struct{ db *DB }

// NewAccountRepo constructs an account repository.
func NewAccountRepo(db *DB) *AccountRepo { return &AccountRepo{db: db} }

const accountColumns = `id, uuid, firstname, lastname, email, contact_number, password, salt, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.UUID, &a.FirstName, &a.LastName, &a.Email,
		&a.ContactNumber, &a.PasswordHash, &a.Salt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new customer row.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO customer (uuid, firstname, lastname, email, contact_number, password, salt)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`
	err := r.db.Pool.QueryRow(ctx, q, a.UUID, a.FirstName, a.LastName, a.Email,
		a.ContactNumber, a.PasswordHash, a.Salt).Scan(&a.ID, &a.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return errs.Infra("create customer", err)
	}
	return nil
}

// GetByID selects a customer by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM customer WHERE id=$1`
	a, err := scanAccount(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFoundOr("get customer by id", err)
	}
	return a, nil
}

// GetByContact selects a customer by contact number.
func (r *AccountRepo) GetByContact(ctx context.Context, contact string) (*model.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM customer WHERE contact_number=$1`
	a, err := scanAccount(r.db.Pool.QueryRow(ctx, q, contact))
	if err != nil {
		return nil, notFoundOr("get customer by contact", err)
	}
	return a, nil
}

// UpdateProfile stores first and last name.
func (r *AccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	const q = `UPDATE customer SET firstname=$2, lastname=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, a.ID, a.FirstName, a.LastName)
	if err != nil {
		return errs.Infra("update customer", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ChangePassword replaces the hash and closes every open session of the customer in one transaction.
func (r *AccountRepo) ChangePassword(ctx context.Context, id int64, hash string, revokedAt time.Time) (revoked int64, err error) {
	const upd = `UPDATE customer SET password=$2 WHERE id=$1`
	const revoke = `UPDATE customer_auth SET logout_at=$2 WHERE customer_id=$1 AND logout_at IS NULL`

	err = r.db.inTx(ctx, "change password", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, upd, id, hash)
		if err != nil {
			return errs.Infra("change password", err)
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrNotFound
		}
		tag, err = tx.Exec(ctx, revoke, id, revokedAt)
		if err != nil {
			return errs.Infra("revoke sessions", err)
		}
		revoked = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}
