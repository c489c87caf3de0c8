package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/grocer/internal/errs"
	"github.com/and161185/grocer/internal/model"
)

// SessionRepo implements SessionRepository using PostgreSQL.
type SessionRepo struct{ db *DB }

// NewSessionRepo constructs a session repository.
func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, uuid, customer_id, access_token, login_at, expires_at, logout_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	if err := row.Scan(&s.ID, &s.UUID, &s.AccountID, &s.AccessToken, &s.LoginAt, &s.ExpiresAt, &s.LogoutAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new customer_auth row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO customer_auth (uuid, customer_id, access_token, login_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	err := r.db.Pool.QueryRow(ctx, q, s.UUID, s.AccountID, s.AccessToken, s.LoginAt, s.ExpiresAt).Scan(&s.ID)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return errs.Infra("create session", err)
	}
	return nil
}

// GetByToken selects a session by access token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM customer_auth WHERE access_token=$1`
	s, err := scanSession(r.db.Pool.QueryRow(ctx, q, token))
	if err != nil {
		return nil, notFoundOr("get session", err)
	}
	return s, nil
}

// ListByAccount returns every session of a customer, newest first.
func (r *SessionRepo) ListByAccount(ctx context.Context, accountID int64) ([]model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM customer_auth WHERE customer_id=$1 ORDER BY login_at DESC, id DESC`
	rows, err := r.db.Pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, errs.Infra("list sessions", err)
	}
	defer rows.Close()

	out := make([]model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errs.Infra("scan session", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Infra("list sessions", err)
	}
	return out, nil
}

// MarkLoggedOut closes an open session. The row-level update serializes concurrent logouts.
func (r *SessionRepo) MarkLoggedOut(ctx context.Context, token string, at time.Time) (*model.Session, error) {
	const q = `
UPDATE customer_auth SET logout_at=$2
WHERE access_token=$1 AND logout_at IS NULL
RETURNING ` + sessionColumns
	s, err := scanSession(r.db.Pool.QueryRow(ctx, q, token, at))
	if err != nil {
		return nil, notFoundOr("logout session", err)
	}
	return s, nil
}
