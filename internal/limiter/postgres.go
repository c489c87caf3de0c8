package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with a fixed failure window and lockout.
type PG struct {
	pool     Querier
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

// Querier is the subset of pgxpool.Pool used by PG.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config holds lockout parameters.
type Config struct {
	Window   time.Duration // failures older than this start a new count
	MaxFails int           // failures within Window that trigger a block
	BlockFor time.Duration
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, cfg Config) *PG {
	return &PG{pool: q, window: cfg.Window, maxFails: cfg.MaxFails, blockFor: cfg.BlockFor, now: time.Now}
}

// WithClock replaces the time source and returns l.
func (l *PG) WithClock(now func() time.Time) *PG {
	l.now = now
	return l
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, contact string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE contact=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.pool.QueryRow(ctx, q, contact, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if now := l.now(); blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets counters for (contact, ip).
func (l *PG) Success(ctx context.Context, contact string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (contact, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', $3)
ON CONFLICT (contact, ip_hash)
DO UPDATE SET fail_count=0, blocked_until='epoch', updated_at=$3`
	_, err := l.pool.Exec(ctx, q, contact, ipHash, l.now())
	return err
}

// Failure records a failed attempt and blocks the pair once maxFails is reached.
func (l *PG) Failure(ctx context.Context, contact string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now()

	const q = `
INSERT INTO auth_limiter (contact, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', $3)
ON CONFLICT (contact, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN auth_limiter.updated_at < $4 THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = $3
RETURNING fail_count`
	var fails int
	if err := l.pool.QueryRow(ctx, q, contact, ipHash, now, now.Add(-l.window)).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}
	const upd = `UPDATE auth_limiter SET blocked_until=$3 WHERE contact=$1 AND ip_hash=$2`
	if _, err := l.pool.Exec(ctx, upd, contact, ipHash, now.Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
