package repository

import (
	"context"
	"time"

	"github.com/and161185/grocer/internal/model"
)

// SessionRepository is the session store. Sessions are never deleted.
type SessionRepository interface {
	// Create inserts a new session and sets its ID.
	Create(ctx context.Context, s *model.Session) error
	// GetByToken loads a session by its access token.
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	// ListByAccount returns all sessions of an account, newest first.
	ListByAccount(ctx context.Context, accountID int64) ([]model.Session, error)
	// MarkLoggedOut sets logout_at on a session that is not logged out yet and returns it.
	// Returns errs.ErrNotFound when no such still-open session exists.
	MarkLoggedOut(ctx context.Context, token string, at time.Time) (*model.Session, error)
}
