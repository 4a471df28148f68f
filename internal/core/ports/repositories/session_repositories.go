package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// SessionReader defines read operations for sessions.
type SessionReader interface {
	FindSessionByID(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListActiveSessionsByAccount returns non-revoked sessions, most recently
	// active first.
	ListActiveSessionsByAccount(ctx context.Context, accountID string) ([]domain.Session, error)
}

// SessionWriter defines write operations for sessions.
type SessionWriter interface {
	SaveSession(ctx context.Context, session domain.Session) error

	// RevokeSession sets revokedAt unless already set; revocation never moves
	// backwards.
	RevokeSession(ctx context.Context, sessionID string, at time.Time) error

	// RevokeAllByAccount revokes every active session of an account except
	// exceptSessionID (empty for none) and returns the revoked ids.
	RevokeAllByAccount(ctx context.Context, accountID string, exceptSessionID string, at time.Time) ([]string, error)

	// TouchSession updates lastActiveAt of an active session.
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
}

// SessionRepositoryFacade combines all session repository interfaces.
type SessionRepositoryFacade interface {
	SessionReader
	SessionWriter
}
