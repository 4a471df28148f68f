package services

import (
	"context"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// SessionReaderSvc defines session lookups.
type SessionReaderSvc interface {
	// ListSessions returns the account's active sessions, most recently active first.
	ListSessions(ctx context.Context, authAccountID string) ([]domain.Session, error)

	// IsSessionActive reports false for missing and revoked sessions.
	IsSessionActive(ctx context.Context, sessionID string) (bool, error)

	// CheckSession returns ErrSessionRevoked when the session is missing or
	// revoked and ErrSessionMismatch when it belongs to another account.
	CheckSession(ctx context.Context, sessionID string, authAccountID string) error
}

// SessionWriterSvc defines session mutations.
type SessionWriterSvc interface {
	CreateSession(ctx context.Context, input domain.CreateSessionInput) (*domain.Session, error)

	// RevokeSession is idempotent; it fails with ErrSessionNotFound or
	// ErrSessionForbidden.
	RevokeSession(ctx context.Context, sessionID string, requestingAccountID string) error

	// RevokeAllSessions revokes every active session except exceptSessionID.
	RevokeAllSessions(ctx context.Context, authAccountID string, exceptSessionID string) (int, error)

	// TouchSession is best-effort and never returns an error.
	TouchSession(ctx context.Context, sessionID string)

	// ForgetSessions marks the sessions revoked in the liveness cache. It is
	// called after every revocation and fails if the cache could not be
	// updated.
	ForgetSessions(ctx context.Context, sessionIDs ...string) error
}

// SessionSvcFacade combines all session tracker interfaces.
type SessionSvcFacade interface {
	SessionReaderSvc
	SessionWriterSvc
}
