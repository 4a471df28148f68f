package repositories

import (
	"context"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// SessionCache is a short-lived look-aside cache for session liveness checks.
// Implementations must be safe for concurrent use. A miss is reported as
// (nil, false, nil); read errors are treated as misses by callers.
//
// Revocation never evicts: it overwrites the entry with a tombstone (the
// session with RevokedAt set) through Set. Lookups fill the cache only
// through Add, so a fill racing a revocation cannot resurrect the session.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, bool, error)

	// Set stores the entry, replacing whatever is cached for the id.
	Set(ctx context.Context, session domain.Session) error

	// Add stores the entry only when nothing live is cached for the id and
	// reports whether it did.
	Add(ctx context.Context, session domain.Session) (bool, error)
}
