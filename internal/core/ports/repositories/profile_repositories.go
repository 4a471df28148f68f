package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// ProfileReader defines read operations for profiles.
type ProfileReader interface {
	FindProfileByAccountID(ctx context.Context, accountID string) (*domain.Profile, error)
	FindProfileByUsername(ctx context.Context, username string) (*domain.Profile, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// ProfileWriter defines write operations for profiles.
type ProfileWriter interface {
	// SaveProfile inserts a profile. Returns apperrors.ErrDuplicate when the
	// username or the account's profile already exists.
	SaveProfile(ctx context.Context, profile domain.Profile) error

	// UpdateProfile persists the editable fields; username is untouched.
	UpdateProfile(ctx context.Context, profile domain.Profile) error

	// ChangeUsernameOnce sets a new username only while hasChangedUsername is
	// false, flipping the flag in the same write. It reports whether the
	// change was applied; a taken username yields apperrors.ErrDuplicate.
	ChangeUsernameOnce(ctx context.Context, accountID string, username string, at time.Time) (bool, error)
}

// ProfileRepositoryFacade combines all profile repository interfaces.
type ProfileRepositoryFacade interface {
	ProfileReader
	ProfileWriter
}
