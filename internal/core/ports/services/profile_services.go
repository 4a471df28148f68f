package services

import (
	"context"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// ProfileReaderSvc defines profile lookups.
type ProfileReaderSvc interface {
	// GetAccountWithProfile returns the caller's account and profile.
	GetAccountWithProfile(ctx context.Context, accountID string) (*domain.AuthAccount, *domain.Profile, error)
}

// ProfileWriterSvc defines profile mutations.
type ProfileWriterSvc interface {
	UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Profile, error)

	// ChangeUsername succeeds at most once per account.
	ChangeUsername(ctx context.Context, accountID string, username string) (*domain.Profile, error)
}

// AccountLifecycleSvc defines account removal.
type AccountLifecycleSvc interface {
	// DeleteUser requires the current password when the account has one.
	DeleteUser(ctx context.Context, accountID string, password string) error
}

// ProfileSvcFacade combines all profile interfaces.
type ProfileSvcFacade interface {
	ProfileReaderSvc
	ProfileWriterSvc
	AccountLifecycleSvc
}
