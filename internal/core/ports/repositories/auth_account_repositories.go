package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// AuthAccountReader defines read operations for auth accounts.
type AuthAccountReader interface {
	// FindAccountByID retrieves an account with its identities.
	FindAccountByID(ctx context.Context, accountID string) (*domain.AuthAccount, error)

	// FindAccountByEmail looks an account up by its normalized email.
	FindAccountByEmail(ctx context.Context, email string) (*domain.AuthAccount, error)
}

// AuthAccountWriter defines write operations for auth accounts.
type AuthAccountWriter interface {
	// SaveAccount inserts a new account together with its identities.
	// Returns apperrors.ErrDuplicate when the email is taken.
	SaveAccount(ctx context.Context, account domain.AuthAccount) error

	// UpdateAccount persists verification state, reset token and pending
	// profile. Email, password and identities have dedicated writes.
	UpdateAccount(ctx context.Context, account domain.AuthAccount) error

	// RecordFailedVerification increments the failed-attempt counter of the
	// current verification code and clears the code once maxAttempts is
	// reached. It returns the new count, or apperrors.ErrNotFound when the
	// account holds no code.
	RecordFailedVerification(ctx context.Context, accountID string, maxAttempts int, at time.Time) (int, error)

	// AddIdentity links a new identity. Returns apperrors.ErrDuplicate when
	// the account already has an identity for that provider.
	AddIdentity(ctx context.Context, accountID string, identity domain.Identity) error

	// ClaimUnverifiedAccount hands an account whose email was never verified
	// to a provider identity. The password, the unverified email identity,
	// the pending code and the pending profile are discarded, the account is
	// marked verified and identity is linked as its primary identity. It
	// reports false, writing nothing, when the account is already verified.
	ClaimUnverifiedAccount(ctx context.Context, accountID string, identity domain.Identity, at time.Time) (bool, error)

	// MarkIdentityVerified flags the account's identity for provider as verified.
	MarkIdentityVerified(ctx context.Context, accountID string, provider domain.Provider) error

	// SetPasswordIfAbsent stores a password hash only while the account has
	// none. It reports whether the write happened.
	SetPasswordIfAbsent(ctx context.Context, accountID string, passwordHash string, at time.Time) (bool, error)

	// UpdatePassword replaces the password hash (password reset).
	UpdatePassword(ctx context.Context, accountID string, passwordHash string, at time.Time) error

	// RecordLogin stores the last login time and provider.
	RecordLogin(ctx context.Context, accountID string, provider domain.Provider, at time.Time) error
}

// AuthAccountLifecycleManager defines operations for removing accounts.
type AuthAccountLifecycleManager interface {
	// DeleteAccount revokes every session of the account and removes the
	// account; profile, identities and sessions cascade.
	DeleteAccount(ctx context.Context, accountID string, at time.Time) error
}

// AuthAccountRepositoryFacade combines all auth-account repository interfaces.
type AuthAccountRepositoryFacade interface {
	AuthAccountReader
	AuthAccountWriter
	AuthAccountLifecycleManager
}
