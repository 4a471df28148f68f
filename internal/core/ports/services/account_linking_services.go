package services

import (
	"context"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// AccountLinkingSvc resolves incoming authentication events against existing
// accounts, keeping exactly one AuthAccount per email.
type AccountLinkingSvc interface {
	// ResolveOAuthLogin creates, logs into or links an account for an OAuth
	// identity. Fails with ErrProviderMismatch when cross-provider linking is
	// disabled and the provider is not yet linked.
	ResolveOAuthLogin(ctx context.Context, info domain.OAuthUserInfo) (*domain.LinkResult, error)

	// RegisterWithPassword creates an unverified account, or links a password
	// to an OAuth-only account. Fails with ErrEmailAlreadyExists when the
	// account already has a password.
	RegisterWithPassword(ctx context.Context, signup domain.PasswordSignup) (*domain.LinkResult, error)

	// SetPasswordForOAuthUser adds a password to an account that has none.
	SetPasswordForOAuthUser(ctx context.Context, accountID string, password string) (*domain.AuthAccount, error)
}
