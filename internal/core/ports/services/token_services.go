package services

import "github.com/SscSPs/saas_starter_auth/internal/core/domain"

// TokenSvc issues and verifies signed access and refresh tokens. It is
// stateless: revocation is enforced through the session tracker.
type TokenSvc interface {
	// IssuePair signs a fresh access/refresh pair for the account.
	IssuePair(userID, email string) (*domain.TokenPair, error)

	// VerifyAccess accepts only access tokens.
	VerifyAccess(token string) (*domain.TokenPayload, error)

	// VerifyRefresh accepts only refresh tokens.
	VerifyRefresh(token string) (*domain.TokenPayload, error)
}
