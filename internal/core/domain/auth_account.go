package domain

import (
	"strings"
	"time"
)

// Provider identifies how a person proved who they are.
type Provider string

const (
	ProviderEmail    Provider = "email"
	ProviderGoogle   Provider = "google"
	ProviderGitHub   Provider = "github"
	ProviderFacebook Provider = "facebook"
)

// IsOAuth reports whether the provider is an upstream OAuth provider.
func (p Provider) IsOAuth() bool {
	switch p {
	case ProviderGoogle, ProviderGitHub, ProviderFacebook:
		return true
	default:
		return false
	}
}

// IsValid reports whether p is one of the supported providers.
func (p Provider) IsValid() bool {
	return p == ProviderEmail || p.IsOAuth()
}

// DisplayName is the provider name shown to users ("use Google to log in").
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderGitHub:
		return "GitHub"
	case ProviderFacebook:
		return "Facebook"
	case ProviderEmail:
		return "email and password"
	default:
		return string(p)
	}
}

// Identity is one linked sign-in method of an AuthAccount.
type Identity struct {
	IdentityID    string    `json:"identityId"`
	Provider      Provider  `json:"provider"`
	ProviderID    string    `json:"providerId"`
	ProviderEmail string    `json:"providerEmail"`
	IsVerified    bool      `json:"isVerified"`
	IsPrimary     bool      `json:"isPrimary"`
	LinkedAt      time.Time `json:"linkedAt"`
}

// PendingProfile carries the names entered at password signup until the
// profile is created on email verification.
type PendingProfile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AuthAccount is the single canonical account of a person, keyed by email.
type AuthAccount struct {
	AuthAccountID string     `json:"authAccountId"`
	Email         string     `json:"email"`
	PasswordHash  *string    `json:"-"`
	IsVerified    bool       `json:"isVerified"`
	HasPassword   bool       `json:"hasPassword"`
	Identities    []Identity `json:"identities"`

	VerificationCode       *string    `json:"-"`
	VerificationCodeExpiry *time.Time `json:"-"`
	VerificationAttempts   int        `json:"-"` // failed guesses against the current code

	ResetPasswordTokenHash   *string    `json:"-"`
	ResetPasswordTokenExpiry *time.Time `json:"-"`

	PendingProfile *PendingProfile `json:"-"`

	LastLoginAt       *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginProvider *Provider  `json:"lastLoginProvider,omitempty"`
	Timestamps
}

// NormalizeEmail is the canonical form used as the identity-merge key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IdentityFor returns the identity linked for the provider, if any.
func (a *AuthAccount) IdentityFor(p Provider) (*Identity, bool) {
	for i := range a.Identities {
		if a.Identities[i].Provider == p {
			return &a.Identities[i], true
		}
	}
	return nil, false
}

// HasIdentity reports whether a provider is already linked.
func (a *AuthAccount) HasIdentity(p Provider) bool {
	_, ok := a.IdentityFor(p)
	return ok
}

// PrimaryIdentity returns the identity the account was created with.
func (a *AuthAccount) PrimaryIdentity() (*Identity, bool) {
	for i := range a.Identities {
		if a.Identities[i].IsPrimary {
			return &a.Identities[i], true
		}
	}
	return nil, false
}

// PrimaryProvider is the provider of the primary identity, or email when the
// account has none recorded.
func (a *AuthAccount) PrimaryProvider() Provider {
	if id, ok := a.PrimaryIdentity(); ok {
		return id.Provider
	}
	return ProviderEmail
}
