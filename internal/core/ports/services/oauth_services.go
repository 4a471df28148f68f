package services

import (
	"errors"
	"net/http"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// OAuthProviderSvc drives one upstream provider's redirect flow.
type OAuthProviderSvc interface {
	Provider() domain.Provider

	// BeginAuth stores whatever transient state the flow needs on the
	// response and returns the provider URL to redirect to.
	BeginAuth(w http.ResponseWriter, r *http.Request) (string, error)

	// CompleteAuth validates the callback request and returns the identity
	// the provider asserted. Outbound calls are bounded by a timeout.
	CompleteAuth(w http.ResponseWriter, r *http.Request) (*domain.OAuthUserInfo, error)
}

// OAuthProviderRegistry looks configured providers up by name.
type OAuthProviderRegistry interface {
	Get(provider domain.Provider) (OAuthProviderSvc, bool)
}

// Failures reported by OAuthProviderSvc.CompleteAuth. Handlers turn them into
// login redirect codes.
var (
	ErrOAuthCancelled        = errors.New("oauth: user cancelled the authorization")
	ErrOAuthInvalidState     = errors.New("oauth: state mismatch")
	ErrOAuthFailed           = errors.New("oauth: provider exchange failed")
	ErrOAuthEmailUnavailable = errors.New("oauth: provider returned no usable email")
)
