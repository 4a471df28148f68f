package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

const (
	googleStateSession = "saas_auth_google_state"
	googleStateKey     = "state"
)

// idTokenValidator checks a Google ID token for the given audience.
type idTokenValidator func(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)

// googleProvider runs the authorization-code flow against Google and trusts
// only the identity asserted by the validated ID token.
type googleProvider struct {
	oauth2Config *oauth2.Config
	clientID     string
	store        sessions.Store
	httpClient   *http.Client
	timeout      time.Duration
	validate     idTokenValidator
}

var _ portssvc.OAuthProviderSvc = (*googleProvider)(nil)

// NewGoogleProvider creates the Google provider.
func NewGoogleProvider(cfg *config.Config, store sessions.Store) (portssvc.OAuthProviderSvc, error) {
	client := &http.Client{Timeout: cfg.OAuthHTTPTimeout}
	validator, err := idtoken.NewValidator(context.Background(), option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create google id token validator: %w", err)
	}
	return newGoogleProvider(cfg, store, client, validator.Validate), nil
}

func newGoogleProvider(cfg *config.Config, store sessions.Store, client *http.Client, validate idTokenValidator) *googleProvider {
	return &googleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		clientID:   cfg.GoogleClientID,
		store:      store,
		httpClient: client,
		timeout:    cfg.OAuthHTTPTimeout,
		validate:   validate,
	}
}

func (p *googleProvider) Provider() domain.Provider {
	return domain.ProviderGoogle
}

// BeginAuth stores a random state in a signed cookie and returns the consent URL.
func (p *googleProvider) BeginAuth(w http.ResponseWriter, r *http.Request) (string, error) {
	state, err := utils.GenerateSecureRandomString(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	session, _ := p.store.Get(r, googleStateSession)
	session.Values[googleStateKey] = state
	if err := session.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return p.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// CompleteAuth checks the state, exchanges the code and validates the ID token.
func (p *googleProvider) CompleteAuth(w http.ResponseWriter, r *http.Request) (*domain.OAuthUserInfo, error) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		return nil, providerError(errParam)
	}

	session, err := p.store.Get(r, googleStateSession)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", portssvc.ErrOAuthInvalidState, err)
	}
	expected, _ := session.Values[googleStateKey].(string)
	got := query.Get("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return nil, portssvc.ErrOAuthInvalidState
	}
	// The state is single-use.
	delete(session.Values, googleStateKey)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", portssvc.ErrOAuthFailed)
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange oauth code for token: %v", portssvc.ErrOAuthFailed, err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", portssvc.ErrOAuthFailed)
	}

	payload, err := p.validate(ctx, rawIDToken, p.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: google ID token validation failed: %v", portssvc.ErrOAuthFailed, err)
	}
	return userInfoFromGoogleClaims(payload)
}

func userInfoFromGoogleClaims(payload *idtoken.Payload) (*domain.OAuthUserInfo, error) {
	claim := func(key string) string {
		v, _ := payload.Claims[key].(string)
		return v
	}
	email := claim("email")
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, portssvc.ErrOAuthEmailUnavailable
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: id token has no subject", portssvc.ErrOAuthFailed)
	}
	return &domain.OAuthUserInfo{
		Provider:      domain.ProviderGoogle,
		ProviderID:    payload.Subject,
		Email:         email,
		EmailVerified: verified,
		FirstName:     claim("given_name"),
		LastName:      claim("family_name"),
		AvatarURL:     claim("picture"),
	}, nil
}

// providerError maps the provider's error query parameter.
func providerError(errParam string) error {
	if errParam == "access_denied" {
		return portssvc.ErrOAuthCancelled
	}
	return errors.Join(portssvc.ErrOAuthFailed, fmt.Errorf("provider error: %s", errParam))
}
