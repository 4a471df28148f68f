package oauth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
)

// gothProvider drives a goth provider through gothic, which keeps the state
// in gothic.Store.
type gothProvider struct {
	provider domain.Provider
	begin    func(http.ResponseWriter, *http.Request) (string, error)
	complete func(http.ResponseWriter, *http.Request) (goth.User, error)
}

var _ portssvc.OAuthProviderSvc = (*gothProvider)(nil)

func newGothProvider(provider domain.Provider) *gothProvider {
	return &gothProvider{
		provider: provider,
		begin:    gothic.GetAuthURL,
		complete: gothic.CompleteUserAuth,
	}
}

func (p *gothProvider) Provider() domain.Provider {
	return p.provider
}

// BeginAuth returns the provider authorization URL.
func (p *gothProvider) BeginAuth(w http.ResponseWriter, r *http.Request) (string, error) {
	r = gothic.GetContextWithProvider(r, string(p.provider))
	url, err := p.begin(w, r)
	if err != nil {
		return "", fmt.Errorf("failed to start %s authorization: %w", p.provider, err)
	}
	return url, nil
}

// CompleteAuth exchanges the callback for the upstream user.
func (p *gothProvider) CompleteAuth(w http.ResponseWriter, r *http.Request) (*domain.OAuthUserInfo, error) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		return nil, providerError(errParam)
	}

	r = gothic.GetContextWithProvider(r, string(p.provider))
	user, err := p.complete(w, r)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "state token mismatch") || strings.Contains(msg, "could not find a matching session") {
			return nil, fmt.Errorf("%w: %v", portssvc.ErrOAuthInvalidState, err)
		}
		return nil, fmt.Errorf("%w: %v", portssvc.ErrOAuthFailed, err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, portssvc.ErrOAuthEmailUnavailable
	}

	firstName, lastName := user.FirstName, user.LastName
	if firstName == "" && lastName == "" {
		firstName, lastName = splitName(user.Name)
	}
	if firstName == "" {
		firstName = user.NickName
	}
	return &domain.OAuthUserInfo{
		Provider:      p.provider,
		ProviderID:    user.UserID,
		Email:         user.Email,
		EmailVerified: true,
		FirstName:     firstName,
		LastName:      lastName,
		AvatarURL:     user.AvatarURL,
	}, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
