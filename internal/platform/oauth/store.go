package oauth

import (
	"net/http"

	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/gorilla/sessions"
)

// stateMaxAge bounds how long a user may spend on the provider's consent page.
const stateMaxAge = 300

// NewStateStore creates the signed cookie store holding transient OAuth state.
func NewStateStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
