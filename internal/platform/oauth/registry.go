package oauth

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/github"
)

// Registry holds the providers that have credentials configured.
type Registry struct {
	providers map[domain.Provider]portssvc.OAuthProviderSvc
}

var _ portssvc.OAuthProviderRegistry = (*Registry)(nil)

// NewRegistry builds providers from configuration. Providers without
// credentials are skipped.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	store := NewStateStore(cfg)
	gothic.Store = store
	reg := &Registry{providers: make(map[domain.Provider]portssvc.OAuthProviderSvc)}

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		p, err := NewGoogleProvider(cfg, store)
		if err != nil {
			return nil, err
		}
		reg.Register(p)
	}

	client := &http.Client{Timeout: cfg.OAuthHTTPTimeout}
	var gothProviders []goth.Provider
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		gh := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, callbackURL(cfg, domain.ProviderGitHub), "user:email")
		gh.HTTPClient = client
		gothProviders = append(gothProviders, gh)
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		fb := facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, callbackURL(cfg, domain.ProviderFacebook), "email", "public_profile")
		fb.HTTPClient = client
		gothProviders = append(gothProviders, fb)
	}
	if len(gothProviders) > 0 {
		goth.UseProviders(gothProviders...)
		for _, gp := range gothProviders {
			reg.Register(newGothProvider(domain.Provider(gp.Name())))
		}
	}

	names := make([]string, 0, len(reg.providers))
	for p := range reg.providers {
		names = append(names, string(p))
	}
	slog.Info("OAuth providers configured", slog.Any("providers", names))
	return reg, nil
}

// Register adds or replaces a provider.
func (r *Registry) Register(p portssvc.OAuthProviderSvc) {
	r.providers[p.Provider()] = p
}

// Get returns the provider if it is configured.
func (r *Registry) Get(provider domain.Provider) (portssvc.OAuthProviderSvc, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.providers[provider]
	return p, ok
}

func callbackURL(cfg *config.Config, provider domain.Provider) string {
	return fmt.Sprintf("%s/api/v1/oauth/%s/callback", cfg.OAuthCallbackBaseURL, provider)
}

// NewStaticRegistry creates a registry over already built providers.
func NewStaticRegistry(providers ...portssvc.OAuthProviderSvc) *Registry {
	reg := &Registry{providers: make(map[domain.Provider]portssvc.OAuthProviderSvc, len(providers))}
	for _, p := range providers {
		reg.Register(p)
	}
	return reg
}
