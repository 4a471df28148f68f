package services

import (
	"fmt"

	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
)

// Dependencies are the adapters the services talk to besides repositories.
// Nil fields fall back to no-op implementations.
type Dependencies struct {
	SessionCache   portsrepo.SessionCache
	Mailer         portssvc.Mailer
	Tracker        portssvc.EventTracker
	OAuthProviders portssvc.OAuthProviderRegistry
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, deps Dependencies) (*portssvc.ServiceContainer, error) {
	container := &portssvc.ServiceContainer{OAuthProviders: deps.OAuthProviders}

	tokens, err := NewTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	container.Token = tokens

	var sessionOpts []SessionServiceOption
	if deps.SessionCache != nil {
		sessionOpts = append(sessionOpts, WithSessionCache(deps.SessionCache))
	}
	container.Session = NewSessionService(repos.SessionRepo, sessionOpts...)

	container.AccountLinking = NewAccountLinkingService(cfg, repos.AuthAccountRepo, repos.ProfileRepo)

	authOpts := []AuthServiceOption{}
	profileOpts := []ProfileServiceOption{}
	if deps.Mailer != nil {
		authOpts = append(authOpts, WithMailer(deps.Mailer))
	}
	if deps.Tracker != nil {
		authOpts = append(authOpts, WithEventTracker(deps.Tracker))
		profileOpts = append(profileOpts, WithProfileEventTracker(deps.Tracker))
	}
	container.Auth = NewAuthService(cfg, repos, container.Token, container.Session, container.AccountLinking, authOpts...)
	container.Profile = NewProfileService(repos, container.Session, profileOpts...)

	return container, nil
}
