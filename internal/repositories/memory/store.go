// Package memory provides in-process repositories used for local development
// (STORAGE_DRIVER=memory) and by scenario tests. A single Store backs all
// repositories so account deletion can cascade to profiles and sessions.
package memory

import (
	"sync"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
)

// Store holds all records behind one lock, the way a single database would.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*domain.AuthAccount // by account id
	emails   map[string]string              // normalized email -> account id
	profiles map[string]*domain.Profile     // by account id
	sessions map[string]*domain.Session     // by session id
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.AuthAccount),
		emails:   make(map[string]string),
		profiles: make(map[string]*domain.Profile),
		sessions: make(map[string]*domain.Session),
	}
}

// NewRepositoryProvider wires in-memory repositories over a fresh store.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return NewStore().RepositoryProvider()
}

// RepositoryProvider returns repositories backed by s.
func (s *Store) RepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AuthAccountRepo: &AuthAccountRepository{store: s},
		ProfileRepo:     &ProfileRepository{store: s},
		SessionRepo:     &SessionRepository{store: s},
	}
}

func cloneAccount(a *domain.AuthAccount) *domain.AuthAccount {
	cp := *a
	cp.Identities = append([]domain.Identity(nil), a.Identities...)
	if a.PendingProfile != nil {
		pp := *a.PendingProfile
		cp.PendingProfile = &pp
	}
	return &cp
}

func cloneProfile(p *domain.Profile) *domain.Profile {
	cp := *p
	cp.SocialAccounts = append([]domain.SocialAccount{}, p.SocialAccounts...)
	return &cp
}

func cloneSession(s *domain.Session) *domain.Session {
	cp := *s
	if s.RevokedAt != nil {
		t := *s.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}
