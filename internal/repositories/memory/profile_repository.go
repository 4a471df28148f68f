package memory

import (
	"context"
	"strings"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
)

// ProfileRepository is the in-memory ProfileRepositoryFacade.
type ProfileRepository struct {
	store *Store
}

var _ portsrepo.ProfileRepositoryFacade = (*ProfileRepository)(nil)

func (r *ProfileRepository) FindProfileByAccountID(_ context.Context, accountID string) (*domain.Profile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.profiles[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *ProfileRepository) FindProfileByUsername(_ context.Context, username string) (*domain.Profile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if p := r.byUsername(username); p != nil {
		return cloneProfile(p), nil
	}
	return nil, apperrors.ErrNotFound
}

func (r *ProfileRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.byUsername(username) != nil, nil
}

// byUsername must be called with the store lock held.
func (r *ProfileRepository) byUsername(username string) *domain.Profile {
	for _, p := range r.store.profiles {
		if strings.EqualFold(p.Username, username) {
			return p
		}
	}
	return nil
}

func (r *ProfileRepository) SaveProfile(_ context.Context, profile domain.Profile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[profile.AuthAccountID]; !ok {
		return apperrors.ErrNotFound
	}
	if _, exists := r.store.profiles[profile.AuthAccountID]; exists {
		return apperrors.ErrDuplicate
	}
	if r.byUsername(profile.Username) != nil {
		return apperrors.ErrDuplicate
	}
	r.store.profiles[profile.AuthAccountID] = cloneProfile(&profile)
	return nil
}

func (r *ProfileRepository) UpdateProfile(_ context.Context, profile domain.Profile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.profiles[profile.AuthAccountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	updated := cloneProfile(&profile)
	updated.Username = p.Username
	updated.HasChangedUsername = p.HasChangedUsername
	updated.CreatedAt = p.CreatedAt
	r.store.profiles[profile.AuthAccountID] = updated
	return nil
}

func (r *ProfileRepository) ChangeUsernameOnce(_ context.Context, accountID string, username string, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.profiles[accountID]
	if !ok || p.HasChangedUsername {
		return false, nil
	}
	if other := r.byUsername(username); other != nil && other.AuthAccountID != accountID {
		return false, apperrors.ErrDuplicate
	}
	p.Username = username
	p.HasChangedUsername = true
	p.UpdatedAt = at
	return true, nil
}
