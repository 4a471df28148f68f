package memory

import (
	"context"
	"sort"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
)

// SessionRepository is the in-memory SessionRepositoryFacade.
type SessionRepository struct {
	store *Store
}

var _ portsrepo.SessionRepositoryFacade = (*SessionRepository)(nil)

func (r *SessionRepository) FindSessionByID(_ context.Context, sessionID string) (*domain.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	s, ok := r.store.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) ListActiveSessionsByAccount(_ context.Context, accountID string) ([]domain.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.Session
	for _, s := range r.store.sessions {
		if s.AuthAccountID == accountID && s.IsActive() {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActiveAt.Equal(out[j].LastActiveAt) {
			return out[i].LastActiveAt.After(out[j].LastActiveAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SessionRepository) SaveSession(_ context.Context, session domain.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[session.AuthAccountID]; !ok {
		return apperrors.ErrNotFound
	}
	if _, exists := r.store.sessions[session.SessionID]; exists {
		return apperrors.ErrDuplicate
	}
	r.store.sessions[session.SessionID] = cloneSession(&session)
	return nil
}

func (r *SessionRepository) RevokeSession(_ context.Context, sessionID string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[sessionID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	return nil
}

func (r *SessionRepository) RevokeAllByAccount(_ context.Context, accountID string, exceptSessionID string, at time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var revoked []string
	for id, s := range r.store.sessions {
		if s.AuthAccountID != accountID || id == exceptSessionID || s.RevokedAt != nil {
			continue
		}
		revokedAt := at
		s.RevokedAt = &revokedAt
		revoked = append(revoked, id)
	}
	return revoked, nil
}

func (r *SessionRepository) TouchSession(_ context.Context, sessionID string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[sessionID]
	if !ok || s.RevokedAt != nil {
		return apperrors.ErrNotFound
	}
	if at.After(s.LastActiveAt) {
		s.LastActiveAt = at
	}
	return nil
}
