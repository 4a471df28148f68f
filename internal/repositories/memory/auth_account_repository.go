package memory

import (
	"context"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
)

// AuthAccountRepository is the in-memory AuthAccountRepositoryFacade.
type AuthAccountRepository struct {
	store *Store
}

var _ portsrepo.AuthAccountRepositoryFacade = (*AuthAccountRepository)(nil)

func (r *AuthAccountRepository) FindAccountByID(_ context.Context, accountID string) (*domain.AuthAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *AuthAccountRepository) FindAccountByEmail(_ context.Context, email string) (*domain.AuthAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneAccount(r.store.accounts[id]), nil
}

func (r *AuthAccountRepository) SaveAccount(_ context.Context, account domain.AuthAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := domain.NormalizeEmail(account.Email)
	if _, taken := r.store.emails[key]; taken {
		return apperrors.ErrDuplicate
	}
	if _, taken := r.store.accounts[account.AuthAccountID]; taken {
		return apperrors.ErrDuplicate
	}
	seen := make(map[domain.Provider]bool, len(account.Identities))
	for _, id := range account.Identities {
		if seen[id.Provider] {
			return apperrors.ErrDuplicate
		}
		seen[id.Provider] = true
	}
	account.HasPassword = account.PasswordHash != nil
	r.store.accounts[account.AuthAccountID] = cloneAccount(&account)
	r.store.emails[key] = account.AuthAccountID
	return nil
}

func (r *AuthAccountRepository) UpdateAccount(_ context.Context, account domain.AuthAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[account.AuthAccountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.IsVerified = account.IsVerified
	a.VerificationCode = account.VerificationCode
	a.VerificationCodeExpiry = account.VerificationCodeExpiry
	a.VerificationAttempts = account.VerificationAttempts
	a.ResetPasswordTokenHash = account.ResetPasswordTokenHash
	a.ResetPasswordTokenExpiry = account.ResetPasswordTokenExpiry
	a.PendingProfile = nil
	if account.PendingProfile != nil {
		pp := *account.PendingProfile
		a.PendingProfile = &pp
	}
	a.UpdatedAt = account.UpdatedAt
	return nil
}

func (r *AuthAccountRepository) RecordFailedVerification(_ context.Context, accountID string, maxAttempts int, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok || a.VerificationCode == nil {
		return 0, apperrors.ErrNotFound
	}
	a.VerificationAttempts++
	if a.VerificationAttempts >= maxAttempts {
		a.VerificationCode = nil
		a.VerificationCodeExpiry = nil
	}
	a.UpdatedAt = at
	return a.VerificationAttempts, nil
}

func (r *AuthAccountRepository) AddIdentity(_ context.Context, accountID string, identity domain.Identity) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if a.HasIdentity(identity.Provider) {
		return apperrors.ErrDuplicate
	}
	if identity.IsPrimary {
		if _, hasPrimary := a.PrimaryIdentity(); hasPrimary {
			return apperrors.ErrDuplicate
		}
	}
	a.Identities = append(a.Identities, identity)
	return nil
}

func (r *AuthAccountRepository) ClaimUnverifiedAccount(_ context.Context, accountID string, identity domain.Identity, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok || a.IsVerified {
		return false, nil
	}

	kept := make([]domain.Identity, 0, len(a.Identities)+1)
	for _, id := range a.Identities {
		if !id.IsVerified {
			continue
		}
		if id.Provider == identity.Provider {
			return false, apperrors.ErrDuplicate
		}
		kept = append(kept, id)
	}
	identity.IsPrimary = true
	a.Identities = append(kept, identity)

	a.PasswordHash = nil
	a.HasPassword = false
	a.IsVerified = true
	a.VerificationCode = nil
	a.VerificationCodeExpiry = nil
	a.VerificationAttempts = 0
	a.ResetPasswordTokenHash = nil
	a.ResetPasswordTokenExpiry = nil
	a.PendingProfile = nil
	a.UpdatedAt = at
	return true, nil
}

func (r *AuthAccountRepository) MarkIdentityVerified(_ context.Context, accountID string, provider domain.Provider) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	id, ok := a.IdentityFor(provider)
	if !ok {
		return apperrors.ErrNotFound
	}
	id.IsVerified = true
	return nil
}

func (r *AuthAccountRepository) SetPasswordIfAbsent(_ context.Context, accountID string, passwordHash string, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok || a.PasswordHash != nil {
		return false, nil
	}
	a.PasswordHash = &passwordHash
	a.HasPassword = true
	a.UpdatedAt = at
	return true, nil
}

func (r *AuthAccountRepository) UpdatePassword(_ context.Context, accountID string, passwordHash string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.PasswordHash = &passwordHash
	a.HasPassword = true
	a.UpdatedAt = at
	return nil
}

func (r *AuthAccountRepository) RecordLogin(_ context.Context, accountID string, provider domain.Provider, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.LastLoginAt = &at
	a.LastLoginProvider = &provider
	a.UpdatedAt = at
	return nil
}

func (r *AuthAccountRepository) DeleteAccount(_ context.Context, accountID string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	for id, s := range r.store.sessions {
		if s.AuthAccountID == accountID {
			delete(r.store.sessions, id)
		}
	}
	delete(r.store.profiles, accountID)
	delete(r.store.emails, domain.NormalizeEmail(a.Email))
	delete(r.store.accounts, accountID)
	return nil
}
