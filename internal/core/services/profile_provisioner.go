package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
	"github.com/google/uuid"
)

const maxUsernameAttempts = 8

// profileProvisioner creates the 1:1 profile of an account with a generated
// username. Shared by account linking and email verification.
type profileProvisioner struct {
	BaseService
	profileRepo portsrepo.ProfileRepositoryFacade
}

// ensureProfile returns the account's profile, creating it when missing.
// Existing profiles only get empty names backfilled.
func (p *profileProvisioner) ensureProfile(ctx context.Context, accountID, firstName, lastName, avatar string) (*domain.Profile, error) {
	existing, err := p.profileRepo.FindProfileByAccountID(ctx, accountID)
	switch {
	case err == nil:
		return p.backfillNames(ctx, existing, firstName, lastName)
	case !errors.Is(err, apperrors.ErrNotFound):
		p.LogError(ctx, err, "Failed to load profile", slog.String("auth_account_id", accountID))
		return nil, apperrors.NewInternalError("failed to load profile", err)
	}

	now := p.Now()
	profile := domain.Profile{
		ProfileID:      uuid.NewString(),
		AuthAccountID:  accountID,
		FirstName:      strings.TrimSpace(firstName),
		LastName:       strings.TrimSpace(lastName),
		SocialAccounts: []domain.SocialAccount{},
		Preferences:    domain.DefaultPreferences(),
		Timestamps:     domain.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if avatar != "" {
		profile.Avatar = &avatar
	}

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username, err := p.freeUsername(ctx, firstName)
		if err != nil {
			return nil, err
		}
		profile.Username = username

		err = p.profileRepo.SaveProfile(ctx, profile)
		if err == nil {
			p.LogInfo(ctx, "Profile created", slog.String("auth_account_id", accountID), slog.String("username", username))
			return &profile, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicate) {
			p.LogError(ctx, err, "Failed to save profile", slog.String("auth_account_id", accountID))
			return nil, apperrors.NewInternalError("failed to create profile", err)
		}
		// Either the username was taken in between or a concurrent request
		// created the profile first.
		if concurrent, findErr := p.profileRepo.FindProfileByAccountID(ctx, accountID); findErr == nil {
			return concurrent, nil
		}
	}
	return nil, apperrors.NewInternalError("failed to allocate a unique username", nil)
}

func (p *profileProvisioner) freeUsername(ctx context.Context, firstName string) (string, error) {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate, err := utils.GenerateUsername(firstName)
		if err != nil {
			return "", apperrors.NewInternalError("failed to generate username", err)
		}
		taken, err := p.profileRepo.UsernameExists(ctx, candidate)
		if err != nil {
			p.LogError(ctx, err, "Failed to check username availability")
			return "", apperrors.NewInternalError("failed to generate username", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", apperrors.NewInternalError("failed to allocate a unique username", nil)
}

// backfillNames fills empty first/last names. User-entered names are never
// overwritten.
func (p *profileProvisioner) backfillNames(ctx context.Context, profile *domain.Profile, firstName, lastName string) (*domain.Profile, error) {
	changed := false
	if profile.FirstName == "" && strings.TrimSpace(firstName) != "" {
		profile.FirstName = strings.TrimSpace(firstName)
		changed = true
	}
	if profile.LastName == "" && strings.TrimSpace(lastName) != "" {
		profile.LastName = strings.TrimSpace(lastName)
		changed = true
	}
	if !changed {
		return profile, nil
	}
	profile.UpdatedAt = p.Now()
	if err := p.profileRepo.UpdateProfile(ctx, *profile); err != nil {
		p.LogError(ctx, err, "Failed to backfill profile names", slog.String("auth_account_id", profile.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to update profile", err)
	}
	return profile, nil
}

func expiryFrom(now time.Time, ttl time.Duration) *time.Time {
	t := now.Add(ttl)
	return &t
}

// issueVerificationCode stores the hash of a fresh code on the account and
// returns the plaintext.
func issueVerificationCode(account *domain.AuthAccount, now time.Time, ttl time.Duration) (string, error) {
	code, err := utils.GenerateNumericCode(verificationCodeDigits)
	if err != nil {
		return "", apperrors.NewInternalError("failed to generate verification code", err)
	}
	hashed := utils.HashToken(code)
	account.VerificationCode = &hashed
	account.VerificationCodeExpiry = expiryFrom(now, ttl)
	account.VerificationAttempts = 0
	account.UpdatedAt = now
	return code, nil
}
