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
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
)

const (
	maxNameLength     = 50
	maxBioLength      = 500
	maxLocationLength = 100
)

var errIncorrectPassword = apperrors.ErrInvalidInput.
	WithMessage("password is incorrect").
	WithFields(apperrors.FieldError{Code: apperrors.CodeInvalidCredentials, Field: "password", Message: "password is incorrect"})

// profileService manages the public profile and account removal.
type profileService struct {
	BaseService
	accountRepo portsrepo.AuthAccountRepositoryFacade
	profileRepo portsrepo.ProfileRepositoryFacade
	sessions    portssvc.SessionSvcFacade
	tracker     portssvc.EventTracker
}

// ProfileServiceOption customizes the profile service.
type ProfileServiceOption func(*profileService)

// WithProfileEventTracker sets the analytics sink.
func WithProfileEventTracker(tracker portssvc.EventTracker) ProfileServiceOption {
	return func(s *profileService) {
		s.tracker = tracker
	}
}

// WithProfileClock overrides the clock used for timestamps.
func WithProfileClock(now func() time.Time) ProfileServiceOption {
	return func(s *profileService) {
		s.BaseService = newBaseService(now)
	}
}

// NewProfileService creates a new profile service.
func NewProfileService(repos portsrepo.RepositoryProvider, sessions portssvc.SessionSvcFacade, opts ...ProfileServiceOption) portssvc.ProfileSvcFacade {
	s := &profileService{
		BaseService: newBaseService(nil),
		accountRepo: repos.AuthAccountRepo,
		profileRepo: repos.ProfileRepo,
		sessions:    sessions,
		tracker:     discardTracker{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.ProfileSvcFacade = (*profileService)(nil)

// GetAccountWithProfile loads the account and its public profile for the
// /me response. A verified account without a profile is reported as
// ErrProfileNotFound.
func (s *profileService) GetAccountWithProfile(ctx context.Context, accountID string) (*domain.AuthAccount, *domain.Profile, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrAccountNotFound
		}
		s.LogError(ctx, err, "Failed to load account", slog.String("auth_account_id", accountID))
		return nil, nil, apperrors.NewInternalError("failed to load account", err)
	}
	profile, err := s.loadProfile(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	return account, profile, nil
}

// UpdateProfile applies the non-nil fields of update. Username is changed
// only through ChangeUsername.
func (s *profileService) UpdateProfile(ctx context.Context, accountID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if err := validateProfileUpdate(update); err != nil {
		return nil, err
	}
	profile, err := s.loadProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		profile.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		profile.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Avatar != nil {
		profile.Avatar = emptyToNil(*update.Avatar)
	}
	if update.Bio != nil {
		profile.Bio = emptyToNil(*update.Bio)
	}
	if update.DOB != nil {
		dob := *update.DOB
		profile.DOB = &dob
	}
	if update.Location != nil {
		profile.Location = emptyToNil(*update.Location)
	}
	if update.SocialAccounts != nil {
		profile.SocialAccounts = append([]domain.SocialAccount{}, update.SocialAccounts...)
	}
	// Preferences merge: an empty theme or font keeps the current value
	if update.Preferences != nil {
		prefs := *update.Preferences
		if prefs.Theme == "" {
			prefs.Theme = profile.Preferences.Theme
		}
		if prefs.Font == "" {
			prefs.Font = profile.Preferences.Font
		}
		profile.Preferences = prefs
	}
	profile.UpdatedAt = s.Now()

	if err := s.profileRepo.UpdateProfile(ctx, *profile); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrProfileNotFound
		}
		s.LogError(ctx, err, "Failed to update profile", slog.String("auth_account_id", accountID))
		return nil, apperrors.NewInternalError("failed to update profile", err)
	}
	s.LogInfo(ctx, "Profile updated", slog.String("auth_account_id", accountID))
	return profile, nil
}

// ChangeUsername sets a new username once. The flag check and the write are
// a single conditional update in the repository.
func (s *profileService) ChangeUsername(ctx context.Context, accountID string, username string) (*domain.Profile, error) {
	current, err := s.loadProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if current.HasChangedUsername {
		return nil, apperrors.ErrUsernameAlreadyChanged
	}

	username = utils.NormalizeUsername(username)
	if !utils.IsValidUsername(username) {
		return nil, apperrors.ErrInvalidInput.WithFields(apperrors.FieldError{
			Code:    apperrors.CodeInvalidInput,
			Field:   "username",
			Message: "username must be 3-30 characters of lowercase letters, digits or underscores",
		})
	}

	applied, err := s.profileRepo.ChangeUsernameOnce(ctx, accountID, username, s.Now())
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.ErrUsernameTaken
		}
		s.LogError(ctx, err, "Failed to change username", slog.String("auth_account_id", accountID))
		return nil, apperrors.NewInternalError("failed to change username", err)
	}
	if !applied {
		return nil, apperrors.ErrUsernameAlreadyChanged
	}

	s.LogInfo(ctx, "Username changed", slog.String("auth_account_id", accountID), slog.String("username", username))
	s.tracker.Track(accountID, "username_changed", nil)
	return s.loadProfile(ctx, accountID)
}

// DeleteUser revokes every session and removes the account. Profile,
// identities and sessions go with it.
func (s *profileService) DeleteUser(ctx context.Context, accountID string, password string) error {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrAccountNotFound
		}
		s.LogError(ctx, err, "Failed to load account", slog.String("auth_account_id", accountID))
		return apperrors.NewInternalError("failed to delete account", err)
	}
	// Password accounts confirm with their password; OAuth-only accounts rely on the access token
	if account.HasPassword {
		if password == "" || account.PasswordHash == nil || !utils.CheckPasswordHash(password, *account.PasswordHash) {
			return errIncorrectPassword
		}
	}

	// Revoke first so cached sessions stop working even if the delete fails
	if _, err := s.sessions.RevokeAllSessions(ctx, accountID, ""); err != nil {
		return err
	}
	if err := s.accountRepo.DeleteAccount(ctx, accountID, s.Now()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrAccountNotFound
		}
		s.LogError(ctx, err, "Failed to delete account", slog.String("auth_account_id", accountID))
		return apperrors.NewInternalError("failed to delete account", err)
	}

	s.LogInfo(ctx, "Account deleted", slog.String("auth_account_id", accountID))
	s.tracker.Track(accountID, "account_deleted", nil)
	return nil
}

func (s *profileService) loadProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	profile, err := s.profileRepo.FindProfileByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrProfileNotFound
		}
		s.LogError(ctx, err, "Failed to load profile", slog.String("auth_account_id", accountID))
		return nil, apperrors.NewInternalError("failed to load profile", err)
	}
	return profile, nil
}

func validateProfileUpdate(update domain.ProfileUpdate) error {
	var fields []apperrors.FieldError
	check := func(field string, value *string, max int) {
		if value != nil && len(strings.TrimSpace(*value)) > max {
			fields = append(fields, apperrors.FieldError{Code: apperrors.CodeInvalidInput, Field: field, Message: field + " is too long"})
		}
	}
	check("firstName", update.FirstName, maxNameLength)
	check("lastName", update.LastName, maxNameLength)
	check("bio", update.Bio, maxBioLength)
	check("location", update.Location, maxLocationLength)
	if update.FirstName != nil && strings.TrimSpace(*update.FirstName) == "" {
		fields = append(fields, apperrors.FieldError{Code: apperrors.CodeInvalidInput, Field: "firstName", Message: "firstName must not be empty"})
	}
	if update.DOB != nil && update.DOB.After(time.Now()) {
		fields = append(fields, apperrors.FieldError{Code: apperrors.CodeInvalidInput, Field: "dob", Message: "dob must be in the past"})
	}
	for _, sa := range update.SocialAccounts {
		if strings.TrimSpace(sa.Provider) == "" || strings.TrimSpace(sa.URL) == "" {
			fields = append(fields, apperrors.FieldError{Code: apperrors.CodeInvalidInput, Field: "socialAccounts", Message: "social accounts need a provider and a url"})
			break
		}
	}
	if len(fields) > 0 {
		return apperrors.ErrInvalidInput.WithFields(fields...)
	}
	return nil
}

func emptyToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
