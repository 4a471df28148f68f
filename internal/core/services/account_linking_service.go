package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/SscSPs/saas_starter_auth/internal/platform/metrics"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
	"github.com/google/uuid"
)

const verificationCodeDigits = 6

var errWeakPassword = apperrors.ErrInvalidInput.WithFields(apperrors.FieldError{
	Code:    apperrors.CodeInvalidInput,
	Field:   "password",
	Message: "password must be at least 8 characters and contain a letter and a digit",
})

// accountLinkingService keeps exactly one AuthAccount per normalized email
// and merges provider identities into it.
type accountLinkingService struct {
	BaseService
	accountRepo     portsrepo.AuthAccountRepositoryFacade
	profiles        *profileProvisioner
	allowCrossLink  bool
	verificationTTL time.Duration
}

// AccountLinkingOption customizes the account linking service.
type AccountLinkingOption func(*accountLinkingService)

// WithLinkingClock overrides the clock used for timestamps and code expiry.
func WithLinkingClock(now func() time.Time) AccountLinkingOption {
	return func(s *accountLinkingService) {
		s.BaseService = newBaseService(now)
		s.profiles.BaseService = s.BaseService
	}
}

// NewAccountLinkingService creates the account linking service.
func NewAccountLinkingService(cfg *config.Config, accountRepo portsrepo.AuthAccountRepositoryFacade, profileRepo portsrepo.ProfileRepositoryFacade, opts ...AccountLinkingOption) portssvc.AccountLinkingSvc {
	base := newBaseService(nil)
	s := &accountLinkingService{
		BaseService:     base,
		accountRepo:     accountRepo,
		profiles:        &profileProvisioner{BaseService: base, profileRepo: profileRepo},
		allowCrossLink:  cfg.AllowCrossProviderLinking,
		verificationTTL: cfg.VerificationCodeTTL,
	}
	if s.verificationTTL <= 0 {
		s.verificationTTL = 15 * time.Minute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.AccountLinkingSvc = (*accountLinkingService)(nil)

// ResolveOAuthLogin maps an upstream identity onto an account.
func (s *accountLinkingService) ResolveOAuthLogin(ctx context.Context, info domain.OAuthUserInfo) (*domain.LinkResult, error) {
	if !info.Provider.IsOAuth() {
		return nil, apperrors.ErrInvalidInput.WithMessage("unsupported provider")
	}
	email := domain.NormalizeEmail(info.Email)
	if email == "" {
		return nil, apperrors.ErrInvalidInput.WithMessage("provider did not return an email address")
	}
	info.Email = email

	result, err := s.resolveOAuth(ctx, info, true)
	metrics.RecordAuthEvent("oauth_"+string(info.Provider), err)
	return result, err
}

func (s *accountLinkingService) resolveOAuth(ctx context.Context, info domain.OAuthUserInfo, retryOnRace bool) (*domain.LinkResult, error) {
	logger := s.GetLogger(ctx).With(slog.String("provider", string(info.Provider)))

	account, err := s.accountRepo.FindAccountByEmail(ctx, info.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to look up account by email")
			return nil, apperrors.NewInternalError("failed to resolve account", err)
		}
		result, createErr := s.createOAuthAccount(ctx, info)
		if errors.Is(createErr, apperrors.ErrDuplicate) {
			if retryOnRace {
				// A concurrent request created the account; resolve against it.
				return s.resolveOAuth(ctx, info, false)
			}
			return nil, apperrors.NewInternalError("failed to create account", createErr)
		}
		return result, createErr
	}

	if account.HasIdentity(info.Provider) {
		if err := s.recordLogin(ctx, account, info.Provider); err != nil {
			return nil, err
		}
		profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, info.FirstName, info.LastName, info.AvatarURL)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "OAuth login", slog.String("auth_account_id", account.AuthAccountID))
		return &domain.LinkResult{Account: account, Profile: profile, Outcome: domain.LinkOutcomeLogin}, nil
	}

	now := s.Now()
	identity := domain.Identity{
		IdentityID:    uuid.NewString(),
		Provider:      info.Provider,
		ProviderID:    info.ProviderID,
		ProviderEmail: info.Email,
		IsVerified:    true,
		IsPrimary:     false,
		LinkedAt:      now,
	}

	// Nobody has proven ownership of an unverified account, so the provider's
	// claim on the mailbox takes it over instead of merging into it.
	if !account.IsVerified {
		result, claimed, err := s.claimUnverified(ctx, account, info, identity, now)
		if err != nil || claimed {
			return result, err
		}
		// Verified meanwhile; continue as an ordinary link.
	}

	if !s.allowCrossLink {
		logger.InfoContext(ctx, "Rejected OAuth login for account registered with another provider",
			slog.String("auth_account_id", account.AuthAccountID),
			slog.String("primary_provider", string(account.PrimaryProvider())))
		return nil, providerMismatch(account)
	}

	if err := s.accountRepo.AddIdentity(ctx, account.AuthAccountID, identity); err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
		s.LogError(ctx, err, "Failed to link identity", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to link account", err)
	}

	profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, info.FirstName, info.LastName, info.AvatarURL)
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, account, info.Provider); err != nil {
		return nil, err
	}

	linked, err := s.reload(ctx, account.AuthAccountID)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Linked OAuth identity to existing account", slog.String("auth_account_id", account.AuthAccountID))
	return &domain.LinkResult{Account: linked, Profile: profile, Outcome: domain.LinkOutcomeLinked}, nil
}

// claimUnverified hands a never-verified password signup to the provider
// identity. Whoever registered the password never proved the mailbox, so the
// password, pending code and pending names are dropped and the profile takes
// the provider's names.
func (s *accountLinkingService) claimUnverified(ctx context.Context, account *domain.AuthAccount, info domain.OAuthUserInfo, identity domain.Identity, now time.Time) (*domain.LinkResult, bool, error) {
	claimed, err := s.accountRepo.ClaimUnverifiedAccount(ctx, account.AuthAccountID, identity, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to claim unverified account", slog.String("auth_account_id", account.AuthAccountID))
		return nil, false, apperrors.NewInternalError("failed to link account", err)
	}
	if !claimed {
		return nil, false, nil
	}

	profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, info.FirstName, info.LastName, info.AvatarURL)
	if err != nil {
		return nil, false, err
	}
	if err := s.recordLogin(ctx, account, info.Provider); err != nil {
		return nil, false, err
	}
	claimedAccount, err := s.reload(ctx, account.AuthAccountID)
	if err != nil {
		return nil, false, err
	}

	s.GetLogger(ctx).WarnContext(ctx, "Unverified password signup taken over by OAuth login",
		slog.String("auth_account_id", account.AuthAccountID),
		slog.String("provider", string(info.Provider)))
	return &domain.LinkResult{Account: claimedAccount, Profile: profile, Outcome: domain.LinkOutcomeLinked}, true, nil
}

func (s *accountLinkingService) createOAuthAccount(ctx context.Context, info domain.OAuthUserInfo) (*domain.LinkResult, error) {
	now := s.Now()
	provider := info.Provider
	account := domain.AuthAccount{
		AuthAccountID: uuid.NewString(),
		Email:         info.Email,
		IsVerified:    true,
		HasPassword:   false,
		Identities: []domain.Identity{{
			IdentityID:    uuid.NewString(),
			Provider:      info.Provider,
			ProviderID:    info.ProviderID,
			ProviderEmail: info.Email,
			IsVerified:    true,
			IsPrimary:     true,
			LinkedAt:      now,
		}},
		LastLoginAt:       &now,
		LastLoginProvider: &provider,
		Timestamps:        domain.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, err
		}
		s.LogError(ctx, err, "Failed to create OAuth account")
		return nil, apperrors.NewInternalError("failed to create account", err)
	}

	profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, info.FirstName, info.LastName, info.AvatarURL)
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Account created from OAuth login",
		slog.String("auth_account_id", account.AuthAccountID),
		slog.String("provider", string(info.Provider)))
	return &domain.LinkResult{Account: &account, Profile: profile, Outcome: domain.LinkOutcomeCreated}, nil
}

// RegisterWithPassword creates an email/password account or links a password
// to an account that so far only signs in through OAuth.
func (s *accountLinkingService) RegisterWithPassword(ctx context.Context, signup domain.PasswordSignup) (*domain.LinkResult, error) {
	email := domain.NormalizeEmail(signup.Email)
	if email == "" {
		return nil, apperrors.ErrInvalidInput.WithFields(apperrors.FieldError{Field: "email", Message: "email is required"})
	}
	if !utils.IsStrongPassword(signup.Password) {
		return nil, errWeakPassword
	}
	signup.Email = email

	account, err := s.accountRepo.FindAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to look up account by email")
			return nil, apperrors.NewInternalError("failed to register account", err)
		}
		return s.createPasswordAccount(ctx, signup)
	}

	if account.HasPassword || account.HasIdentity(domain.ProviderEmail) {
		return nil, apperrors.ErrEmailAlreadyExists
	}
	if !s.allowCrossLink {
		return nil, providerMismatch(account)
	}

	hash, err := utils.HashPassword(signup.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	now := s.Now()
	applied, err := s.accountRepo.SetPasswordIfAbsent(ctx, account.AuthAccountID, hash, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to set password", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to register account", err)
	}
	if !applied {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	identity := domain.Identity{
		IdentityID:    uuid.NewString(),
		Provider:      domain.ProviderEmail,
		ProviderID:    email,
		ProviderEmail: email,
		IsVerified:    false,
		IsPrimary:     false,
		LinkedAt:      now,
	}
	if err := s.accountRepo.AddIdentity(ctx, account.AuthAccountID, identity); err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
		s.LogError(ctx, err, "Failed to link email identity", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to register account", err)
	}

	linked, err := s.reload(ctx, account.AuthAccountID)
	if err != nil {
		return nil, err
	}
	code, err := s.issueVerificationCode(linked, now)
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.UpdateAccount(ctx, *linked); err != nil {
		s.LogError(ctx, err, "Failed to store verification code", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to register account", err)
	}

	profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, signup.FirstName, signup.LastName, "")
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Password linked to OAuth account", slog.String("auth_account_id", account.AuthAccountID))
	return &domain.LinkResult{Account: linked, Profile: profile, Outcome: domain.LinkOutcomeLinked, VerificationCode: code}, nil
}

func (s *accountLinkingService) createPasswordAccount(ctx context.Context, signup domain.PasswordSignup) (*domain.LinkResult, error) {
	hash, err := utils.HashPassword(signup.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	now := s.Now()
	account := domain.AuthAccount{
		AuthAccountID: uuid.NewString(),
		Email:         signup.Email,
		PasswordHash:  &hash,
		IsVerified:    false,
		HasPassword:   true,
		Identities: []domain.Identity{{
			IdentityID:    uuid.NewString(),
			Provider:      domain.ProviderEmail,
			ProviderID:    signup.Email,
			ProviderEmail: signup.Email,
			IsVerified:    false,
			IsPrimary:     true,
			LinkedAt:      now,
		}},
		PendingProfile: &domain.PendingProfile{
			FirstName: strings.TrimSpace(signup.FirstName),
			LastName:  strings.TrimSpace(signup.LastName),
		},
		Timestamps: domain.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	code, err := s.issueVerificationCode(&account, now)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		s.LogError(ctx, err, "Failed to create account")
		return nil, apperrors.NewInternalError("failed to create account", err)
	}
	s.LogInfo(ctx, "Account created with password", slog.String("auth_account_id", account.AuthAccountID))
	return &domain.LinkResult{Account: &account, Outcome: domain.LinkOutcomeCreated, VerificationCode: code}, nil
}

// SetPasswordForOAuthUser adds a first password to an OAuth-only account.
func (s *accountLinkingService) SetPasswordForOAuthUser(ctx context.Context, accountID string, password string) (*domain.AuthAccount, error) {
	if !utils.IsStrongPassword(password) {
		return nil, errWeakPassword
	}
	account, err := s.reload(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.HasPassword {
		return nil, apperrors.ErrPasswordAlreadySet
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	now := s.Now()
	applied, err := s.accountRepo.SetPasswordIfAbsent(ctx, accountID, hash, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to set password", slog.String("auth_account_id", accountID))
		return nil, apperrors.NewInternalError("failed to set password", err)
	}
	if !applied {
		return nil, apperrors.ErrPasswordAlreadySet
	}

	if !account.HasIdentity(domain.ProviderEmail) {
		// The caller is authenticated through a provider that asserted this
		// email, so the email identity starts verified.
		identity := domain.Identity{
			IdentityID:    uuid.NewString(),
			Provider:      domain.ProviderEmail,
			ProviderID:    account.Email,
			ProviderEmail: account.Email,
			IsVerified:    true,
			IsPrimary:     false,
			LinkedAt:      now,
		}
		if err := s.accountRepo.AddIdentity(ctx, accountID, identity); err != nil && !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to link email identity", slog.String("auth_account_id", accountID))
			return nil, apperrors.NewInternalError("failed to set password", err)
		}
	}

	s.LogInfo(ctx, "Password set for OAuth account", slog.String("auth_account_id", accountID))
	return s.reload(ctx, accountID)
}

func (s *accountLinkingService) issueVerificationCode(account *domain.AuthAccount, now time.Time) (string, error) {
	return issueVerificationCode(account, now, s.verificationTTL)
}

func (s *accountLinkingService) recordLogin(ctx context.Context, account *domain.AuthAccount, provider domain.Provider) error {
	now := s.Now()
	if err := s.accountRepo.RecordLogin(ctx, account.AuthAccountID, provider, now); err != nil {
		s.LogError(ctx, err, "Failed to record login", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to record login", err)
	}
	account.LastLoginAt = &now
	account.LastLoginProvider = &provider
	return nil
}

func (s *accountLinkingService) reload(ctx context.Context, accountID string) (*domain.AuthAccount, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		s.LogError(ctx, err, "Failed to load account", slog.String("auth_account_id", accountID))
		return nil, apperrors.NewInternalError("failed to load account", err)
	}
	return account, nil
}

// providerMismatch steers the user to the provider the account was created with.
func providerMismatch(account *domain.AuthAccount) error {
	primary := account.PrimaryProvider()
	return apperrors.ErrProviderMismatch.
		WithMessage(fmt.Sprintf("this email is registered with %s, use %s to log in", primary.DisplayName(), primary.DisplayName())).
		WithMeta("provider", string(primary))
}
