package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/SscSPs/saas_starter_auth/internal/platform/metrics"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
)

const (
	resetTokenBytes = 32

	// maxVerificationAttempts is the number of wrong guesses after which the
	// current verification code is discarded.
	maxVerificationAttempts = 5
)

// authService orchestrates signup, login, refresh and password recovery on
// top of the token service, session tracker and account linking.
type authService struct {
	BaseService
	cfg         *config.Config
	accountRepo portsrepo.AuthAccountRepositoryFacade
	profiles    *profileProvisioner
	tokens      portssvc.TokenSvc
	sessions    portssvc.SessionSvcFacade
	linking     portssvc.AccountLinkingSvc
	mailer      portssvc.Mailer
	tracker     portssvc.EventTracker
}

// AuthServiceOption customizes the auth service.
type AuthServiceOption func(*authService)

// WithMailer sets the mailer used for verification and reset emails.
func WithMailer(mailer portssvc.Mailer) AuthServiceOption {
	return func(s *authService) {
		s.mailer = mailer
	}
}

// WithEventTracker sets the product analytics sink.
func WithEventTracker(tracker portssvc.EventTracker) AuthServiceOption {
	return func(s *authService) {
		s.tracker = tracker
	}
}

// WithAuthClock overrides the clock used for expiry checks.
func WithAuthClock(now func() time.Time) AuthServiceOption {
	return func(s *authService) {
		s.BaseService = newBaseService(now)
		s.profiles.BaseService = s.BaseService
	}
}

// NewAuthService creates the auth orchestration service.
func NewAuthService(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	tokens portssvc.TokenSvc,
	sessions portssvc.SessionSvcFacade,
	linking portssvc.AccountLinkingSvc,
	opts ...AuthServiceOption,
) portssvc.AuthSvcFacade {
	base := newBaseService(nil)
	s := &authService{
		BaseService: base,
		cfg:         cfg,
		accountRepo: repos.AuthAccountRepo,
		profiles:    &profileProvisioner{BaseService: base, profileRepo: repos.ProfileRepo},
		tokens:      tokens,
		sessions:    sessions,
		linking:     linking,
		mailer:      discardMailer{},
		tracker:     discardTracker{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

// CreateAccount registers an email/password account and mails its code.
func (s *authService) CreateAccount(ctx context.Context, signup domain.PasswordSignup) (*domain.AuthAccount, error) {
	result, err := s.linking.RegisterWithPassword(ctx, signup)
	metrics.RecordAuthEvent("signup", err)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, result.Account.Email, signup.FirstName, result.VerificationCode); err != nil {
		// The account exists; the user can request a new code.
		s.LogError(ctx, err, "Failed to send verification email", slog.String("auth_account_id", result.Account.AuthAccountID))
	}
	s.tracker.Track(result.Account.AuthAccountID, "account_created", map[string]any{
		"provider": string(domain.ProviderEmail),
		"outcome":  string(result.Outcome),
	})
	return result.Account, nil
}

// VerifyEmail confirms the emailed code, creates the profile and logs in.
func (s *authService) VerifyEmail(ctx context.Context, email, code string, reqCtx domain.RequestContext) (*domain.AuthResult, error) {
	result, err := s.verifyEmail(ctx, email, code, reqCtx)
	metrics.RecordAuthEvent("email_verification", err)
	return result, err
}

func (s *authService) verifyEmail(ctx context.Context, email, code string, reqCtx domain.RequestContext) (*domain.AuthResult, error) {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil, apperrors.ErrInvalidVerificationCode
		}
		return nil, err
	}

	// Check the code is still live before comparing it
	now := s.Now()
	if account.VerificationCode == nil || account.VerificationCodeExpiry == nil ||
		now.After(*account.VerificationCodeExpiry) ||
		account.VerificationAttempts >= maxVerificationAttempts {
		return nil, apperrors.ErrInvalidVerificationCode
	}
	if !utils.CompareTokenHash(code, *account.VerificationCode) {
		s.recordFailedVerification(ctx, account.AuthAccountID, now)
		return nil, apperrors.ErrInvalidVerificationCode
	}

	if err := s.accountRepo.MarkIdentityVerified(ctx, account.AuthAccountID, domain.ProviderEmail); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogError(ctx, err, "Failed to verify email identity", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to verify email", err)
	}

	// Promote the pending signup: names move to the profile, the code is spent
	firstName, lastName := pendingNames(account)
	account.IsVerified = true
	account.VerificationCode = nil
	account.VerificationCodeExpiry = nil
	account.PendingProfile = nil
	account.UpdatedAt = now
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to mark account verified", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to verify email", err)
	}

	profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, firstName, lastName, "")
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, account.AuthAccountID, domain.ProviderEmail); err != nil {
		return nil, err
	}

	verified, err := s.findByID(ctx, account.AuthAccountID)
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Email verified", slog.String("auth_account_id", account.AuthAccountID))
	s.tracker.Track(account.AuthAccountID, "email_verified", nil)
	return s.startSession(ctx, verified, profile, domain.ProviderEmail, reqCtx)
}

// recordFailedVerification counts a wrong code. The counter lives on the
// account, so the limit holds no matter which client the guesses come from.
func (s *authService) recordFailedVerification(ctx context.Context, accountID string, now time.Time) {
	attempts, err := s.accountRepo.RecordFailedVerification(ctx, accountID, maxVerificationAttempts, now)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// A concurrent guess already used up the code.
	case err != nil:
		s.LogError(ctx, err, "Failed to record verification attempt", slog.String("auth_account_id", accountID))
	case attempts >= maxVerificationAttempts:
		s.GetLogger(ctx).WarnContext(ctx, "Verification code discarded after too many attempts",
			slog.String("auth_account_id", accountID),
			slog.Int("attempts", attempts))
	}
}

// ResendVerification issues a new code. Unknown or already verified emails
// succeed silently.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	identity, ok := account.IdentityFor(domain.ProviderEmail)
	if !ok || identity.IsVerified {
		return nil
	}

	code, err := issueVerificationCode(account, s.Now(), s.cfg.VerificationCodeTTL)
	if err != nil {
		return err
	}
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to store verification code", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to resend verification code", err)
	}

	firstName, _ := pendingNames(account)
	if err := s.mailer.SendVerificationCode(ctx, account.Email, firstName, code); err != nil {
		s.LogError(ctx, err, "Failed to send verification email", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to send verification email", err)
	}
	return nil
}

// LogIn authenticates with email and password.
func (s *authService) LogIn(ctx context.Context, email, password string, reqCtx domain.RequestContext) (*domain.AuthResult, error) {
	result, err := s.logIn(ctx, email, password, reqCtx)
	metrics.RecordAuthEvent("login", err)
	return result, err
}

func (s *authService) logIn(ctx context.Context, email, password string, reqCtx domain.RequestContext) (*domain.AuthResult, error) {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			utils.BurnPasswordCheck(password)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	// OAuth-only accounts are pointed at their provider
	if !account.HasPassword || account.PasswordHash == nil {
		provider := oauthProviderOf(account)
		return nil, apperrors.ErrUseProviderLogin.
			WithMessage(fmt.Sprintf("this account uses %s to log in", provider.DisplayName())).
			WithMeta("provider", string(provider))
	}
	if !utils.CheckPasswordHash(password, *account.PasswordHash) {
		s.GetLogger(ctx).InfoContext(ctx, "Failed password login", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.ErrInvalidCredentials
	}
	if identity, ok := account.IdentityFor(domain.ProviderEmail); !ok || !identity.IsVerified {
		return nil, apperrors.ErrAccountNotVerified
	}

	firstName, lastName := pendingNames(account)
	profile, err := s.profiles.ensureProfile(ctx, account.AuthAccountID, firstName, lastName, "")
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, account.AuthAccountID, domain.ProviderEmail); err != nil {
		return nil, err
	}
	s.tracker.Track(account.AuthAccountID, "logged_in", map[string]any{"provider": string(domain.ProviderEmail)})
	return s.startSession(ctx, account, profile, domain.ProviderEmail, reqCtx)
}

// CompleteOAuthLogin resolves the upstream identity and starts a session.
func (s *authService) CompleteOAuthLogin(ctx context.Context, info domain.OAuthUserInfo, reqCtx domain.RequestContext) (*domain.AuthResult, error) {
	link, err := s.linking.ResolveOAuthLogin(ctx, info)
	if err != nil {
		return nil, err
	}
	s.tracker.Track(link.Account.AuthAccountID, "logged_in", map[string]any{
		"provider": string(info.Provider),
		"outcome":  string(link.Outcome),
	})
	return s.startSession(ctx, link.Account, link.Profile, info.Provider, reqCtx)
}

// Refresh rotates the token pair. With session checks enabled a revoked
// session cannot mint new tokens.
func (s *authService) Refresh(ctx context.Context, refreshToken, sessionID string) (*domain.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken, sessionID)
	metrics.RecordAuthEvent("refresh", err)
	return pair, err
}

func (s *authService) refresh(ctx context.Context, refreshToken, sessionID string) (*domain.TokenPair, error) {
	payload, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.findByID(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, err
	}

	// An unchecked session id is not trusted to belong to the caller.
	checked := s.cfg.RefreshChecksSession && sessionID != ""
	if checked {
		if err := s.sessions.CheckSession(ctx, sessionID, account.AuthAccountID); err != nil {
			return nil, err
		}
	}

	pair, err := s.tokens.IssuePair(account.AuthAccountID, account.Email)
	if err != nil {
		s.LogError(ctx, err, "Failed to issue tokens", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to refresh tokens", err)
	}
	if checked {
		s.sessions.TouchSession(ctx, sessionID)
	}
	return pair, nil
}

// LogOut revokes the caller's current session.
func (s *authService) LogOut(ctx context.Context, principal domain.Principal) error {
	if principal.SessionID == "" {
		return nil
	}
	err := s.sessions.RevokeSession(ctx, principal.SessionID, principal.UserID)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil
	}
	return err
}

// LogOutEverywhere revokes every session except the caller's.
func (s *authService) LogOutEverywhere(ctx context.Context, principal domain.Principal) (int, error) {
	return s.sessions.RevokeAllSessions(ctx, principal.UserID, principal.SessionID)
}

// ForgotPassword mails a reset link. Unknown emails succeed silently.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return nil
		}
		return err
	}
	if !account.HasPassword {
		s.LogInfo(ctx, "Password reset requested for account without password", slog.String("auth_account_id", account.AuthAccountID))
		return nil
	}

	// Only the hash is stored; the raw token travels in the mailed link
	token, err := utils.GenerateSecureRandomString(resetTokenBytes)
	if err != nil {
		return apperrors.NewInternalError("failed to generate reset token", err)
	}
	now := s.Now()
	hashed := utils.HashToken(token)
	account.ResetPasswordTokenHash = &hashed
	account.ResetPasswordTokenExpiry = expiryFrom(now, s.cfg.PasswordResetTTL)
	account.UpdatedAt = now
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to store reset token", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to start password reset", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		s.cfg.FrontendBaseURL, url.QueryEscape(token), url.QueryEscape(account.Email))
	if err := s.mailer.SendPasswordReset(ctx, account.Email, link); err != nil {
		s.LogError(ctx, err, "Failed to send password reset email", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to send password reset email", err)
	}
	s.tracker.Track(account.AuthAccountID, "password_reset_requested", nil)
	return nil
}

// ResetPassword sets a new password from a mailed token and revokes every
// session of the account.
func (s *authService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if !utils.IsStrongPassword(newPassword) {
		return errWeakPassword
	}
	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return err
	}

	now := s.Now()
	if account.ResetPasswordTokenHash == nil || account.ResetPasswordTokenExpiry == nil ||
		now.After(*account.ResetPasswordTokenExpiry) ||
		!utils.CompareTokenHash(token, *account.ResetPasswordTokenHash) {
		return apperrors.ErrInvalidResetToken
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	if err := s.accountRepo.UpdatePassword(ctx, account.AuthAccountID, hash, now); err != nil {
		s.LogError(ctx, err, "Failed to update password", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to reset password", err)
	}

	account.ResetPasswordTokenHash = nil
	account.ResetPasswordTokenExpiry = nil
	account.UpdatedAt = now
	if err := s.accountRepo.UpdateAccount(ctx, *account); err != nil {
		s.LogError(ctx, err, "Failed to clear reset token", slog.String("auth_account_id", account.AuthAccountID))
		return apperrors.NewInternalError("failed to reset password", err)
	}
	// The reset link was delivered to the mailbox, which proves ownership.
	if identity, ok := account.IdentityFor(domain.ProviderEmail); ok && !identity.IsVerified {
		if err := s.accountRepo.MarkIdentityVerified(ctx, account.AuthAccountID, domain.ProviderEmail); err != nil {
			s.LogWarn(ctx, err, "Failed to verify email identity after reset", slog.String("auth_account_id", account.AuthAccountID))
		}
	}

	// Log out every device that knew the old password
	revoked, err := s.sessions.RevokeAllSessions(ctx, account.AuthAccountID, "")
	if err != nil {
		return err
	}
	s.LogInfo(ctx, "Password reset", slog.String("auth_account_id", account.AuthAccountID), slog.Int("revoked_sessions", revoked))
	return nil
}

// SetPassword adds a first password to an OAuth-only account.
func (s *authService) SetPassword(ctx context.Context, accountID, password string) (*domain.AuthAccount, error) {
	return s.linking.SetPasswordForOAuthUser(ctx, accountID, password)
}

func (s *authService) startSession(ctx context.Context, account *domain.AuthAccount, profile *domain.Profile, method domain.Provider, reqCtx domain.RequestContext) (*domain.AuthResult, error) {
	session, err := s.sessions.CreateSession(ctx, domain.CreateSessionInput{
		AuthAccountID:  account.AuthAccountID,
		AuthMethod:     method,
		RequestContext: reqCtx,
	})
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(account.AuthAccountID, account.Email)
	if err != nil {
		s.LogError(ctx, err, "Failed to issue tokens", slog.String("auth_account_id", account.AuthAccountID))
		return nil, apperrors.NewInternalError("failed to issue tokens", err)
	}
	return &domain.AuthResult{Tokens: *pair, Session: session, Account: account, Profile: profile}, nil
}

func (s *authService) recordLogin(ctx context.Context, accountID string, provider domain.Provider) error {
	if err := s.accountRepo.RecordLogin(ctx, accountID, provider, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to record login", slog.String("auth_account_id", accountID))
		return apperrors.NewInternalError("failed to record login", err)
	}
	return nil
}

func (s *authService) findByEmail(ctx context.Context, email string) (*domain.AuthAccount, error) {
	account, err := s.accountRepo.FindAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		s.LogError(ctx, err, "Failed to look up account by email")
		return nil, apperrors.NewInternalError("failed to load account", err)
	}
	return account, nil
}

func (s *authService) findByID(ctx context.Context, accountID string) (*domain.AuthAccount, error) {
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

func pendingNames(account *domain.AuthAccount) (string, string) {
	if account.PendingProfile == nil {
		return "", ""
	}
	return account.PendingProfile.FirstName, account.PendingProfile.LastName
}

// oauthProviderOf names the provider a password-less account signs in with.
func oauthProviderOf(account *domain.AuthAccount) domain.Provider {
	if primary := account.PrimaryProvider(); primary.IsOAuth() {
		return primary
	}
	for _, id := range account.Identities {
		if id.Provider.IsOAuth() {
			return id.Provider
		}
	}
	return account.PrimaryProvider()
}

type discardMailer struct{}

func (discardMailer) SendVerificationCode(context.Context, string, string, string) error { return nil }
func (discardMailer) SendPasswordReset(context.Context, string, string) error             { return nil }

type discardTracker struct{}

func (discardTracker) Track(string, string, map[string]any) {}
