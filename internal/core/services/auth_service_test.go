package services_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/core/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/SscSPs/saas_starter_auth/internal/repositories/memory"
	"github.com/stretchr/testify/suite"
)

// recordingMailer keeps the last message sent to each address.
type recordingMailer struct {
	mu         sync.Mutex
	codes      map[string]string
	resetLinks map[string]string
	sent       int
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{codes: map[string]string{}, resetLinks: map[string]string{}}
}

func (m *recordingMailer) SendVerificationCode(_ context.Context, to, _ string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	m.sent++
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLinks[to] = resetLink
	m.sent++
	return nil
}

// recordingTracker counts analytics events by name.
type recordingTracker struct {
	mu     sync.Mutex
	events map[string]int
}

func (t *recordingTracker) Track(_ string, event string, _ map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[event]++
}

var browserRequest = domain.RequestContext{
	UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	ForwardedFor: "203.0.113.7, 10.0.0.1",
}

type AuthServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	cfg      *config.Config
	repos    portsrepo.RepositoryProvider
	mailer   *recordingMailer
	tracker  *recordingTracker
	tokens   portssvc.TokenSvc
	sessions portssvc.SessionSvcFacade
	service  portssvc.AuthSvcFacade
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	suite.cfg = testConfig()
	suite.repos = memory.NewRepositoryProvider()
	suite.mailer = newRecordingMailer()
	suite.tracker = &recordingTracker{events: map[string]int{}}
	suite.build()
}

func (suite *AuthServiceTestSuite) build() {
	clock := func() time.Time { return suite.now }
	tokens, err := services.NewTokenService(suite.cfg, services.WithClock(clock))
	suite.Require().NoError(err)
	suite.tokens = tokens
	suite.sessions = services.NewSessionService(suite.repos.SessionRepo, services.WithSessionClock(clock))
	linking := services.NewAccountLinkingService(suite.cfg, suite.repos.AuthAccountRepo, suite.repos.ProfileRepo,
		services.WithLinkingClock(clock))
	suite.service = services.NewAuthService(suite.cfg, suite.repos, suite.tokens, suite.sessions, linking,
		services.WithMailer(suite.mailer),
		services.WithEventTracker(suite.tracker),
		services.WithAuthClock(clock))
}

func (suite *AuthServiceTestSuite) createAccount(email string) *domain.AuthAccount {
	account, err := suite.service.CreateAccount(suite.ctx, domain.PasswordSignup{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     email,
		Password:  "Abc12345!",
	})
	suite.Require().NoError(err)
	return account
}

func (suite *AuthServiceTestSuite) verifiedLogin(email string) *domain.AuthResult {
	suite.createAccount(email)
	result, err := suite.service.VerifyEmail(suite.ctx, email, suite.mailer.codes[email], browserRequest)
	suite.Require().NoError(err)
	return result
}

func (suite *AuthServiceTestSuite) TestSignupThenVerifyScenario() {
	account := suite.createAccount("a@b.com")
	suite.False(account.IsVerified)
	code := suite.mailer.codes["a@b.com"]
	suite.Regexp(`^[0-9]{6}$`, code)

	result, err := suite.service.VerifyEmail(suite.ctx, "A@B.com", code, browserRequest)
	suite.Require().NoError(err)

	suite.True(result.Account.IsVerified)
	email, ok := result.Account.IdentityFor(domain.ProviderEmail)
	suite.Require().True(ok)
	suite.True(email.IsVerified)
	suite.Nil(result.Account.VerificationCode)

	suite.Require().NotNil(result.Profile)
	suite.Regexp(`^alice[0-9]{4}$`, result.Profile.Username)
	suite.Equal("Smith", result.Profile.LastName)

	suite.Require().NotNil(result.Session)
	suite.Equal(domain.ProviderEmail, result.Session.AuthMethod)
	suite.Equal("203.0.113.7", result.Session.IPAddress)

	payload, err := suite.tokens.VerifyAccess(result.Tokens.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(account.AuthAccountID, payload.UserID)
	suite.Equal("a@b.com", payload.Email)

	// Codes are single-use.
	_, err = suite.service.VerifyEmail(suite.ctx, "a@b.com", code, browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)
	suite.Equal(1, suite.tracker.events["email_verified"])
}

func (suite *AuthServiceTestSuite) TestVerifyEmailRejectsWrongAndExpiredCodes() {
	suite.createAccount("a@b.com")
	code := suite.mailer.codes["a@b.com"]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := suite.service.VerifyEmail(suite.ctx, "a@b.com", wrong, browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)

	_, err = suite.service.VerifyEmail(suite.ctx, "nobody@b.com", code, browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)

	suite.now = suite.now.Add(16 * time.Minute)
	_, err = suite.service.VerifyEmail(suite.ctx, "a@b.com", code, browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)
	suite.True(apperrors.IsKind(err, apperrors.KindValidation))
}

func (suite *AuthServiceTestSuite) TestVerifyEmailDiscardsCodeAfterTooManyAttempts() {
	account := suite.createAccount("a@b.com")
	code := suite.mailer.codes["a@b.com"]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		_, err := suite.service.VerifyEmail(suite.ctx, "a@b.com", wrong, browserRequest)
		suite.Require().ErrorIs(err, apperrors.ErrInvalidVerificationCode)
	}

	// The right code no longer works once the attempts are used up.
	_, err := suite.service.VerifyEmail(suite.ctx, "a@b.com", code, browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)

	stored, err := suite.repos.AuthAccountRepo.FindAccountByID(suite.ctx, account.AuthAccountID)
	suite.Require().NoError(err)
	suite.Nil(stored.VerificationCode)
	suite.Equal(5, stored.VerificationAttempts)

	// A fresh code resets the counter.
	suite.Require().NoError(suite.service.ResendVerification(suite.ctx, "a@b.com"))
	_, err = suite.service.VerifyEmail(suite.ctx, "a@b.com", wrong, browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)
	_, err = suite.service.VerifyEmail(suite.ctx, "a@b.com", suite.mailer.codes["a@b.com"], browserRequest)
	suite.NoError(err)
}

func (suite *AuthServiceTestSuite) TestResendVerification() {
	suite.Require().NoError(suite.service.ResendVerification(suite.ctx, "nobody@b.com"))
	suite.Equal(0, suite.mailer.sent)

	suite.createAccount("a@b.com")
	first := suite.mailer.codes["a@b.com"]
	suite.Require().NoError(suite.service.ResendVerification(suite.ctx, "a@b.com"))
	suite.Equal(2, suite.mailer.sent)

	second := suite.mailer.codes["a@b.com"]
	if first != second {
		_, err := suite.service.VerifyEmail(suite.ctx, "a@b.com", first, browserRequest)
		suite.ErrorIs(err, apperrors.ErrInvalidVerificationCode)
	}
	_, err := suite.service.VerifyEmail(suite.ctx, "a@b.com", second, browserRequest)
	suite.Require().NoError(err)

	// Verified accounts get nothing.
	suite.Require().NoError(suite.service.ResendVerification(suite.ctx, "a@b.com"))
	suite.Equal(2, suite.mailer.sent)
}

func (suite *AuthServiceTestSuite) TestLogInRequiresVerifiedEmail() {
	suite.createAccount("a@b.com")

	_, err := suite.service.LogIn(suite.ctx, "a@b.com", "Abc12345!", browserRequest)
	suite.ErrorIs(err, apperrors.ErrAccountNotVerified)
	suite.True(apperrors.IsKind(err, apperrors.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestLogInBadCredentials() {
	suite.verifiedLogin("a@b.com")

	_, err := suite.service.LogIn(suite.ctx, "a@b.com", "Wrong1234", browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidCredentials)

	_, err = suite.service.LogIn(suite.ctx, "missing@b.com", "Abc12345!", browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidCredentials)
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func (suite *AuthServiceTestSuite) TestLogInOAuthOnlyAccountNamesProvider() {
	_, err := suite.service.CompleteOAuthLogin(suite.ctx, domain.OAuthUserInfo{
		Provider:   domain.ProviderGitHub,
		ProviderID: "gh-1",
		Email:      "ada@example.com",
		FirstName:  "Ada",
	}, browserRequest)
	suite.Require().NoError(err)

	_, err = suite.service.LogIn(suite.ctx, "ada@example.com", "Abc12345!", browserRequest)
	suite.Require().ErrorIs(err, apperrors.ErrUseProviderLogin)
	suite.True(apperrors.IsKind(err, apperrors.KindUnauthorized))
	suite.Contains(err.Error(), "GitHub")
}

func (suite *AuthServiceTestSuite) TestLogInCreatesNewSession() {
	first := suite.verifiedLogin("a@b.com")
	suite.now = suite.now.Add(time.Minute)

	second, err := suite.service.LogIn(suite.ctx, "a@b.com", "Abc12345!", browserRequest)
	suite.Require().NoError(err)
	suite.NotEqual(first.Session.SessionID, second.Session.SessionID)
	suite.Equal(first.Profile.ProfileID, second.Profile.ProfileID)

	sessions, err := suite.sessions.ListSessions(suite.ctx, first.Account.AuthAccountID)
	suite.Require().NoError(err)
	suite.Require().Len(sessions, 2)
	suite.Equal(second.Session.SessionID, sessions[0].SessionID)
}

func (suite *AuthServiceTestSuite) TestRefreshRotatesAndHonoursRevocation() {
	login := suite.verifiedLogin("a@b.com")
	sessionID := login.Session.SessionID

	suite.now = suite.now.Add(20 * time.Minute)
	_, err := suite.tokens.VerifyAccess(login.Tokens.AccessToken)
	suite.Require().ErrorIs(err, apperrors.ErrExpiredToken)

	pair, err := suite.service.Refresh(suite.ctx, login.Tokens.RefreshToken, sessionID)
	suite.Require().NoError(err)
	suite.NotEqual(login.Tokens.AccessToken, pair.AccessToken)
	suite.NotEqual(login.Tokens.RefreshToken, pair.RefreshToken)
	_, err = suite.tokens.VerifyAccess(pair.AccessToken)
	suite.NoError(err)

	_, err = suite.service.Refresh(suite.ctx, login.Tokens.AccessToken, sessionID)
	suite.ErrorIs(err, apperrors.ErrWrongTokenType)

	suite.Require().NoError(suite.sessions.RevokeSession(suite.ctx, sessionID, login.Account.AuthAccountID))
	_, err = suite.service.Refresh(suite.ctx, pair.RefreshToken, sessionID)
	suite.ErrorIs(err, apperrors.ErrSessionRevoked)
}

func (suite *AuthServiceTestSuite) TestRefreshWithoutSessionCheck() {
	suite.cfg.RefreshChecksSession = false
	suite.build()
	login := suite.verifiedLogin("a@b.com")

	suite.Require().NoError(suite.sessions.RevokeSession(suite.ctx, login.Session.SessionID, login.Account.AuthAccountID))
	_, err := suite.service.Refresh(suite.ctx, login.Tokens.RefreshToken, login.Session.SessionID)
	suite.NoError(err)
}

func (suite *AuthServiceTestSuite) TestRefreshDoesNotTouchUncheckedSession() {
	suite.cfg.RefreshChecksSession = false
	suite.build()
	victim := suite.verifiedLogin("victim@b.com")
	other := suite.verifiedLogin("other@b.com")

	suite.now = suite.now.Add(time.Hour)
	_, err := suite.service.Refresh(suite.ctx, other.Tokens.RefreshToken, victim.Session.SessionID)
	suite.Require().NoError(err)

	stored, err := suite.repos.SessionRepo.FindSessionByID(suite.ctx, victim.Session.SessionID)
	suite.Require().NoError(err)
	suite.Equal(victim.Session.LastActiveAt, stored.LastActiveAt)
}

func (suite *AuthServiceTestSuite) TestRefreshTouchesCheckedSession() {
	login := suite.verifiedLogin("a@b.com")

	suite.now = suite.now.Add(time.Hour)
	_, err := suite.service.Refresh(suite.ctx, login.Tokens.RefreshToken, login.Session.SessionID)
	suite.Require().NoError(err)

	stored, err := suite.repos.SessionRepo.FindSessionByID(suite.ctx, login.Session.SessionID)
	suite.Require().NoError(err)
	suite.Equal(suite.now, stored.LastActiveAt)
}

func (suite *AuthServiceTestSuite) TestRefreshForDeletedAccount() {
	login := suite.verifiedLogin("a@b.com")
	suite.Require().NoError(suite.repos.AuthAccountRepo.DeleteAccount(suite.ctx, login.Account.AuthAccountID, suite.now))

	_, err := suite.service.Refresh(suite.ctx, login.Tokens.RefreshToken, "")
	suite.ErrorIs(err, apperrors.ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestLogOutAndLogOutEverywhere() {
	first := suite.verifiedLogin("a@b.com")
	second, err := suite.service.LogIn(suite.ctx, "a@b.com", "Abc12345!", browserRequest)
	suite.Require().NoError(err)
	third, err := suite.service.LogIn(suite.ctx, "a@b.com", "Abc12345!", browserRequest)
	suite.Require().NoError(err)

	principal := domain.Principal{UserID: first.Account.AuthAccountID, Email: "a@b.com", SessionID: first.Session.SessionID}
	revoked, err := suite.service.LogOutEverywhere(suite.ctx, principal)
	suite.Require().NoError(err)
	suite.Equal(2, revoked)

	for _, id := range []string{second.Session.SessionID, third.Session.SessionID} {
		active, err := suite.sessions.IsSessionActive(suite.ctx, id)
		suite.Require().NoError(err)
		suite.False(active)
	}
	active, err := suite.sessions.IsSessionActive(suite.ctx, first.Session.SessionID)
	suite.Require().NoError(err)
	suite.True(active)

	suite.Require().NoError(suite.service.LogOut(suite.ctx, principal))
	active, err = suite.sessions.IsSessionActive(suite.ctx, first.Session.SessionID)
	suite.Require().NoError(err)
	suite.False(active)

	// Logging out twice is harmless.
	suite.NoError(suite.service.LogOut(suite.ctx, principal))
}

func (suite *AuthServiceTestSuite) TestForgotAndResetPassword() {
	login := suite.verifiedLogin("a@b.com")

	suite.Require().NoError(suite.service.ForgotPassword(suite.ctx, "nobody@b.com"))
	suite.Empty(suite.mailer.resetLinks)

	suite.Require().NoError(suite.service.ForgotPassword(suite.ctx, "A@b.com"))
	link, err := url.Parse(suite.mailer.resetLinks["a@b.com"])
	suite.Require().NoError(err)
	suite.Equal("/reset-password", link.Path)
	token := link.Query().Get("token")
	suite.Equal("a@b.com", link.Query().Get("email"))
	suite.Len(token, 64)

	err = suite.service.ResetPassword(suite.ctx, "a@b.com", "not-the-token", "NewPass123")
	suite.ErrorIs(err, apperrors.ErrInvalidResetToken)
	err = suite.service.ResetPassword(suite.ctx, "a@b.com", token, "short")
	suite.ErrorIs(err, apperrors.ErrInvalidInput)

	suite.Require().NoError(suite.service.ResetPassword(suite.ctx, "a@b.com", token, "NewPass123"))

	active, err := suite.sessions.IsSessionActive(suite.ctx, login.Session.SessionID)
	suite.Require().NoError(err)
	suite.False(active)

	_, err = suite.service.LogIn(suite.ctx, "a@b.com", "Abc12345!", browserRequest)
	suite.ErrorIs(err, apperrors.ErrInvalidCredentials)
	_, err = suite.service.LogIn(suite.ctx, "a@b.com", "NewPass123", browserRequest)
	suite.NoError(err)

	err = suite.service.ResetPassword(suite.ctx, "a@b.com", token, "Another123")
	suite.ErrorIs(err, apperrors.ErrInvalidResetToken)
}

func (suite *AuthServiceTestSuite) TestResetTokenExpires() {
	suite.verifiedLogin("a@b.com")
	suite.Require().NoError(suite.service.ForgotPassword(suite.ctx, "a@b.com"))
	link, err := url.Parse(suite.mailer.resetLinks["a@b.com"])
	suite.Require().NoError(err)

	suite.now = suite.now.Add(61 * time.Minute)
	err = suite.service.ResetPassword(suite.ctx, "a@b.com", link.Query().Get("token"), "NewPass123")
	suite.ErrorIs(err, apperrors.ErrInvalidResetToken)
}

func (suite *AuthServiceTestSuite) TestSetPasswordEnablesPasswordLogin() {
	oauth, err := suite.service.CompleteOAuthLogin(suite.ctx, domain.OAuthUserInfo{
		Provider:   domain.ProviderGoogle,
		ProviderID: "g-1",
		Email:      "ada@example.com",
		FirstName:  "Ada",
	}, browserRequest)
	suite.Require().NoError(err)
	suite.Equal(domain.ProviderGoogle, oauth.Session.AuthMethod)

	_, err = suite.service.SetPassword(suite.ctx, oauth.Account.AuthAccountID, "Abc12345!")
	suite.Require().NoError(err)

	result, err := suite.service.LogIn(suite.ctx, "ada@example.com", "Abc12345!", browserRequest)
	suite.Require().NoError(err)
	suite.Equal(oauth.Account.AuthAccountID, result.Account.AuthAccountID)
	suite.Equal(oauth.Profile.Username, result.Profile.Username)

	_, err = suite.service.SetPassword(suite.ctx, oauth.Account.AuthAccountID, "Xyz98765!")
	suite.ErrorIs(err, apperrors.ErrPasswordAlreadySet)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
