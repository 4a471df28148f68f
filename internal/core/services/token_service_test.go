package services_test

import (
	"strings"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/core/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                  "test-access-secret-that-is-long-enough",
		JWTExpiryDuration:          15 * time.Minute,
		JWTIssuer:                  "saas-auth-test",
		RefreshTokenSecret:         "test-refresh-secret-that-is-long-enough",
		RefreshTokenExpiryDuration: 7 * 24 * time.Hour,
		AllowCrossProviderLinking:  true,
		RefreshChecksSession:       true,
		VerificationCodeTTL:        15 * time.Minute,
		PasswordResetTTL:           time.Hour,
		FrontendBaseURL:            "http://localhost:3000",
	}
}

type TokenServiceTestSuite struct {
	suite.Suite
	now     time.Time
	service portssvc.TokenSvc
}

func (suite *TokenServiceTestSuite) SetupTest() {
	suite.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := services.NewTokenService(testConfig(), services.WithClock(func() time.Time { return suite.now }))
	suite.Require().NoError(err)
	suite.service = svc
}

func (suite *TokenServiceTestSuite) TestRoundTrip() {
	pair, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)
	suite.Equal(suite.now.Add(15*time.Minute), pair.AccessTokenExpiresAt)
	suite.Equal(suite.now.Add(7*24*time.Hour), pair.RefreshTokenExpiresAt)

	access, err := suite.service.VerifyAccess(pair.AccessToken)
	suite.Require().NoError(err)
	suite.Equal(domain.TokenPayload{UserID: "user-1", Email: "a@b.com", Type: domain.TokenTypeAccess}, *access)

	refresh, err := suite.service.VerifyRefresh(pair.RefreshToken)
	suite.Require().NoError(err)
	suite.Equal(domain.TokenPayload{UserID: "user-1", Email: "a@b.com", Type: domain.TokenTypeRefresh}, *refresh)
}

func (suite *TokenServiceTestSuite) TestTypeConfusionRejected() {
	pair, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)

	_, err = suite.service.VerifyAccess(pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrWrongTokenType)

	_, err = suite.service.VerifyRefresh(pair.AccessToken)
	suite.ErrorIs(err, apperrors.ErrWrongTokenType)
}

func (suite *TokenServiceTestSuite) TestTypeConfusionReportedEvenWhenExpired() {
	pair, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)

	suite.now = suite.now.Add(8 * 24 * time.Hour)
	_, err = suite.service.VerifyRefresh(pair.AccessToken)
	suite.ErrorIs(err, apperrors.ErrWrongTokenType)
}

func (suite *TokenServiceTestSuite) TestExpiry() {
	pair, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)

	suite.now = suite.now.Add(15*time.Minute + time.Second)
	_, err = suite.service.VerifyAccess(pair.AccessToken)
	suite.ErrorIs(err, apperrors.ErrExpiredToken)

	// The refresh token outlives the access token.
	_, err = suite.service.VerifyRefresh(pair.RefreshToken)
	suite.NoError(err)

	suite.now = suite.now.Add(7 * 24 * time.Hour)
	_, err = suite.service.VerifyRefresh(pair.RefreshToken)
	suite.ErrorIs(err, apperrors.ErrExpiredToken)
}

func (suite *TokenServiceTestSuite) TestRotationProducesDistinctTokens() {
	first, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)
	second, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)

	suite.NotEqual(first.AccessToken, second.AccessToken)
	suite.NotEqual(first.RefreshToken, second.RefreshToken)
}

func (suite *TokenServiceTestSuite) TestInvalidTokens() {
	pair, err := suite.service.IssuePair("user-1", "a@b.com")
	suite.Require().NoError(err)

	parts := strings.Split(pair.AccessToken, ".")
	suite.Require().Len(parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "user-1", "email": "a@b.com", "type": "access", "sub": "user-1",
		"iss": "saas-auth-test", "exp": suite.now.Add(time.Hour).Unix(),
	})
	foreignSigned, err := foreign.SignedString([]byte("some-other-secret"))
	suite.Require().NoError(err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"userId": "user-1", "type": "access", "sub": "user-1", "exp": suite.now.Add(time.Hour).Unix(),
	})
	noneSigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	suite.Require().NoError(err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"tampered":       tampered,
		"foreign secret": foreignSigned,
		"alg none":       noneSigned,
	} {
		_, err := suite.service.VerifyAccess(token)
		suite.ErrorIs(err, apperrors.ErrInvalidToken, name)
	}
}

func (suite *TokenServiceTestSuite) TestConstructorRejectsSharedSecret() {
	cfg := testConfig()
	cfg.RefreshTokenSecret = cfg.JWTSecret
	_, err := services.NewTokenService(cfg)
	suite.Error(err)

	cfg = testConfig()
	cfg.JWTSecret = ""
	_, err = services.NewTokenService(cfg)
	suite.Error(err)
}

func TestTokenService(t *testing.T) {
	suite.Run(t, new(TokenServiceTestSuite))
}
