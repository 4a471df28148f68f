package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/SscSPs/saas_starter_auth/internal/platform/metrics"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// tokenService implements portssvc.TokenSvc with HS256 JWTs. Access and
// refresh tokens use independent secrets.
type tokenService struct {
	accessSecret  string
	refreshSecret string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// TokenOption customizes the token service.
type TokenOption func(*tokenService)

// WithClock overrides the clock used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *tokenService) {
		s.now = now
	}
}

// NewTokenService creates a new instance of tokenService.
func NewTokenService(cfg *config.Config, opts ...TokenOption) (portssvc.TokenSvc, error) {
	if cfg.JWTSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.JWTSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	s := &tokenService{
		accessSecret:  cfg.JWTSecret,
		refreshSecret: cfg.RefreshTokenSecret,
		accessTTL:     cfg.JWTExpiryDuration,
		refreshTTL:    cfg.RefreshTokenExpiryDuration,
		issuer:        cfg.JWTIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ portssvc.TokenSvc = (*tokenService)(nil)

// IssuePair signs a new access and refresh token for the user.
func (s *tokenService) IssuePair(userID, email string) (*domain.TokenPair, error) {
	now := s.now()
	accessToken, accessExp, err := s.sign(userID, email, domain.TokenTypeAccess, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refreshToken, refreshExp, err := s.sign(userID, email, domain.TokenTypeRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &domain.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token.
func (s *tokenService) VerifyAccess(token string) (*domain.TokenPayload, error) {
	return s.verify(token, domain.TokenTypeAccess)
}

// VerifyRefresh validates a refresh token.
func (s *tokenService) VerifyRefresh(token string) (*domain.TokenPayload, error) {
	return s.verify(token, domain.TokenTypeRefresh)
}

func (s *tokenService) sign(userID, email string, typ domain.TokenType, now time.Time) (string, time.Time, error) {
	secret, ttl := s.secretFor(typ), s.ttlFor(typ)
	expiresAt := now.Add(ttl)
	claims := utils.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := utils.GenerateJWT(claims, secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *tokenService) verify(token string, expected domain.TokenType) (*domain.TokenPayload, error) {
	payload, err := s.verifyWith(token, expected)
	result := "ok"
	if err != nil {
		result = resultLabel(err)
	}
	metrics.RecordTokenVerification(string(expected), result)
	return payload, err
}

func (s *tokenService) verifyWith(token string, expected domain.TokenType) (*domain.TokenPayload, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}

	claims, err := utils.ParseAndValidateJWT(token, s.secretFor(expected), s.parserOptions()...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrExpiredToken.Wrap(err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			// A token that verifies under the other context's secret is a
			// type confusion, not a forgery.
			if s.signedAsOther(token, expected) {
				return nil, apperrors.ErrWrongTokenType
			}
			return nil, apperrors.ErrInvalidToken.Wrap(err)
		default:
			return nil, apperrors.ErrInvalidToken.Wrap(err)
		}
	}

	if domain.TokenType(claims.Type) != expected {
		return nil, apperrors.ErrWrongTokenType
	}
	if claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, apperrors.ErrInvalidToken
	}

	return &domain.TokenPayload{
		UserID: claims.UserID,
		Email:  claims.Email,
		Type:   expected,
	}, nil
}

// signedAsOther reports whether token carries a valid signature from the
// opposite token type's secret, ignoring expiry.
func (s *tokenService) signedAsOther(token string, expected domain.TokenType) bool {
	other := domain.TokenTypeRefresh
	if expected == domain.TokenTypeRefresh {
		other = domain.TokenTypeAccess
	}
	claims, err := utils.ParseAndValidateJWT(token, s.secretFor(other), jwt.WithoutClaimsValidation())
	return err == nil && domain.TokenType(claims.Type) == other
}

func (s *tokenService) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired()}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	return opts
}

func (s *tokenService) secretFor(typ domain.TokenType) string {
	if typ == domain.TokenTypeRefresh {
		return s.refreshSecret
	}
	return s.accessSecret
}

func (s *tokenService) ttlFor(typ domain.TokenType) time.Duration {
	if typ == domain.TokenTypeRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

func resultLabel(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
