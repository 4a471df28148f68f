package domain

import "time"

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPayload is the application data carried in a signed token.
type TokenPayload struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Type   TokenType `json:"type"`
}

// TokenPair is issued at every login and on every refresh.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// Principal is the authenticated caller of a guarded request.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
}
