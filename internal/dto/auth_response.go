package dto

import (
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// TokensResponse is returned by POST /auth/refresh.
type TokensResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// ToTokensResponse converts a token pair.
func ToTokensResponse(p domain.TokenPair) TokensResponse {
	return TokensResponse{
		AccessToken:           p.AccessToken,
		RefreshToken:          p.RefreshToken,
		AccessTokenExpiresAt:  p.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: p.RefreshTokenExpiresAt,
	}
}

// SessionResponse describes one device session.
type SessionResponse struct {
	SessionID    string          `json:"sessionId"`
	AuthMethod   domain.Provider `json:"authMethod"`
	Browser      string          `json:"browser"`
	OS           string          `json:"os"`
	Device       string          `json:"device"`
	IPAddress    string          `json:"ipAddress"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActiveAt time.Time       `json:"lastActiveAt"`
	Current      bool            `json:"current"`
}

// ToSessionResponse converts a session, flagging it when it is the caller's.
func ToSessionResponse(s domain.Session, currentSessionID string) SessionResponse {
	return SessionResponse{
		SessionID:    s.SessionID,
		AuthMethod:   s.AuthMethod,
		Browser:      s.Browser,
		OS:           s.OS,
		Device:       s.Device,
		IPAddress:    s.IPAddress,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
		Current:      currentSessionID != "" && s.SessionID == currentSessionID,
	}
}

// ToSessionListResponse converts a session list.
func ToSessionListResponse(sessions []domain.Session, currentSessionID string) []SessionResponse {
	out := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = ToSessionResponse(s, currentSessionID)
	}
	return out
}

// AuthResponse is returned by every login path.
type AuthResponse struct {
	TokensResponse
	Session SessionResponse `json:"session"`
	User    UserResponse    `json:"user"`
}

// ToAuthResponse converts a completed login.
func ToAuthResponse(r *domain.AuthResult) AuthResponse {
	resp := AuthResponse{
		TokensResponse: ToTokensResponse(r.Tokens),
		User:           ToUserResponse(r.Account, r.Profile),
	}
	if r.Session != nil {
		resp.Session = ToSessionResponse(*r.Session, r.Session.SessionID)
	}
	return resp
}

// CreateAccountResponse is returned by POST /auth/create-account.
type CreateAccountResponse struct {
	AuthAccountID string `json:"authAccountId"`
	Email         string `json:"email"`
	IsVerified    bool   `json:"isVerified"`
}

// LogOutEverywhereResponse reports how many sessions were revoked.
type LogOutEverywhereResponse struct {
	RevokedSessions int `json:"revokedSessions"`
}
