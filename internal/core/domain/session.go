package domain

import "time"

// Session is one logged-in device or browser of an account.
type Session struct {
	SessionID     string     `json:"sessionId"`
	AuthAccountID string     `json:"authAccountId"`
	AuthMethod    Provider   `json:"authMethod"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastActiveAt  time.Time  `json:"lastActiveAt"`
	Browser       string     `json:"browser"`
	OS            string     `json:"os"`
	Device        string     `json:"device"`
	IPAddress     string     `json:"ipAddress"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"`
}

// IsActive reports whether the session has not been revoked.
func (s *Session) IsActive() bool {
	return s != nil && s.RevokedAt == nil
}

// RequestContext is the slice of an inbound request a session is derived from.
type RequestContext struct {
	UserAgent string
	// PlatformVersion is the Sec-CH-UA-Platform-Version hint, when sent.
	PlatformVersion string
	ForwardedFor    string
	RealIP          string
	RemoteAddress   string
}

// CreateSessionInput describes a session to start.
type CreateSessionInput struct {
	AuthAccountID  string
	AuthMethod     Provider
	RequestContext RequestContext
}
