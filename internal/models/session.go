package models

import "time"

// Session is the row stored in sessions.
type Session struct {
	SessionID     string     `db:"session_id"`
	AuthAccountID string     `db:"auth_account_id"`
	AuthMethod    string     `db:"auth_method"`
	CreatedAt     time.Time  `db:"created_at"`
	LastActiveAt  time.Time  `db:"last_active_at"`
	Browser       string     `db:"browser"`
	OS            string     `db:"os"`
	Device        string     `db:"device"`
	IPAddress     string     `db:"ip_address"`
	RevokedAt     *time.Time `db:"revoked_at"`
}
