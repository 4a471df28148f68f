package models

import "time"

// AuthAccount is the row stored in auth_accounts.
type AuthAccount struct {
	AuthAccountID string  `db:"auth_account_id"`
	Email         string  `db:"email"`
	PasswordHash  *string `db:"password_hash"` // Nullable: OAuth-only accounts have none
	IsVerified    bool    `db:"is_verified"`

	VerificationCodeHash   *string    `db:"verification_code_hash"`
	VerificationCodeExpiry *time.Time `db:"verification_code_expires_at"`
	VerificationAttempts   int        `db:"verification_attempts"`

	ResetTokenHash   *string    `db:"reset_token_hash"`
	ResetTokenExpiry *time.Time `db:"reset_token_expires_at"`

	PendingFirstName *string `db:"pending_first_name"`
	PendingLastName  *string `db:"pending_last_name"`

	LastLoginAt       *time.Time `db:"last_login_at"`
	LastLoginProvider *string    `db:"last_login_provider"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AuthIdentity is the row stored in auth_identities, one per linked provider.
type AuthIdentity struct {
	IdentityID    string    `db:"identity_id"`
	AuthAccountID string    `db:"auth_account_id"`
	Provider      string    `db:"provider"`
	ProviderID    string    `db:"provider_id"`
	ProviderEmail string    `db:"provider_email"`
	IsVerified    bool      `db:"is_verified"`
	IsPrimary     bool      `db:"is_primary"`
	LinkedAt      time.Time `db:"linked_at"`
}
