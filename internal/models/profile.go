package models

import "time"

// Profile is the row stored in profiles. SocialAccounts and Preferences are
// JSONB columns.
type Profile struct {
	ProfileID          string     `db:"profile_id"`
	AuthAccountID      string     `db:"auth_account_id"`
	FirstName          string     `db:"first_name"`
	LastName           string     `db:"last_name"`
	Username           string     `db:"username"`
	HasChangedUsername bool       `db:"has_changed_username"`
	Avatar             *string    `db:"avatar"`
	Bio                *string    `db:"bio"`
	DOB                *time.Time `db:"dob"`
	Location           *string    `db:"location"`
	SocialAccounts     []byte     `db:"social_accounts"`
	Preferences        []byte     `db:"preferences"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}
