package domain

import "time"

// SocialAccount is a link shown on a public profile.
type SocialAccount struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// Preferences holds UI preferences of the profile owner.
type Preferences struct {
	Theme string `json:"theme"`
	Font  string `json:"font"`
}

// Profile is the public face of an AuthAccount. It lives in its own record so
// that profile edits never touch authentication data.
type Profile struct {
	ProfileID          string          `json:"profileId"`
	AuthAccountID      string          `json:"authAccountId"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	Username           string          `json:"username"`
	HasChangedUsername bool            `json:"hasChangedUsername"`
	Avatar             *string         `json:"avatar,omitempty"`
	Bio                *string         `json:"bio,omitempty"`
	DOB                *time.Time      `json:"dob,omitempty"`
	Location           *string         `json:"location,omitempty"`
	SocialAccounts     []SocialAccount `json:"socialAccounts"`
	Preferences        Preferences     `json:"preferences"`
	Timestamps
}

// DefaultPreferences is applied to newly created profiles.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "system", Font: "default"}
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Avatar         *string
	Bio            *string
	DOB            *time.Time
	Location       *string
	SocialAccounts []SocialAccount
	Preferences    *Preferences
}
