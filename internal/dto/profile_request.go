package dto

import (
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// DateLayout is the wire format of a date of birth.
const DateLayout = "2006-01-02"

// SocialAccountDTO is one social link on a profile.
type SocialAccountDTO struct {
	Provider string `json:"provider" binding:"required,max=50"`
	URL      string `json:"url" binding:"required,url,max=500"`
}

// PreferencesDTO holds UI preferences.
type PreferencesDTO struct {
	Theme string `json:"theme" binding:"omitempty,oneof=light dark system"`
	Font  string `json:"font" binding:"max=50"`
}

// UpdateProfileRequest is the body of PATCH /profile. Omitted fields are unchanged.
type UpdateProfileRequest struct {
	FirstName      *string            `json:"firstName"`
	LastName       *string            `json:"lastName"`
	Avatar         *string            `json:"avatar" binding:"omitempty,url"`
	Bio            *string            `json:"bio"`
	DOB            *string            `json:"dob" binding:"omitempty,datetime=2006-01-02"`
	Location       *string            `json:"location"`
	SocialAccounts []SocialAccountDTO `json:"socialAccounts" binding:"omitempty,dive"`
	Preferences    *PreferencesDTO    `json:"preferences"`
}

// ToProfileUpdate converts the request into the service input. DOB has
// already been validated by the binding.
func (r UpdateProfileRequest) ToProfileUpdate() domain.ProfileUpdate {
	update := domain.ProfileUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Avatar:    r.Avatar,
		Bio:       r.Bio,
		Location:  r.Location,
	}
	if r.DOB != nil {
		if dob, err := time.Parse(DateLayout, *r.DOB); err == nil {
			update.DOB = &dob
		}
	}
	if r.SocialAccounts != nil {
		update.SocialAccounts = make([]domain.SocialAccount, len(r.SocialAccounts))
		for i, sa := range r.SocialAccounts {
			update.SocialAccounts[i] = domain.SocialAccount{Provider: sa.Provider, URL: sa.URL}
		}
	}
	if r.Preferences != nil {
		update.Preferences = &domain.Preferences{Theme: r.Preferences.Theme, Font: r.Preferences.Font}
	}
	return update
}

// ChangeUsernameRequest is the body of POST /change-username.
type ChangeUsernameRequest struct {
	Username string `json:"username" binding:"required,username"`
}

// DeleteUserRequest is the body of DELETE /delete-user. Password is required
// when the account has one.
type DeleteUserRequest struct {
	Password string `json:"password"`
}

// RevokeSessionRequest is the body of DELETE /sessions.
type RevokeSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}
