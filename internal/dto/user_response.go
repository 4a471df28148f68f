package dto

import (
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// IdentityResponse is one linked sign-in method.
type IdentityResponse struct {
	Provider   domain.Provider `json:"provider"`
	IsVerified bool            `json:"isVerified"`
	IsPrimary  bool            `json:"isPrimary"`
	LinkedAt   time.Time       `json:"linkedAt"`
}

// ProfileResponse is the public profile of an account.
type ProfileResponse struct {
	ProfileID          string             `json:"profileId"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	Username           string             `json:"username"`
	HasChangedUsername bool               `json:"hasChangedUsername"`
	Avatar             *string            `json:"avatar,omitempty"`
	Bio                *string            `json:"bio,omitempty"`
	DOB                *string            `json:"dob,omitempty"`
	Location           *string            `json:"location,omitempty"`
	SocialAccounts     []SocialAccountDTO `json:"socialAccounts"`
	Preferences        PreferencesDTO     `json:"preferences"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// ToProfileResponse converts a profile. A nil profile yields nil.
func ToProfileResponse(p *domain.Profile) *ProfileResponse {
	if p == nil {
		return nil
	}
	resp := &ProfileResponse{
		ProfileID:          p.ProfileID,
		FirstName:          p.FirstName,
		LastName:           p.LastName,
		Username:           p.Username,
		HasChangedUsername: p.HasChangedUsername,
		Avatar:             p.Avatar,
		Bio:                p.Bio,
		Location:           p.Location,
		SocialAccounts:     make([]SocialAccountDTO, len(p.SocialAccounts)),
		Preferences:        PreferencesDTO{Theme: p.Preferences.Theme, Font: p.Preferences.Font},
		UpdatedAt:          p.UpdatedAt,
	}
	if p.DOB != nil {
		dob := p.DOB.Format(DateLayout)
		resp.DOB = &dob
	}
	for i, sa := range p.SocialAccounts {
		resp.SocialAccounts[i] = SocialAccountDTO{Provider: sa.Provider, URL: sa.URL}
	}
	return resp
}

// UserResponse combines the account and its profile.
type UserResponse struct {
	UserID            string             `json:"userId"`
	Email             string             `json:"email"`
	IsVerified        bool               `json:"isVerified"`
	HasPassword       bool               `json:"hasPassword"`
	PrimaryProvider   domain.Provider    `json:"primaryProvider"`
	Identities        []IdentityResponse `json:"identities"`
	LastLoginAt       *time.Time         `json:"lastLoginAt,omitempty"`
	LastLoginProvider *domain.Provider   `json:"lastLoginProvider,omitempty"`
	Profile           *ProfileResponse   `json:"profile,omitempty"`
}

// ToUserResponse converts an account and optional profile.
func ToUserResponse(a *domain.AuthAccount, p *domain.Profile) UserResponse {
	if a == nil {
		return UserResponse{Profile: ToProfileResponse(p)}
	}
	resp := UserResponse{
		UserID:            a.AuthAccountID,
		Email:             a.Email,
		IsVerified:        a.IsVerified,
		HasPassword:       a.HasPassword,
		PrimaryProvider:   a.PrimaryProvider(),
		Identities:        make([]IdentityResponse, len(a.Identities)),
		LastLoginAt:       a.LastLoginAt,
		LastLoginProvider: a.LastLoginProvider,
		Profile:           ToProfileResponse(p),
	}
	for i, id := range a.Identities {
		resp.Identities[i] = IdentityResponse{
			Provider:   id.Provider,
			IsVerified: id.IsVerified,
			IsPrimary:  id.IsPrimary,
			LinkedAt:   id.LinkedAt,
		}
	}
	return resp
}
