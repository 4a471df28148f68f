package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	"github.com/SscSPs/saas_starter_auth/internal/models"
)

// ToModelProfile converts a domain Profile to its row, encoding the JSONB columns.
func ToModelProfile(d domain.Profile) (models.Profile, error) {
	social := d.SocialAccounts
	if social == nil {
		social = []domain.SocialAccount{}
	}
	socialJSON, err := json.Marshal(social)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to encode social accounts: %w", err)
	}
	prefsJSON, err := json.Marshal(d.Preferences)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return models.Profile{
		ProfileID:          d.ProfileID,
		AuthAccountID:      d.AuthAccountID,
		FirstName:          d.FirstName,
		LastName:           d.LastName,
		Username:           d.Username,
		HasChangedUsername: d.HasChangedUsername,
		Avatar:             d.Avatar,
		Bio:                d.Bio,
		DOB:                d.DOB,
		Location:           d.Location,
		SocialAccounts:     socialJSON,
		Preferences:        prefsJSON,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}, nil
}

// ToDomainProfile converts a profile row to a domain Profile.
func ToDomainProfile(m models.Profile) (domain.Profile, error) {
	d := domain.Profile{
		ProfileID:          m.ProfileID,
		AuthAccountID:      m.AuthAccountID,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		Username:           m.Username,
		HasChangedUsername: m.HasChangedUsername,
		Avatar:             m.Avatar,
		Bio:                m.Bio,
		DOB:                m.DOB,
		Location:           m.Location,
		SocialAccounts:     []domain.SocialAccount{},
		Preferences:        domain.DefaultPreferences(),
		Timestamps: domain.Timestamps{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}
	if len(m.SocialAccounts) > 0 {
		if err := json.Unmarshal(m.SocialAccounts, &d.SocialAccounts); err != nil {
			return domain.Profile{}, fmt.Errorf("failed to decode social accounts: %w", err)
		}
	}
	if len(m.Preferences) > 0 {
		if err := json.Unmarshal(m.Preferences, &d.Preferences); err != nil {
			return domain.Profile{}, fmt.Errorf("failed to decode preferences: %w", err)
		}
	}
	return d, nil
}
