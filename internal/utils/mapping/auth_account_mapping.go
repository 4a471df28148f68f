package mapping

import (
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	"github.com/SscSPs/saas_starter_auth/internal/models"
)

// ToModelAuthAccount converts a domain AuthAccount to its row. Identities are
// mapped separately with ToModelIdentity.
func ToModelAuthAccount(d domain.AuthAccount) models.AuthAccount {
	m := models.AuthAccount{
		AuthAccountID:          d.AuthAccountID,
		Email:                  d.Email,
		PasswordHash:           d.PasswordHash,
		IsVerified:             d.IsVerified,
		VerificationCodeHash:   d.VerificationCode,
		VerificationCodeExpiry: d.VerificationCodeExpiry,
		VerificationAttempts:   d.VerificationAttempts,
		ResetTokenHash:         d.ResetPasswordTokenHash,
		ResetTokenExpiry:       d.ResetPasswordTokenExpiry,
		LastLoginAt:            d.LastLoginAt,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
	if d.PendingProfile != nil {
		m.PendingFirstName = &d.PendingProfile.FirstName
		m.PendingLastName = &d.PendingProfile.LastName
	}
	if d.LastLoginProvider != nil {
		p := string(*d.LastLoginProvider)
		m.LastLoginProvider = &p
	}
	return m
}

// ToDomainAuthAccount converts a row and its identity rows to a domain AuthAccount.
func ToDomainAuthAccount(m models.AuthAccount, identities []models.AuthIdentity) domain.AuthAccount {
	d := domain.AuthAccount{
		AuthAccountID:            m.AuthAccountID,
		Email:                    m.Email,
		PasswordHash:             m.PasswordHash,
		IsVerified:               m.IsVerified,
		HasPassword:              m.PasswordHash != nil && *m.PasswordHash != "",
		Identities:               make([]domain.Identity, 0, len(identities)),
		VerificationCode:         m.VerificationCodeHash,
		VerificationCodeExpiry:   m.VerificationCodeExpiry,
		VerificationAttempts:     m.VerificationAttempts,
		ResetPasswordTokenHash:   m.ResetTokenHash,
		ResetPasswordTokenExpiry: m.ResetTokenExpiry,
		LastLoginAt:              m.LastLoginAt,
		Timestamps: domain.Timestamps{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}
	for _, id := range identities {
		d.Identities = append(d.Identities, ToDomainIdentity(id))
	}
	if m.PendingFirstName != nil || m.PendingLastName != nil {
		d.PendingProfile = &domain.PendingProfile{}
		if m.PendingFirstName != nil {
			d.PendingProfile.FirstName = *m.PendingFirstName
		}
		if m.PendingLastName != nil {
			d.PendingProfile.LastName = *m.PendingLastName
		}
	}
	if m.LastLoginProvider != nil {
		p := domain.Provider(*m.LastLoginProvider)
		d.LastLoginProvider = &p
	}
	return d
}

// ToModelIdentity converts a domain Identity to its row.
func ToModelIdentity(accountID string, d domain.Identity) models.AuthIdentity {
	return models.AuthIdentity{
		IdentityID:    d.IdentityID,
		AuthAccountID: accountID,
		Provider:      string(d.Provider),
		ProviderID:    d.ProviderID,
		ProviderEmail: d.ProviderEmail,
		IsVerified:    d.IsVerified,
		IsPrimary:     d.IsPrimary,
		LinkedAt:      d.LinkedAt,
	}
}

// ToDomainIdentity converts an identity row to a domain Identity.
func ToDomainIdentity(m models.AuthIdentity) domain.Identity {
	return domain.Identity{
		IdentityID:    m.IdentityID,
		Provider:      domain.Provider(m.Provider),
		ProviderID:    m.ProviderID,
		ProviderEmail: m.ProviderEmail,
		IsVerified:    m.IsVerified,
		IsPrimary:     m.IsPrimary,
		LinkedAt:      m.LinkedAt,
	}
}
