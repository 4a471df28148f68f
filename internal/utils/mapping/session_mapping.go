package mapping

import (
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	"github.com/SscSPs/saas_starter_auth/internal/models"
)

// ToModelSession converts a domain Session to its row.
func ToModelSession(d domain.Session) models.Session {
	return models.Session{
		SessionID:     d.SessionID,
		AuthAccountID: d.AuthAccountID,
		AuthMethod:    string(d.AuthMethod),
		CreatedAt:     d.CreatedAt,
		LastActiveAt:  d.LastActiveAt,
		Browser:       d.Browser,
		OS:            d.OS,
		Device:        d.Device,
		IPAddress:     d.IPAddress,
		RevokedAt:     d.RevokedAt,
	}
}

// ToDomainSession converts a session row to a domain Session.
func ToDomainSession(m models.Session) domain.Session {
	return domain.Session{
		SessionID:     m.SessionID,
		AuthAccountID: m.AuthAccountID,
		AuthMethod:    domain.Provider(m.AuthMethod),
		CreatedAt:     m.CreatedAt,
		LastActiveAt:  m.LastActiveAt,
		Browser:       m.Browser,
		OS:            m.OS,
		Device:        m.Device,
		IPAddress:     m.IPAddress,
		RevokedAt:     m.RevokedAt,
	}
}

// ToDomainSessionSlice converts session rows to domain Sessions.
func ToDomainSessionSlice(ms []models.Session) []domain.Session {
	ds := make([]domain.Session, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainSession(m)
	}
	return ds
}
