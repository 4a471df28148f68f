package pgsql

import (
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the postgres-backed repositories.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AuthAccountRepo: newPgxAuthAccountRepository(dbPool),
		ProfileRepo:     newPgxProfileRepository(dbPool),
		SessionRepo:     newPgxSessionRepository(dbPool),
	}
}
