package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	"github.com/SscSPs/saas_starter_auth/internal/models"
	"github.com/SscSPs/saas_starter_auth/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxSessionRepository struct {
	BaseRepository
}

func newPgxSessionRepository(db *pgxpool.Pool) portsrepo.SessionRepositoryFacade {
	return &PgxSessionRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.SessionRepositoryFacade = (*PgxSessionRepository)(nil)

const (
	selectSessionFields = `
		session_id, auth_account_id, auth_method, created_at, last_active_at,
		browser, os, device, ip_address, revoked_at
	`

	insertSessionQuery = `
		INSERT INTO sessions (
			session_id, auth_account_id, auth_method, created_at, last_active_at,
			browser, os, device, ip_address, revoked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	findSessionByIDQuery = `
		SELECT ` + selectSessionFields + `
		FROM sessions
		WHERE session_id = $1
	`

	listActiveSessionsQuery = `
		SELECT ` + selectSessionFields + `
		FROM sessions
		WHERE auth_account_id = $1 AND revoked_at IS NULL
		ORDER BY last_active_at DESC, created_at DESC
	`

	// COALESCE keeps the first revocation time.
	revokeSessionQuery = `
		UPDATE sessions
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE session_id = $1
	`

	revokeAllSessionsQuery = `
		UPDATE sessions
		SET revoked_at = $3
		WHERE auth_account_id = $1 AND revoked_at IS NULL AND session_id <> $2
		RETURNING session_id
	`

	touchSessionQuery = `
		UPDATE sessions
		SET last_active_at = GREATEST(last_active_at, $2)
		WHERE session_id = $1 AND revoked_at IS NULL
	`
)

// SaveSession inserts a new session.
func (r *PgxSessionRepository) SaveSession(ctx context.Context, session domain.Session) error {
	m := mapping.ToModelSession(session)
	_, err := r.Pool.Exec(ctx, insertSessionQuery,
		m.SessionID,
		m.AuthAccountID,
		m.AuthMethod,
		m.CreatedAt,
		m.LastActiveAt,
		m.Browser,
		m.OS,
		m.Device,
		m.IPAddress,
		m.RevokedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.ErrDuplicate
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// FindSessionByID retrieves a session, revoked or not.
func (r *PgxSessionRepository) FindSessionByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	m, err := scanSession(r.Pool.QueryRow(ctx, findSessionByIDQuery, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	session := mapping.ToDomainSession(*m)
	return &session, nil
}

// ListActiveSessionsByAccount returns non-revoked sessions, most recently active first.
func (r *PgxSessionRepository) ListActiveSessionsByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	rows, err := r.Pool.Query(ctx, listActiveSessionsQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		m, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return mapping.ToDomainSessionSlice(sessions), nil
}

// RevokeSession sets revoked_at once.
func (r *PgxSessionRepository) RevokeSession(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, revokeSessionQuery, sessionID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RevokeAllByAccount revokes active sessions of the account except one.
func (r *PgxSessionRepository) RevokeAllByAccount(ctx context.Context, accountID string, exceptSessionID string, at time.Time) ([]string, error) {
	rows, err := r.Pool.Query(ctx, revokeAllSessionsQuery, accountID, exceptSessionID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke sessions for account %s: %w", accountID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect revoked session ids: %w", err)
	}
	return ids, nil
}

// TouchSession moves last_active_at forward on an active session.
func (r *PgxSessionRepository) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, touchSessionQuery, sessionID, at)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var m models.Session
	err := row.Scan(
		&m.SessionID,
		&m.AuthAccountID,
		&m.AuthMethod,
		&m.CreatedAt,
		&m.LastActiveAt,
		&m.Browser,
		&m.OS,
		&m.Device,
		&m.IPAddress,
		&m.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
