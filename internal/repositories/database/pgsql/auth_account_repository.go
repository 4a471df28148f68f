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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAuthAccountRepository struct {
	BaseRepository
}

func newPgxAuthAccountRepository(db *pgxpool.Pool) portsrepo.AuthAccountRepositoryFacade {
	return &PgxAuthAccountRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.AuthAccountRepositoryFacade = (*PgxAuthAccountRepository)(nil)

const (
	selectAuthAccountFields = `
		auth_account_id, email, password_hash, is_verified,
		verification_code_hash, verification_code_expires_at, verification_attempts,
		reset_token_hash, reset_token_expires_at,
		pending_first_name, pending_last_name,
		last_login_at, last_login_provider, created_at, updated_at
	`

	selectIdentityFields = `
		identity_id, auth_account_id, provider, provider_id, provider_email,
		is_verified, is_primary, linked_at
	`

	insertAuthAccountQuery = `
		INSERT INTO auth_accounts (
			auth_account_id, email, password_hash, is_verified,
			verification_code_hash, verification_code_expires_at,
			pending_first_name, pending_last_name, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	insertIdentityQuery = `
		INSERT INTO auth_identities (
			identity_id, auth_account_id, provider, provider_id, provider_email,
			is_verified, is_primary, linked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	findAuthAccountByIDQuery = `
		SELECT ` + selectAuthAccountFields + `
		FROM auth_accounts
		WHERE auth_account_id = $1
	`

	findAuthAccountByEmailQuery = `
		SELECT ` + selectAuthAccountFields + `
		FROM auth_accounts
		WHERE lower(email) = lower($1)
	`

	findIdentitiesByAccountQuery = `
		SELECT ` + selectIdentityFields + `
		FROM auth_identities
		WHERE auth_account_id = $1
		ORDER BY linked_at ASC, identity_id ASC
	`

	updateAuthAccountQuery = `
		UPDATE auth_accounts
		SET is_verified = $2,
			verification_code_hash = $3,
			verification_code_expires_at = $4,
			reset_token_hash = $5,
			reset_token_expires_at = $6,
			pending_first_name = $7,
			pending_last_name = $8,
			updated_at = $9,
			verification_attempts = $10
		WHERE auth_account_id = $1
	`

	// The right-hand sides see the pre-update row, so the guess that reaches
	// maxAttempts is the one that clears the code.
	recordFailedVerificationQuery = `
		UPDATE auth_accounts
		SET verification_attempts = verification_attempts + 1,
			verification_code_hash = CASE WHEN verification_attempts + 1 >= $2 THEN NULL ELSE verification_code_hash END,
			verification_code_expires_at = CASE WHEN verification_attempts + 1 >= $2 THEN NULL ELSE verification_code_expires_at END,
			updated_at = $3
		WHERE auth_account_id = $1 AND verification_code_hash IS NOT NULL
		RETURNING verification_attempts
	`

	claimUnverifiedAccountQuery = `
		UPDATE auth_accounts
		SET password_hash = NULL,
			is_verified = TRUE,
			verification_code_hash = NULL,
			verification_code_expires_at = NULL,
			verification_attempts = 0,
			reset_token_hash = NULL,
			reset_token_expires_at = NULL,
			pending_first_name = NULL,
			pending_last_name = NULL,
			updated_at = $2
		WHERE auth_account_id = $1 AND is_verified = FALSE
	`

	deleteUnverifiedIdentitiesQuery = `
		DELETE FROM auth_identities
		WHERE auth_account_id = $1 AND is_verified = FALSE
	`

	markIdentityVerifiedQuery = `
		UPDATE auth_identities
		SET is_verified = TRUE
		WHERE auth_account_id = $1 AND provider = $2
	`

	setPasswordIfAbsentQuery = `
		UPDATE auth_accounts
		SET password_hash = $2, updated_at = $3
		WHERE auth_account_id = $1 AND password_hash IS NULL
	`

	updatePasswordQuery = `
		UPDATE auth_accounts
		SET password_hash = $2, updated_at = $3
		WHERE auth_account_id = $1
	`

	recordLoginQuery = `
		UPDATE auth_accounts
		SET last_login_at = $3, last_login_provider = $2, updated_at = $3
		WHERE auth_account_id = $1
	`

	revokeAccountSessionsQuery = `
		UPDATE sessions
		SET revoked_at = $2
		WHERE auth_account_id = $1 AND revoked_at IS NULL
	`

	deleteAuthAccountQuery = `
		DELETE FROM auth_accounts
		WHERE auth_account_id = $1
	`
)

// SaveAccount inserts the account and its identities in one transaction.
func (r *PgxAuthAccountRepository) SaveAccount(ctx context.Context, account domain.AuthAccount) error {
	m := mapping.ToModelAuthAccount(account)
	return r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertAuthAccountQuery,
			m.AuthAccountID,
			m.Email,
			m.PasswordHash,
			m.IsVerified,
			m.VerificationCodeHash,
			m.VerificationCodeExpiry,
			m.PendingFirstName,
			m.PendingLastName,
			m.CreatedAt,
			m.UpdatedAt,
		)
		if err != nil {
			if isPgError(err, pgUniqueViolation) {
				return apperrors.ErrDuplicate
			}
			return fmt.Errorf("failed to insert auth account: %w", err)
		}

		for _, identity := range account.Identities {
			if err := insertIdentity(ctx, tx, account.AuthAccountID, identity); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindAccountByID retrieves an account with its identities.
func (r *PgxAuthAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.AuthAccount, error) {
	return r.findAccount(ctx, findAuthAccountByIDQuery, accountID)
}

// FindAccountByEmail looks an account up case-insensitively.
func (r *PgxAuthAccountRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.AuthAccount, error) {
	return r.findAccount(ctx, findAuthAccountByEmailQuery, email)
}

func (r *PgxAuthAccountRepository) findAccount(ctx context.Context, query string, arg string) (*domain.AuthAccount, error) {
	var m models.AuthAccount
	err := r.Pool.QueryRow(ctx, query, arg).Scan(
		&m.AuthAccountID,
		&m.Email,
		&m.PasswordHash,
		&m.IsVerified,
		&m.VerificationCodeHash,
		&m.VerificationCodeExpiry,
		&m.VerificationAttempts,
		&m.ResetTokenHash,
		&m.ResetTokenExpiry,
		&m.PendingFirstName,
		&m.PendingLastName,
		&m.LastLoginAt,
		&m.LastLoginProvider,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find auth account: %w", err)
	}

	identities, err := r.findIdentities(ctx, m.AuthAccountID)
	if err != nil {
		return nil, err
	}

	account := mapping.ToDomainAuthAccount(m, identities)
	return &account, nil
}

func (r *PgxAuthAccountRepository) findIdentities(ctx context.Context, accountID string) ([]models.AuthIdentity, error) {
	rows, err := r.Pool.Query(ctx, findIdentitiesByAccountQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identities for account %s: %w", accountID, err)
	}
	defer rows.Close()

	var identities []models.AuthIdentity
	for rows.Next() {
		var m models.AuthIdentity
		if err := rows.Scan(
			&m.IdentityID,
			&m.AuthAccountID,
			&m.Provider,
			&m.ProviderID,
			&m.ProviderEmail,
			&m.IsVerified,
			&m.IsPrimary,
			&m.LinkedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		identities = append(identities, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating identities: %w", err)
	}
	return identities, nil
}

// UpdateAccount persists verification, reset and pending-profile state.
func (r *PgxAuthAccountRepository) UpdateAccount(ctx context.Context, account domain.AuthAccount) error {
	m := mapping.ToModelAuthAccount(account)
	tag, err := r.Pool.Exec(ctx, updateAuthAccountQuery,
		m.AuthAccountID,
		m.IsVerified,
		m.VerificationCodeHash,
		m.VerificationCodeExpiry,
		m.ResetTokenHash,
		m.ResetTokenExpiry,
		m.PendingFirstName,
		m.PendingLastName,
		m.UpdatedAt,
		m.VerificationAttempts,
	)
	if err != nil {
		return fmt.Errorf("failed to update auth account %s: %w", m.AuthAccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RecordFailedVerification counts a wrong verification code in a single
// conditional write and clears the code once maxAttempts is reached.
func (r *PgxAuthAccountRepository) RecordFailedVerification(ctx context.Context, accountID string, maxAttempts int, at time.Time) (int, error) {
	var attempts int
	err := r.Pool.QueryRow(ctx, recordFailedVerificationQuery, accountID, maxAttempts, at).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No account, or no live code left to guess against.
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("failed to record verification attempt for %s: %w", accountID, err)
	}
	return attempts, nil
}

// AddIdentity links a new provider identity to the account.
func (r *PgxAuthAccountRepository) AddIdentity(ctx context.Context, accountID string, identity domain.Identity) error {
	return insertIdentity(ctx, r.Pool, accountID, identity)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func insertIdentity(ctx context.Context, db execer, accountID string, identity domain.Identity) error {
	m := mapping.ToModelIdentity(accountID, identity)
	_, err := db.Exec(ctx, insertIdentityQuery,
		m.IdentityID,
		m.AuthAccountID,
		m.Provider,
		m.ProviderID,
		m.ProviderEmail,
		m.IsVerified,
		m.IsPrimary,
		m.LinkedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.ErrDuplicate
		}
		if isPgError(err, pgForeignKeyViolation) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to insert %s identity: %w", m.Provider, err)
	}
	return nil
}

// ClaimUnverifiedAccount resets an unverified account and links identity as
// its primary login, all in one transaction.
func (r *PgxAuthAccountRepository) ClaimUnverifiedAccount(ctx context.Context, accountID string, identity domain.Identity, at time.Time) (bool, error) {
	claimed := false
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		// The row lock taken here also serializes a concurrent code verification.
		tag, err := tx.Exec(ctx, claimUnverifiedAccountQuery, accountID, at)
		if err != nil {
			return fmt.Errorf("failed to reset unverified account %s: %w", accountID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, deleteUnverifiedIdentitiesQuery, accountID); err != nil {
			return fmt.Errorf("failed to drop unverified identities of %s: %w", accountID, err)
		}
		identity.IsPrimary = true
		if err := insertIdentity(ctx, tx, accountID, identity); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// MarkIdentityVerified flags the provider identity as verified.
func (r *PgxAuthAccountRepository) MarkIdentityVerified(ctx context.Context, accountID string, provider domain.Provider) error {
	tag, err := r.Pool.Exec(ctx, markIdentityVerifiedQuery, accountID, string(provider))
	if err != nil {
		return fmt.Errorf("failed to verify %s identity: %w", provider, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetPasswordIfAbsent writes the hash only while password_hash is NULL.
func (r *PgxAuthAccountRepository) SetPasswordIfAbsent(ctx context.Context, accountID string, passwordHash string, at time.Time) (bool, error) {
	tag, err := r.Pool.Exec(ctx, setPasswordIfAbsentQuery, accountID, passwordHash, at)
	if err != nil {
		return false, fmt.Errorf("failed to set password: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePassword replaces the password hash.
func (r *PgxAuthAccountRepository) UpdatePassword(ctx context.Context, accountID string, passwordHash string, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, updatePasswordQuery, accountID, passwordHash, at)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RecordLogin stores the last login time and provider.
func (r *PgxAuthAccountRepository) RecordLogin(ctx context.Context, accountID string, provider domain.Provider, at time.Time) error {
	tag, err := r.Pool.Exec(ctx, recordLoginQuery, accountID, string(provider), at)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteAccount revokes the account's sessions and deletes the account in one
// transaction; identities, profile and sessions cascade.
func (r *PgxAuthAccountRepository) DeleteAccount(ctx context.Context, accountID string, at time.Time) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, revokeAccountSessionsQuery, accountID, at); err != nil {
			return fmt.Errorf("failed to revoke sessions of account %s: %w", accountID, err)
		}
		tag, err := tx.Exec(ctx, deleteAuthAccountQuery, accountID)
		if err != nil {
			return fmt.Errorf("failed to delete account %s: %w", accountID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}
