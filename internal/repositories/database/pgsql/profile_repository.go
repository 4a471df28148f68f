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

type PgxProfileRepository struct {
	BaseRepository
}

func newPgxProfileRepository(db *pgxpool.Pool) portsrepo.ProfileRepositoryFacade {
	return &PgxProfileRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.ProfileRepositoryFacade = (*PgxProfileRepository)(nil)

const (
	selectProfileFields = `
		profile_id, auth_account_id, first_name, last_name, username,
		has_changed_username, avatar, bio, dob, location,
		social_accounts, preferences, created_at, updated_at
	`

	insertProfileQuery = `
		INSERT INTO profiles (
			profile_id, auth_account_id, first_name, last_name, username,
			has_changed_username, avatar, bio, dob, location,
			social_accounts, preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	updateProfileQuery = `
		UPDATE profiles
		SET first_name = $2,
			last_name = $3,
			avatar = $4,
			bio = $5,
			dob = $6,
			location = $7,
			social_accounts = $8,
			preferences = $9,
			updated_at = $10
		WHERE auth_account_id = $1
	`

	// The has_changed_username guard makes the one-time change a single
	// conditional write.
	changeUsernameOnceQuery = `
		UPDATE profiles
		SET username = $2, has_changed_username = TRUE, updated_at = $3
		WHERE auth_account_id = $1 AND has_changed_username = FALSE
	`
)

// SaveProfile inserts a new profile.
func (r *PgxProfileRepository) SaveProfile(ctx context.Context, profile domain.Profile) error {
	m, err := mapping.ToModelProfile(profile)
	if err != nil {
		return err
	}
	_, err = r.Pool.Exec(ctx, insertProfileQuery,
		m.ProfileID,
		m.AuthAccountID,
		m.FirstName,
		m.LastName,
		m.Username,
		m.HasChangedUsername,
		m.Avatar,
		m.Bio,
		m.DOB,
		m.Location,
		m.SocialAccounts,
		m.Preferences,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("failed to save profile for account %s: %w", m.AuthAccountID, err)
	}
	return nil
}

// FindProfileByAccountID retrieves the profile of an account.
func (r *PgxProfileRepository) FindProfileByAccountID(ctx context.Context, accountID string) (*domain.Profile, error) {
	return r.findProfile(ctx, `WHERE auth_account_id = $1`, accountID)
}

// FindProfileByUsername retrieves a profile by username, case-insensitively.
func (r *PgxProfileRepository) FindProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.findProfile(ctx, `WHERE lower(username) = lower($1)`, username)
}

// UsernameExists reports whether any profile uses the username.
func (r *PgxProfileRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(username) = lower($1))`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

func (r *PgxProfileRepository) findProfile(ctx context.Context, where string, arg string) (*domain.Profile, error) {
	query := `SELECT ` + selectProfileFields + ` FROM profiles ` + where
	var m models.Profile
	err := r.Pool.QueryRow(ctx, query, arg).Scan(
		&m.ProfileID,
		&m.AuthAccountID,
		&m.FirstName,
		&m.LastName,
		&m.Username,
		&m.HasChangedUsername,
		&m.Avatar,
		&m.Bio,
		&m.DOB,
		&m.Location,
		&m.SocialAccounts,
		&m.Preferences,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	profile, err := mapping.ToDomainProfile(m)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile persists the editable fields. Username is not touched.
func (r *PgxProfileRepository) UpdateProfile(ctx context.Context, profile domain.Profile) error {
	m, err := mapping.ToModelProfile(profile)
	if err != nil {
		return err
	}
	tag, err := r.Pool.Exec(ctx, updateProfileQuery,
		m.AuthAccountID,
		m.FirstName,
		m.LastName,
		m.Avatar,
		m.Bio,
		m.DOB,
		m.Location,
		m.SocialAccounts,
		m.Preferences,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile for account %s: %w", m.AuthAccountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ChangeUsernameOnce applies the change only while has_changed_username is false.
func (r *PgxProfileRepository) ChangeUsernameOnce(ctx context.Context, accountID string, username string, at time.Time) (bool, error) {
	tag, err := r.Pool.Exec(ctx, changeUsernameOnceQuery, accountID, username, at)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return false, apperrors.ErrDuplicate
		}
		return false, fmt.Errorf("failed to change username: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
