// Package users provides the PostgreSQL-backed repository for account rows
// and the per-user profile link sets.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/dbx"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user row. The caller assigns the id.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, password_hash, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.ImageURL).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetByUsername returns the bare account row (no link sets). Used on the
// login path where only the credentials matter.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, image_url, created_at
		FROM users
		WHERE username = $1
	`
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.ImageURL, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// GetByID returns the user with the created/unlocked/saved sets populated.
func (r *PostgresRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, image_url, created_at
		FROM users
		WHERE id = $1
	`
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.ImageURL, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.loadProfileLinks(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UsernameExists reports whether any user holds the given username.
func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// AddProfileLink records a created/unlocked/saved relation and reports
// whether a new row was inserted. Re-adding an existing link is a no-op so
// save and unlock stay idempotent; callers that pay per link check the
// returned flag.
func (r *PostgresRepository) AddProfileLink(ctx context.Context, userID, profileID string, relation models.ProfileRelation) (bool, error) {
	query := `
		INSERT INTO user_profiles (user_id, profile_id, relation)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, userID, profileID, relation)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) loadProfileLinks(ctx context.Context, user *models.User) error {
	query := `
		SELECT profile_id, relation
		FROM user_profiles
		WHERE user_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, user.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	user.CreatedProfileIDs = make(map[string]struct{})
	user.UnlockedProfileIDs = make(map[string]struct{})
	user.SavedProfileIDs = make(map[string]struct{})

	for rows.Next() {
		var profileID string
		var relation models.ProfileRelation
		if err := rows.Scan(&profileID, &relation); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		switch relation {
		case models.RelationCreated:
			user.CreatedProfileIDs[profileID] = struct{}{}
		case models.RelationUnlocked:
			user.UnlockedProfileIDs[profileID] = struct{}{}
		case models.RelationSaved:
			user.SavedProfileIDs[profileID] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
