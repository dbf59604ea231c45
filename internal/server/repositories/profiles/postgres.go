// Package profiles provides the PostgreSQL-backed repository for admission
// profiles. The nested admission and score lists ride in JSONB columns so a
// profile reads and writes as one document.
package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/dbx"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

const profileColumns = `id, owner_user_id, owner_username, display_name, price, purchase_count,
		published, current_school, current_major, current_description, image_url,
		school_admissions, test_scores, created_at`

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new profile row. The caller assigns the id.
func (r *PostgresRepository) Create(ctx context.Context, profile *models.Profile) error {
	admissions, err := json.Marshal(profile.SchoolAdmissions)
	if err != nil {
		return fmt.Errorf("encoding school admissions: %w", err)
	}
	scores, err := json.Marshal(profile.TestScores)
	if err != nil {
		return fmt.Errorf("encoding test scores: %w", err)
	}

	query := `
		INSERT INTO profiles (id, owner_user_id, owner_username, display_name, price,
			published, current_school, current_major, current_description, image_url,
			school_admissions, test_scores)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		profile.ID, profile.OwnerUserID, profile.OwnerUsername, profile.DisplayName,
		profile.Price, profile.Published, profile.CurrentSchool, profile.CurrentMajor,
		profile.CurrentDescription, profile.ImageURL, admissions, scores).
		Scan(&profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the profile with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, profileID string) (*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1
	`
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, profileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// ListPublished returns every published profile, newest first.
func (r *PostgresRepository) ListPublished(ctx context.Context) ([]*models.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE published
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectProfiles(rows)
}

// GetByIDs returns the profiles matching the given ids. Missing ids are
// silently skipped, keeping bulk listings tolerant of dangling links.
func (r *PostgresRepository) GetByIDs(ctx context.Context, profileIDs []string) ([]*models.Profile, error) {
	if len(profileIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(profileIDs))
	args := make([]any, len(profileIDs))
	for i, id := range profileIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectProfiles(rows)
}

// IncrementPurchaseCount bumps the purchase counter by one.
func (r *PostgresRepository) IncrementPurchaseCount(ctx context.Context, profileID string) error {
	query := `
		UPDATE profiles
		SET purchase_count = purchase_count + 1
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, profileID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	profile := &models.Profile{}
	var admissions, scores []byte

	err := row.Scan(&profile.ID, &profile.OwnerUserID, &profile.OwnerUsername,
		&profile.DisplayName, &profile.Price, &profile.PurchaseCount, &profile.Published,
		&profile.CurrentSchool, &profile.CurrentMajor, &profile.CurrentDescription,
		&profile.ImageURL, &admissions, &scores, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(admissions, &profile.SchoolAdmissions); err != nil {
		return nil, fmt.Errorf("decoding school admissions: %w", err)
	}
	if err := json.Unmarshal(scores, &profile.TestScores); err != nil {
		return nil, fmt.Errorf("decoding test scores: %w", err)
	}
	return profile, nil
}

func collectProfiles(rows *sql.Rows) ([]*models.Profile, error) {
	defer rows.Close()

	var result []*models.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
