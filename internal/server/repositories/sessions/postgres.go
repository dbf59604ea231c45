// Package sessions provides the PostgreSQL-backed repository for
// authentication sessions. Expired rows are never swept in the background;
// expiry is a predicate on every read, and rows are removed by explicit
// revoke or prune.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/dbx"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session row.
func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Valid reports whether a session with this id exists and expires strictly
// after now.
func (r *PostgresRepository) Valid(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1 AND expires_at > $2)
	`
	var valid bool
	if err := r.db.QueryRowContext(ctx, query, sessionID, now).Scan(&valid); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return valid, nil
}

// GetValid returns the session with this id when it expires strictly after
// now. Unknown and expired ids both map to common.ErrNotFound.
func (r *PostgresRepository) GetValid(ctx context.Context, sessionID string, now time.Time) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, sessionID, now).
		Scan(&session.ID, &session.UserID, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

// Refresh moves the session's expiry forward to expiresAt. GREATEST keeps the
// stored expiry monotonic, and updating a missing row is a no-op.
func (r *PostgresRepository) Refresh(ctx context.Context, sessionID string, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET expires_at = GREATEST(expires_at, $1)
		WHERE id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, expiresAt, sessionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the matching session from the user; absent rows are a no-op.
func (r *PostgresRepository) Delete(ctx context.Context, userID, sessionID string) error {
	query := `
		DELETE FROM sessions
		WHERE user_id = $1 AND id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, sessionID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired removes every session of the user with expiry at or before
// now, leaving active sessions untouched.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, userID string, now time.Time) error {
	query := `
		DELETE FROM sessions
		WHERE user_id = $1 AND expires_at <= $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
