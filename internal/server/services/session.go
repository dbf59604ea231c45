// Package services contains the server-side business logic. This file
// implements SessionService, which issues, validates, resolves, refreshes,
// revokes, and prunes authentication sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/config"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/repomanager"
)

// sessionTokenBytes is the entropy of a session id; the hex form is twice as
// long.
const sessionTokenBytes = 32

// SessionService manages the lifecycle of authentication sessions. A session
// is Active until its expiry passes (detected lazily on the next validate or
// resolve), then Expired until a prune removes it; revoke removes it
// directly. Users may hold any number of concurrent active sessions.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ttl         time.Duration
	now         func() time.Time
}

// NewSessionService constructs a SessionService using repositories and
// server config.
func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		ttl:         cfg.SessionTTL,
		now:         time.Now,
	}
}

// Issue creates a session for the user with a fresh opaque token expiring
// TTL from now, and persists it.
func (s *SessionService) Issue(ctx context.Context, userID string) (*models.Session, error) {
	token, err := common.MakeRandHexString(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: generating session token: %v", common.ErrInternal, err)
	}

	session := &models.Session{
		ID:        token,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}

	repo := s.repomanager.Sessions(s.db)
	if err := repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: storing session: %v", common.ErrStorage, err)
	}
	return session, nil
}

// Validate reports whether a session with this id exists and has not
// expired. Unknown ids and expired entries both report false.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (bool, error) {
	repo := s.repomanager.Sessions(s.db)
	valid, err := repo.Valid(ctx, sessionID, s.now())
	if err != nil {
		return false, fmt.Errorf("%w: checking session: %v", common.ErrStorage, err)
	}
	return valid, nil
}

// Resolve returns the user owning a currently valid session with this id.
// Never-existed and expired sessions are indistinguishable to the caller:
// both return common.ErrNotFound.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (*models.User, error) {
	sessionRepo := s.repomanager.Sessions(s.db)
	session, err := sessionRepo.GetValid(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding session: %v", common.ErrStorage, err)
	}

	userRepo := s.repomanager.Users(s.db)
	user, err := userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: loading session user: %v", common.ErrStorage, err)
	}
	return user, nil
}

// Refresh extends the matching session to TTL from now. The stored expiry
// never decreases, repeated calls are idempotent, and a session that no
// longer exists is a no-op.
func (s *SessionService) Refresh(ctx context.Context, sessionID string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.Refresh(ctx, sessionID, s.now().Add(s.ttl)); err != nil {
		return fmt.Errorf("%w: refreshing session: %v", common.ErrStorage, err)
	}
	return nil
}

// Revoke removes the matching session from the user; absent sessions are a
// no-op. Removal is terminal.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.Delete(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("%w: revoking session: %v", common.ErrStorage, err)
	}
	return nil
}

// PruneExpired removes every session of the user whose expiry has passed,
// bounding the session list over the lifetime of an account. Active sessions
// are untouched.
func (s *SessionService) PruneExpired(ctx context.Context, userID string) error {
	repo := s.repomanager.Sessions(s.db)
	if err := repo.DeleteExpired(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("%w: pruning sessions: %v", common.ErrStorage, err)
	}
	return nil
}
