// This file implements UserService: registration, login, logout, and the
// unlock/save membership updates.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/dbx"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/config"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 4
	maxUsernameLen = 128
	minPasswordLen = 6
	maxPasswordLen = 128
)

// placeholderAvatar is the stock avatar pool assigned at signup until the
// user uploads a thumbnail.
const placeholderAvatar = "https://i.pravatar.cc/150?img="

// UserService handles accounts: Register and Login issue sessions through
// the SessionService, Logout revokes one, and Unlock/Save maintain the
// per-user profile id-sets.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *SessionService
	bcryptCost  int
}

// NewUserService constructs a UserService using repositories, the session
// service, and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, sessions *SessionService, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		sessions:    sessions,
		bcryptCost:  cfg.BcryptCost,
	}
}

// Register creates a new account and logs it straight in, returning the
// session id for the cookie.
func (s *UserService) Register(ctx context.Context, username, password string) (string, error) {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", fmt.Errorf("%w: username must be between %d and %d characters long",
			common.ErrValidation, minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return "", fmt.Errorf("%w: password must be between %d and %d characters long",
			common.ErrValidation, minPasswordLen, maxPasswordLen)
	}

	userRepo := s.repomanager.Users(s.db)
	exists, err := userRepo.UsernameExists(ctx, username)
	if err != nil {
		return "", fmt.Errorf("%w: checking username: %v", common.ErrStorage, err)
	}
	if exists {
		return "", fmt.Errorf("%w: user already exists", common.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("%w: hashing password: %v", common.ErrInternal, err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		ImageURL:     fmt.Sprintf("%s%d", placeholderAvatar, rand.Intn(50)+1),
	}
	if _, err := userRepo.Create(ctx, user); err != nil {
		return "", fmt.Errorf("%w: creating user: %v", common.ErrStorage, err)
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Login verifies the credentials and issues a session, pruning the user's
// expired sessions first. A bad username and a bad password are reported
// identically.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	userRepo := s.repomanager.Users(s.db)
	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("%w: invalid credentials", common.ErrAuthentication)
		}
		return "", fmt.Errorf("%w: finding user: %v", common.ErrStorage, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", common.ErrAuthentication)
	}

	if err := s.sessions.PruneExpired(ctx, user.ID); err != nil {
		return "", err
	}

	session, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Logout revokes the user's session.
func (s *UserService) Logout(ctx context.Context, userID, sessionID string) error {
	return s.sessions.Revoke(ctx, userID, sessionID)
}

// Unlock grants the user access to a published profile they neither created
// nor already unlocked, and bumps the profile's purchase count. The link and
// the counter move in one transaction.
func (s *UserService) Unlock(ctx context.Context, user *models.User, profileID string) error {
	profileRepo := s.repomanager.Profiles(s.db)
	profile, err := profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("%w: finding profile: %v", common.ErrStorage, err)
	}
	if !profile.Published {
		return common.ErrNotFound
	}

	if user.HasCreated(profileID) {
		return fmt.Errorf("%w: cannot unlock own profile", common.ErrValidation)
	}
	if user.HasUnlocked(profileID) {
		return fmt.Errorf("%w: profile already unlocked", common.ErrValidation)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		inserted, err := s.repomanager.Users(tx).AddProfileLink(ctx, user.ID, profileID, models.RelationUnlocked)
		if err != nil {
			return err
		}
		// A concurrent unlock may have won the race past the stale
		// in-memory check; only the call that inserted the link pays the
		// counter.
		if !inserted {
			return nil
		}
		return s.repomanager.Profiles(tx).IncrementPurchaseCount(ctx, profileID)
	})
	if err != nil {
		return fmt.Errorf("%w: unlocking profile: %v", common.ErrStorage, err)
	}
	return nil
}

// Save bookmarks a profile for the user. Saving twice is a no-op.
func (s *UserService) Save(ctx context.Context, user *models.User, profileID string) error {
	profileRepo := s.repomanager.Profiles(s.db)
	if _, err := profileRepo.GetByID(ctx, profileID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("%w: finding profile: %v", common.ErrStorage, err)
	}

	userRepo := s.repomanager.Users(s.db)
	if _, err := userRepo.AddProfileLink(ctx, user.ID, profileID, models.RelationSaved); err != nil {
		return fmt.Errorf("%w: saving profile: %v", common.ErrStorage, err)
	}
	return nil
}
