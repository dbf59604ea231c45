package sessions

import (
	"context"
	"time"

	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

// Repository persists sessions. Every mutation is a single SQL statement, so
// concurrent refresh/prune calls against the same user never leave partial
// state.
type Repository interface {
	Create(ctx context.Context, session *models.Session) error
	Valid(ctx context.Context, sessionID string, now time.Time) (bool, error)
	GetValid(ctx context.Context, sessionID string, now time.Time) (*models.Session, error)
	Refresh(ctx context.Context, sessionID string, expiresAt time.Time) error
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteExpired(ctx context.Context, userID string, now time.Time) error
}
