package users

import (
	"context"

	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	AddProfileLink(ctx context.Context, userID, profileID string, relation models.ProfileRelation) (bool, error)
}
