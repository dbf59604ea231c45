package profiles

import (
	"context"

	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, profileID string) (*models.Profile, error)
	ListPublished(ctx context.Context) ([]*models.Profile, error)
	GetByIDs(ctx context.Context, profileIDs []string) ([]*models.Profile, error)
	IncrementPurchaseCount(ctx context.Context, profileID string) error
}
