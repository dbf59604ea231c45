// This file implements ProfileService: profile creation, tiered reads via
// the visibility engine, and the catalog/bulk preview listings.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/knowyourenemy/statsadmit-backend/internal/common"
	"github.com/knowyourenemy/statsadmit-backend/internal/dbx"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/models"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/repomanager"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/visibility"
)

// CreateProfileInput carries the author-supplied fields of a new profile.
type CreateProfileInput struct {
	DisplayName        string                   `json:"displayName"`
	Price              int                      `json:"price"`
	CurrentSchool      string                   `json:"currentSchool"`
	CurrentMajor       string                   `json:"currentMajor"`
	CurrentDescription string                   `json:"currentDescription"`
	ImageURL           string                   `json:"imageUrl"`
	SchoolAdmissions   []models.SchoolAdmission `json:"schoolAdmissions"`
	TestScores         []models.TestScore       `json:"testScores"`
}

// ProfileService creates profiles and serves them through the visibility
// engine.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewProfileService constructs a ProfileService using repositories.
func NewProfileService(db *sql.DB, m repomanager.RepositoryManager) *ProfileService {
	return &ProfileService{db: db, repomanager: m}
}

// Create inserts a new published profile owned by the given user and records
// the reciprocal created-link, both in one transaction so ownership and the
// created-set can never disagree.
func (s *ProfileService) Create(ctx context.Context, owner *models.User, input CreateProfileInput) (string, error) {
	if input.Price < 0 {
		return "", fmt.Errorf("%w: price cannot be negative", common.ErrValidation)
	}
	if len(input.SchoolAdmissions) == 0 {
		return "", fmt.Errorf("%w: at least one school admission is required", common.ErrValidation)
	}
	for _, admission := range input.SchoolAdmissions {
		if admission.Status != models.AdmissionAccepted && admission.Status != models.AdmissionRejected {
			return "", fmt.Errorf("%w: unknown admission status %q", common.ErrValidation, admission.Status)
		}
	}

	imageURL := input.ImageURL
	if imageURL == "" {
		imageURL = owner.ImageURL
	}

	profile := &models.Profile{
		ID:                 uuid.NewString(),
		OwnerUserID:        owner.ID,
		OwnerUsername:      owner.Username,
		DisplayName:        input.DisplayName,
		Price:              input.Price,
		Published:          true,
		CurrentSchool:      input.CurrentSchool,
		CurrentMajor:       input.CurrentMajor,
		CurrentDescription: input.CurrentDescription,
		ImageURL:           imageURL,
		SchoolAdmissions:   input.SchoolAdmissions,
		TestScores:         input.TestScores,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Profiles(tx).Create(ctx, profile); err != nil {
			return err
		}
		_, err := s.repomanager.Users(tx).AddProfileLink(ctx, owner.ID, profile.ID, models.RelationCreated)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating profile: %v", common.ErrStorage, err)
	}
	return profile.ID, nil
}

// Get returns the profile as the viewer is allowed to see it. Unpublished
// profiles are visible to their owner only.
func (s *ProfileService) Get(ctx context.Context, profileID string, viewer *models.User) (*models.ProfileView, error) {
	repo := s.repomanager.Profiles(s.db)
	profile, err := repo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding profile: %v", common.ErrStorage, err)
	}
	if !profile.Published && !viewer.HasCreated(profileID) {
		return nil, common.ErrNotFound
	}
	return visibility.View(profile, viewer), nil
}

// AllPreviews returns the catalog projection of every published profile.
func (s *ProfileService) AllPreviews(ctx context.Context) ([]*models.ProfilePreview, error) {
	repo := s.repomanager.Profiles(s.db)
	list, err := repo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing profiles: %v", common.ErrStorage, err)
	}
	return previews(list), nil
}

// UnlockedPreviews returns previews of the profiles the user has unlocked.
func (s *ProfileService) UnlockedPreviews(ctx context.Context, user *models.User) ([]*models.ProfilePreview, error) {
	return s.previewsBySet(ctx, user.UnlockedProfileIDs)
}

// SavedPreviews returns previews of the profiles the user has saved.
func (s *ProfileService) SavedPreviews(ctx context.Context, user *models.User) ([]*models.ProfilePreview, error) {
	return s.previewsBySet(ctx, user.SavedProfileIDs)
}

func (s *ProfileService) previewsBySet(ctx context.Context, ids map[string]struct{}) ([]*models.ProfilePreview, error) {
	// Non-nil so an empty set serializes as [] rather than null.
	if len(ids) == 0 {
		return []*models.ProfilePreview{}, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	repo := s.repomanager.Profiles(s.db)
	found, err := repo.GetByIDs(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("%w: listing profiles: %v", common.ErrStorage, err)
	}
	return previews(found), nil
}

func previews(list []*models.Profile) []*models.ProfilePreview {
	result := make([]*models.ProfilePreview, len(list))
	for i, profile := range list {
		result[i] = visibility.Preview(profile)
	}
	return result
}
