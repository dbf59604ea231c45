// Package visibility decides how much of a profile a given viewer sees. It
// classifies the viewer into an access tier and produces the matching
// redacted view, or the coarse catalog preview. Everything here is a pure
// function of its inputs: stored profiles are never mutated.
package visibility

import "github.com/knowyourenemy/statsadmit-backend/internal/server/models"

// Tier is a viewer's classified access level to one profile.
type Tier int

const (
	// TierLocked applies when the viewer neither created nor unlocked the
	// profile, and to anonymous viewers.
	TierLocked Tier = iota

	// TierUnlocked applies when the viewer paid to unlock the profile.
	TierUnlocked

	// TierOwner applies when the viewer created the profile.
	TierOwner
)

// lockedEssayLen is how many leading characters of essay content remain
// visible in the locked tier.
const lockedEssayLen = 10

// Classify returns the viewer's tier for the profile, owner taking priority
// over unlocked. A nil viewer is anonymous and always locked.
func Classify(profile *models.Profile, viewer *models.User) Tier {
	switch {
	case viewer.HasCreated(profile.ID):
		return TierOwner
	case viewer.HasUnlocked(profile.ID):
		return TierUnlocked
	default:
		return TierLocked
	}
}

// View produces the profile as the viewer is allowed to see it. Owner and
// unlocked tiers see stored content unchanged; the locked tier gets essay
// content cut to its first characters and test scores blanked, with titles,
// test names, school metadata, price, and purchase count passing through.
func View(profile *models.Profile, viewer *models.User) *models.ProfileView {
	tier := Classify(profile, viewer)

	view := &models.ProfileView{
		Profile:    *profile,
		IsOwned:    tier == TierOwner,
		IsUnlocked: tier == TierOwner || tier == TierUnlocked,
		IsSaved:    viewer.HasSaved(profile.ID),
	}

	if tier != TierLocked {
		return view
	}

	view.SchoolAdmissions = make([]models.SchoolAdmission, len(profile.SchoolAdmissions))
	for i, admission := range profile.SchoolAdmissions {
		redacted := admission
		redacted.Essays = make([]models.Essay, len(admission.Essays))
		for j, essay := range admission.Essays {
			redacted.Essays[j] = models.Essay{
				Title:   essay.Title,
				Content: truncate(essay.Content, lockedEssayLen),
			}
		}
		view.SchoolAdmissions[i] = redacted
	}

	view.TestScores = make([]models.TestScore, len(profile.TestScores))
	for i, score := range profile.TestScores {
		view.TestScores[i] = models.TestScore{Test: score.Test, Score: ""}
	}

	return view
}

// Preview produces the catalog projection. It is tier-independent: essay
// content and scores are stripped entirely no matter who asks.
func Preview(profile *models.Profile) *models.ProfilePreview {
	schools := make([]string, len(profile.SchoolAdmissions))
	for i, admission := range profile.SchoolAdmissions {
		schools[i] = admission.School
	}

	return &models.ProfilePreview{
		ID:            profile.ID,
		DisplayName:   profile.DisplayName,
		Price:         profile.Price,
		PurchaseCount: profile.PurchaseCount,
		CurrentSchool: profile.CurrentSchool,
		ImageURL:      profile.ImageURL,
		Schools:       schools,
		CreatedAt:     profile.CreatedAt,
	}
}

// truncate returns the first n characters of s, or s itself when shorter.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
