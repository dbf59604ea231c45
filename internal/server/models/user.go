package models

import "time"

// ProfileRelation names the kind of link between a user and a profile. The
// three relations back the id-sets the visibility engine classifies against.
type ProfileRelation string

const (
	RelationCreated  ProfileRelation = "created"
	RelationUnlocked ProfileRelation = "unlocked"
	RelationSaved    ProfileRelation = "saved"
)

// User is an account holder. The three id-sets are loaded alongside the row
// and keyed by profile id for O(1) membership checks.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	ImageURL     string
	CreatedAt    time.Time

	CreatedProfileIDs  map[string]struct{}
	SavedProfileIDs    map[string]struct{}
	UnlockedProfileIDs map[string]struct{}
}

// HasCreated reports whether the user created the given profile. Safe on a
// nil receiver so anonymous viewers fall through to the locked tier.
func (u *User) HasCreated(profileID string) bool {
	if u == nil {
		return false
	}
	_, ok := u.CreatedProfileIDs[profileID]
	return ok
}

// HasUnlocked reports whether the user unlocked the given profile.
func (u *User) HasUnlocked(profileID string) bool {
	if u == nil {
		return false
	}
	_, ok := u.UnlockedProfileIDs[profileID]
	return ok
}

// HasSaved reports whether the user saved the given profile.
func (u *User) HasSaved(profileID string) bool {
	if u == nil {
		return false
	}
	_, ok := u.SavedProfileIDs[profileID]
	return ok
}

// Session is one authenticated device session. The id is an opaque random
// token, unique across all users; expiry is evaluated lazily at query time.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}
