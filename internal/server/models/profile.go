package models

import "time"

// AdmissionStatus is the outcome of one school application.
type AdmissionStatus string

const (
	AdmissionAccepted AdmissionStatus = "accepted"
	AdmissionRejected AdmissionStatus = "rejected"
)

// Essay is a single application essay attached to a school admission.
type Essay struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SchoolAdmission is one application outcome with its essays, in the order
// the author listed them.
type SchoolAdmission struct {
	School string          `json:"school"`
	Degree string          `json:"degree"`
	Major  string          `json:"major"`
	Status AdmissionStatus `json:"status"`
	Essays []Essay         `json:"essays"`
}

// TestScore is a named standardized test result. Score stays a string so the
// locked view can blank it without losing the field.
type TestScore struct {
	Test  string `json:"test"`
	Score string `json:"score"`
}

// Profile is a full admission record as stored. OwnerUserID never changes
// after creation.
type Profile struct {
	ID                 string            `json:"profileId"`
	OwnerUserID        string            `json:"ownerUserId"`
	OwnerUsername      string            `json:"ownerUsername"`
	DisplayName        string            `json:"displayName"`
	Price              int               `json:"price"`
	PurchaseCount      int               `json:"purchaseCount"`
	Published          bool              `json:"published"`
	CurrentSchool      string            `json:"currentSchool"`
	CurrentMajor       string            `json:"currentMajor"`
	CurrentDescription string            `json:"currentDescription"`
	ImageURL           string            `json:"imageUrl"`
	SchoolAdmissions   []SchoolAdmission `json:"schoolAdmissions"`
	TestScores         []TestScore       `json:"testScores"`
	CreatedAt          time.Time         `json:"dateCreated"`
}

// ProfileView is a profile as seen by one viewer: the (possibly redacted)
// content plus the viewer's relation flags. Views are derived per request and
// never written back.
type ProfileView struct {
	Profile
	IsOwned    bool `json:"isOwned"`
	IsUnlocked bool `json:"isUnlocked"`
	IsSaved    bool `json:"isSaved"`
}

// ProfilePreview is the coarse catalog projection: identity and display
// fields only, school names without essays, no scores. It is the same for
// every viewer.
type ProfilePreview struct {
	ID            string    `json:"profileId"`
	DisplayName   string    `json:"displayName"`
	Price         int       `json:"price"`
	PurchaseCount int       `json:"purchaseCount"`
	CurrentSchool string    `json:"currentSchool"`
	ImageURL      string    `json:"imageUrl"`
	Schools       []string  `json:"schools"`
	CreatedAt     time.Time `json:"dateCreated"`
}
