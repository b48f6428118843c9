package contest

import "time"

// Status is the review state of a submission.
// It only ever moves forward: pending -> assigned -> judged.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAssigned Status = "assigned"
	StatusJudged   Status = "judged"
)

// rank orders statuses along the review lifecycle. Unknown statuses rank -1.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAssigned:
		return 1
	case StatusJudged:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool { return s.rank() >= 0 }

// Role is the identity the device is currently acting as.
type Role string

const (
	RoleNone       Role = ""
	RoleContestant Role = "contestant"
	RoleAdmin      Role = "admin"
	RoleJudge      Role = "judge"
)

// Valid reports whether r is a selectable role. RoleNone is not selectable.
func (r Role) Valid() bool {
	switch r {
	case RoleContestant, RoleAdmin, RoleJudge:
		return true
	}
	return false
}

// Submission is a contestant's music entry under review.
// The JSON shape is the one persisted under the submissions storage key.
type Submission struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	ArtistName      string    `json:"artistName"`
	AudioURL        string    `json:"audioUrl"`
	ContestantID    string    `json:"contestantId"`
	ContestantName  string    `json:"contestantName"`
	SubmittedAt     time.Time `json:"submittedAt"`
	Status          Status    `json:"status"`
	AssignedJudgeID string    `json:"assignedJudgeId,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
	Feedback        string    `json:"feedback,omitempty"`
}

// SubmissionPatch lists the fields to overwrite on an existing submission.
// Nil fields are left untouched.
type SubmissionPatch struct {
	Title           *string
	ArtistName      *string
	AudioURL        *string
	ContestantName  *string
	Status          *Status
	AssignedJudgeID *string
	Rating          *float64
	Feedback        *string
}

// apply returns a copy of s with the patch fields written over it.
func (p SubmissionPatch) apply(s Submission) Submission {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.ArtistName != nil {
		s.ArtistName = *p.ArtistName
	}
	if p.AudioURL != nil {
		s.AudioURL = *p.AudioURL
	}
	if p.ContestantName != nil {
		s.ContestantName = *p.ContestantName
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.AssignedJudgeID != nil {
		s.AssignedJudgeID = *p.AssignedJudgeID
	}
	if p.Rating != nil {
		r := *p.Rating
		s.Rating = &r
	}
	if p.Feedback != nil {
		s.Feedback = *p.Feedback
	}
	return s
}

// Judge is a reviewer on the static roster.
type Judge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Session is the active role and user identity on this device.
type Session struct {
	Role   Role
	UserID string
}

// Active reports whether a role has been selected.
func (s Session) Active() bool { return s.Role != RoleNone }

// Ready describes the state reached by Load.
type Ready struct {
	Submissions int
	Session     Session
	// Seeded is true when the seed dataset was used instead of stored data.
	Seeded bool
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T { return &v }
