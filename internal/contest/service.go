package contest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdminUserID is the fixed user id of the admin role.
const AdminUserID = "admin1"

var (
	// ErrMissingFields is returned when a submission form has blank fields.
	ErrMissingFields = errors.New("please fill in all fields")

	// ErrNotContestant is returned when submitting without a contestant session.
	ErrNotContestant = errors.New("a contestant session is required to submit")

	// ErrJudgeRequired is returned when assigning without picking a judge.
	ErrJudgeRequired = errors.New("please select a judge")

	// ErrJudgeNotFound is returned when assigning to a judge not on the roster.
	ErrJudgeNotFound = errors.New("judge not found")

	// ErrRatingRequired is returned when rating with a zero score.
	ErrRatingRequired = errors.New("please provide a rating")

	// ErrFeedbackRequired is returned when rating without feedback.
	ErrFeedbackRequired = errors.New("please provide feedback")

	// ErrNotJudge is returned when rating without a judge session.
	ErrNotJudge = errors.New("a judge session is required to rate")

	// ErrNotYourAssignment is returned when a judge rates a submission
	// assigned to someone else.
	ErrNotYourAssignment = errors.New("submission is assigned to another judge")
)

// Service applies the contest rules (who may do what, input validation, id
// generation) and delegates state to Repository.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService returns a Service that uses repo and the wall clock.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// UserIDFor returns the user id a freshly selected role gets at time now.
// Contestants and judges get a timestamped id; the admin id is fixed.
func UserIDFor(role Role, now time.Time) string {
	switch role {
	case RoleContestant:
		return fmt.Sprintf("c%d", now.UnixMilli())
	case RoleAdmin:
		return AdminUserID
	case RoleJudge:
		return fmt.Sprintf("j%d", now.UnixMilli())
	default:
		return ""
	}
}

// SelectRole starts a session for role. If userID is empty one is generated
// with UserIDFor.
func (s *Service) SelectRole(role Role, userID string) (Session, error) {
	if userID == "" {
		userID = UserIDFor(role, s.now())
	}
	if err := s.repo.SelectRole(role, userID); err != nil {
		return Session{}, err
	}
	return s.repo.Session(), nil
}

// Submit records a new pending submission for the current contestant.
func (s *Service) Submit(title, artist, audioURL string) (Submission, error) {
	sess := s.repo.Session()
	if sess.Role != RoleContestant {
		return Submission{}, ErrNotContestant
	}

	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	audioURL = strings.TrimSpace(audioURL)
	if title == "" || artist == "" || audioURL == "" {
		return Submission{}, ErrMissingFields
	}

	sub := Submission{
		ID:             "s" + uuid.NewString(),
		Title:          title,
		ArtistName:     artist,
		AudioURL:       audioURL,
		ContestantID:   sess.UserID,
		ContestantName: artist,
		SubmittedAt:    s.now().UTC(),
		Status:         StatusPending,
	}
	if err := s.repo.AddSubmission(sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// Assign hands a submission to a judge from the roster.
func (s *Service) Assign(submissionID, judgeID string) (Submission, error) {
	judgeID = strings.TrimSpace(judgeID)
	if judgeID == "" {
		return Submission{}, ErrJudgeRequired
	}
	if _, ok := s.repo.Judge(judgeID); !ok {
		return Submission{}, fmt.Errorf("%w: %s", ErrJudgeNotFound, judgeID)
	}

	err := s.repo.UpdateSubmission(submissionID, SubmissionPatch{
		AssignedJudgeID: Ptr(judgeID),
		Status:          Ptr(StatusAssigned),
	})
	if err != nil {
		return Submission{}, err
	}
	sub, _ := s.repo.Submission(submissionID)
	return sub, nil
}

// Rate records the current judge's score and feedback and marks the
// submission judged. Only the judge it is assigned to may rate it, and a
// judged submission can be rated again.
func (s *Service) Rate(submissionID string, rating float64, feedback string) (Submission, error) {
	if rating == 0 {
		return Submission{}, ErrRatingRequired
	}
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return Submission{}, ErrFeedbackRequired
	}

	sess := s.repo.Session()
	if sess.Role != RoleJudge {
		return Submission{}, ErrNotJudge
	}
	current, ok := s.repo.Submission(submissionID)
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	if current.Status == StatusPending {
		return Submission{}, fmt.Errorf("rate %s: %w", submissionID, ErrNotAssigned)
	}
	if current.AssignedJudgeID != sess.UserID {
		return Submission{}, fmt.Errorf("rate %s: %w", submissionID, ErrNotYourAssignment)
	}

	err := s.repo.UpdateSubmission(submissionID, SubmissionPatch{
		Rating:   Ptr(rating),
		Feedback: Ptr(feedback),
		Status:   Ptr(StatusJudged),
	})
	if err != nil {
		return Submission{}, err
	}
	sub, _ := s.repo.Submission(submissionID)
	return sub, nil
}

// ByStatus returns the submissions currently in status, in collection order.
func (s *Service) ByStatus(status Status) []Submission {
	return filter(s.repo.Submissions(), func(sub Submission) bool {
		return sub.Status == status
	})
}

// ForJudge returns the submissions assigned to judgeID, reviewed or not.
func (s *Service) ForJudge(judgeID string) []Submission {
	return filter(s.repo.Submissions(), func(sub Submission) bool {
		return sub.AssignedJudgeID == judgeID
	})
}

// ForContestant returns the submissions made by contestantID.
func (s *Service) ForContestant(contestantID string) []Submission {
	return filter(s.repo.Submissions(), func(sub Submission) bool {
		return sub.ContestantID == contestantID
	})
}

// Visible returns what the current session gets to see: everything for the
// admin, own assignments for a judge, own entries for a contestant, and
// nothing without a session.
func (s *Service) Visible() []Submission {
	sess := s.repo.Session()
	switch sess.Role {
	case RoleAdmin:
		return s.repo.Submissions()
	case RoleJudge:
		return s.ForJudge(sess.UserID)
	case RoleContestant:
		return s.ForContestant(sess.UserID)
	default:
		return nil
	}
}

func filter(subs []Submission, keep func(Submission) bool) []Submission {
	out := make([]Submission, 0, len(subs))
	for _, sub := range subs {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	return out
}
