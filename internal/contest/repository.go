package contest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"contest-store/internal/platform/metrics"

	"github.com/gammazero/workerpool"
	"golang.org/x/sync/errgroup"
)

// Repository is the single source of truth for submissions and the device
// session. Mutations apply to memory immediately and are mirrored to durable
// storage in the background.
type Repository interface {
	// Load reads persisted submissions and session. Unreadable or absent
	// submissions fall back to the seed dataset; an unreadable session falls
	// back to no role. Only context cancellation is returned as an error.
	Load(ctx context.Context) (Ready, error)

	// AddSubmission appends s to the collection, preserving order.
	// Ids are not checked for uniqueness. A record with an unknown status or
	// a rating outside 0..10 is rejected, since it could not be stored and
	// read back.
	AddSubmission(s Submission) error

	// UpdateSubmission merges patch into the submission with the given id.
	// If no submission has that id, ErrSubmissionNotFound is returned and
	// nothing changes. Patches that would break the review lifecycle are
	// rejected the same way.
	UpdateSubmission(id string, patch SubmissionPatch) error

	// SelectRole sets the active session and persists role and user id as
	// two independent writes.
	SelectRole(role Role, userID string) error

	// ClearRole removes the persisted session and resets it in memory.
	ClearRole(ctx context.Context)

	Submissions() []Submission
	Submission(id string) (Submission, bool)
	Session() Session
	Judges() []Judge
	Judge(id string) (Judge, bool)
	StatusCounts() map[Status]int

	// Flush blocks until every write scheduled so far has run.
	Flush(ctx context.Context) error
	// Close drains pending writes and stops the writer. Mutations after
	// Close still apply in memory but are no longer persisted.
	Close() error
}

var (
	// ErrSubmissionNotFound is returned when no submission has the given id.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrStatusRegression is returned when a patch would move a submission
	// back along pending -> assigned -> judged.
	ErrStatusRegression = errors.New("status cannot move backwards")

	// ErrStatusSkip is returned when a pending submission is judged without
	// being assigned first.
	ErrStatusSkip = errors.New("submission must be assigned before it is judged")

	// ErrInvalidStatus is returned for a patch carrying an unknown status.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidRating is returned for ratings outside 0..10, NaN included.
	ErrInvalidRating = errors.New("rating must be between 0 and 10")

	// ErrNotJudged is returned when rating or feedback is set on a
	// submission that does not end up judged.
	ErrNotJudged = errors.New("rating and feedback require status judged")

	// ErrNotAssigned is returned when a judge is set on a submission that
	// stays pending, or when an assigned or judged submission has no judge.
	ErrNotAssigned = errors.New("assigned judge requires status assigned or judged")

	// ErrInvalidRole is returned by SelectRole for an unknown role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrCorruptValue marks a stored value that parsed but is not usable.
	ErrCorruptValue = errors.New("corrupt stored value")
)

const (
	minRating = 0
	maxRating = 10
)

// MirroredRepository is a concurrency-safe Repository that mirrors its state
// into a Storage. Writes run on a single background worker so they land in
// the order the mutations happened.
type MirroredRepository struct {
	mu          sync.RWMutex
	submissions []Submission
	session     Session
	judges      []Judge

	storage Storage
	log     *slog.Logger
	metrics *metrics.Metrics

	writeMu sync.Mutex
	writer  *workerpool.WorkerPool
	closed  bool
}

// NewMirroredRepository constructs a repository backed by storage.
// The collection starts empty until Load is called. m may be nil to disable
// metric recording (e.g. in tests).
func NewMirroredRepository(storage Storage, log *slog.Logger, m *metrics.Metrics) *MirroredRepository {
	judges := make([]Judge, len(DefaultJudges))
	copy(judges, DefaultJudges)
	return &MirroredRepository{
		judges:  judges,
		storage: storage,
		log:     log,
		metrics: m,
		writer:  workerpool.New(1),
	}
}

// Load implements Repository.Load.
func (r *MirroredRepository) Load(ctx context.Context) (Ready, error) {
	var (
		subs   []Submission
		seeded bool
		sess   Session
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, seeded = r.readSubmissions(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		sess = r.readSession(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return Ready{}, fmt.Errorf("load: %w", err)
	}

	r.mu.Lock()
	r.submissions = subs
	r.session = sess
	r.mu.Unlock()

	r.log.Debug("store loaded",
		slog.Int("submissions", len(subs)),
		slog.Bool("seeded", seeded),
		slog.String("role", string(sess.Role)))

	return Ready{Submissions: len(subs), Session: sess, Seeded: seeded}, nil
}

func (r *MirroredRepository) readSubmissions(ctx context.Context) ([]Submission, bool) {
	raw, ok, err := r.storage.GetItem(ctx, KeySubmissions)
	if err != nil {
		r.readFallback("submissions", err)
		return SeedSubmissions(), true
	}
	if !ok {
		return SeedSubmissions(), true
	}
	subs, err := DecodeSubmissions(raw)
	if err != nil {
		r.readFallback("submissions", err)
		return SeedSubmissions(), true
	}
	return subs, false
}

func (r *MirroredRepository) readSession(ctx context.Context) Session {
	role, _, err := r.storage.GetItem(ctx, KeyUserRole)
	if err != nil {
		r.readFallback("session", err)
		return Session{}
	}
	userID, _, err := r.storage.GetItem(ctx, KeyUserID)
	if err != nil {
		r.readFallback("session", err)
		return Session{}
	}
	sess := Session{Role: decodeRole(role)}
	if sess.Active() {
		sess.UserID = userID
	}
	return sess
}

func (r *MirroredRepository) readFallback(what string, err error) {
	r.log.Warn("storage read failed, using defaults",
		slog.String("item", what),
		slog.String("error", err.Error()))
	if r.metrics != nil {
		r.metrics.IncReadFallbacks()
	}
}

// AddSubmission implements Repository.AddSubmission.
func (r *MirroredRepository) AddSubmission(s Submission) error {
	if err := checkRecord(s); err != nil {
		r.log.Info("submission rejected", slog.String("id", s.ID), slog.String("error", err.Error()))
		return fmt.Errorf("add submission %s: %w", s.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.submissions = append(r.submissions, cloneSubmission(s))
	r.scheduleSubmissionsLocked()

	r.log.Debug("submission added", slog.String("id", s.ID), slog.String("contestant_id", s.ContestantID))
	if r.metrics != nil {
		r.metrics.IncSubmissionsAdded()
	}
	return nil
}

// checkRecord rejects what DecodeSubmissions would refuse on the next Load.
func checkRecord(s Submission) error {
	if !s.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	if s.Rating != nil && !validRating(*s.Rating) {
		return ErrInvalidRating
	}
	return nil
}

// validRating is false for NaN, which fails every comparison.
func validRating(v float64) bool {
	return v >= minRating && v <= maxRating
}

// UpdateSubmission implements Repository.UpdateSubmission.
func (r *MirroredRepository) UpdateSubmission(id string, patch SubmissionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		r.log.Debug("update ignored, submission not found", slog.String("id", id))
		r.rejected("not_found")
		return ErrSubmissionNotFound
	}

	current := r.submissions[idx]
	next := patch.apply(current)
	if err := checkTransition(current, next, patch); err != nil {
		r.log.Info("update rejected",
			slog.String("id", id),
			slog.String("status", string(current.Status)),
			slog.String("error", err.Error()))
		r.rejected(rejectReason(err))
		return fmt.Errorf("update submission %s: %w", id, err)
	}

	r.submissions[idx] = next
	r.scheduleSubmissionsLocked()

	r.log.Debug("submission updated", slog.String("id", id), slog.String("status", string(next.Status)))
	if r.metrics != nil {
		r.metrics.IncSubmissionsUpdated()
	}
	return nil
}

func (r *MirroredRepository) rejected(reason string) {
	if r.metrics != nil {
		r.metrics.IncUpdatesRejected(reason)
	}
}

// checkTransition validates the fields a patch touches against the review
// lifecycle. Untouched fields are not re-validated.
func checkTransition(current, next Submission, patch SubmissionPatch) error {
	if patch.Status != nil {
		if !next.Status.Valid() {
			return ErrInvalidStatus
		}
		if next.Status.rank() < current.Status.rank() {
			return ErrStatusRegression
		}
		if current.Status == StatusPending && next.Status == StatusJudged {
			return ErrStatusSkip
		}
	}
	if patch.Rating != nil && !validRating(*patch.Rating) {
		return ErrInvalidRating
	}
	if (patch.Rating != nil || patch.Feedback != nil) && next.Status != StatusJudged {
		return ErrNotJudged
	}
	if patch.AssignedJudgeID != nil && *patch.AssignedJudgeID != "" && next.Status == StatusPending {
		return ErrNotAssigned
	}
	if (patch.Status != nil || patch.AssignedJudgeID != nil) && next.Status != StatusPending && next.AssignedJudgeID == "" {
		return ErrNotAssigned
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrStatusRegression):
		return "status_regression"
	case errors.Is(err, ErrStatusSkip):
		return "status_skip"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrInvalidRating):
		return "invalid_rating"
	case errors.Is(err, ErrNotJudged):
		return "not_judged"
	case errors.Is(err, ErrNotAssigned):
		return "not_assigned"
	default:
		return "other"
	}
}

// SelectRole implements Repository.SelectRole.
func (r *MirroredRepository) SelectRole(role Role, userID string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.session = Session{Role: role, UserID: userID}
	r.schedule("set_role", func(ctx context.Context) error {
		return r.storage.SetItem(ctx, KeyUserRole, string(role))
	})
	r.schedule("set_user_id", func(ctx context.Context) error {
		return r.storage.SetItem(ctx, KeyUserID, userID)
	})

	r.log.Info("role selected", slog.String("role", string(role)), slog.String("user_id", userID))
	if r.metrics != nil {
		r.metrics.SetSessionActive(true)
	}
	return nil
}

// ClearRole implements Repository.ClearRole. The removals are queued behind
// any pending writes and awaited, so an earlier SelectRole cannot land after
// them and bring the session back.
func (r *MirroredRepository) ClearRole(ctx context.Context) {
	r.schedule("remove_role", func(ctx context.Context) error {
		return r.storage.RemoveItem(ctx, KeyUserRole)
	})
	r.schedule("remove_user_id", func(ctx context.Context) error {
		return r.storage.RemoveItem(ctx, KeyUserID)
	})
	if err := r.Flush(ctx); err != nil {
		r.log.Warn("clear role not flushed", slog.String("error", err.Error()))
	}

	r.mu.Lock()
	r.session = Session{}
	r.mu.Unlock()

	r.log.Info("role cleared")
	if r.metrics != nil {
		r.metrics.SetSessionActive(false)
	}
}

// Submissions implements Repository.Submissions. The returned slice is a copy.
func (r *MirroredRepository) Submissions() []Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSubmissions(r.submissions)
}

// Submission implements Repository.Submission. With duplicate ids the first
// match wins.
func (r *MirroredRepository) Submission(id string) (Submission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexLocked(id)
	if idx < 0 {
		return Submission{}, false
	}
	return cloneSubmission(r.submissions[idx]), true
}

// Session implements Repository.Session.
func (r *MirroredRepository) Session() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// Judges implements Repository.Judges.
func (r *MirroredRepository) Judges() []Judge {
	out := make([]Judge, len(r.judges))
	copy(out, r.judges)
	return out
}

// Judge implements Repository.Judge.
func (r *MirroredRepository) Judge(id string) (Judge, bool) {
	for _, j := range r.judges {
		if j.ID == id {
			return j, true
		}
	}
	return Judge{}, false
}

// StatusCounts implements Repository.StatusCounts.
func (r *MirroredRepository) StatusCounts() map[Status]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := map[Status]int{
		StatusPending:  0,
		StatusAssigned: 0,
		StatusJudged:   0,
	}
	for _, s := range r.submissions {
		counts[s.Status]++
	}
	return counts
}

// Flush implements Repository.Flush.
func (r *MirroredRepository) Flush(ctx context.Context) error {
	r.writeMu.Lock()
	if r.closed {
		r.writeMu.Unlock()
		return nil
	}
	done := make(chan struct{})
	r.writer.Submit(func() { close(done) })
	r.writeMu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Repository.Close. It is safe to call more than once.
func (r *MirroredRepository) Close() error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.writer.StopWait()
	return nil
}

// scheduleSubmissionsLocked queues a write of the current collection.
// Caller must hold r.mu in write mode.
func (r *MirroredRepository) scheduleSubmissionsLocked() {
	snapshot := cloneSubmissions(r.submissions)
	r.schedule("set_submissions", func(ctx context.Context) error {
		raw, err := EncodeSubmissions(snapshot)
		if err != nil {
			return err
		}
		return r.storage.SetItem(ctx, KeySubmissions, raw)
	})
}

// schedule queues fn on the writer. Failures are logged and counted, never
// returned: the in-memory state stays authoritative.
func (r *MirroredRepository) schedule(op string, fn func(ctx context.Context) error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.closed {
		r.log.Warn("storage write dropped, repository closed", slog.String("op", op))
		return
	}
	r.writer.Submit(func() {
		if err := fn(context.Background()); err != nil {
			r.log.Error("storage write failed", slog.String("op", op), slog.String("error", err.Error()))
			if r.metrics != nil {
				r.metrics.IncWriteErrors()
			}
		}
	})
}

// indexLocked returns the position of the first submission with id, or -1.
// Caller must hold r.mu.
func (r *MirroredRepository) indexLocked(id string) int {
	for i := range r.submissions {
		if r.submissions[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneSubmission(s Submission) Submission {
	if s.Rating != nil {
		s.Rating = Ptr(*s.Rating)
	}
	return s
}

func cloneSubmissions(subs []Submission) []Submission {
	out := make([]Submission, len(subs))
	for i, s := range subs {
		out[i] = cloneSubmission(s)
	}
	return out
}
