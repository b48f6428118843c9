package contest

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"contest-store/internal/platform/logger"
	"contest-store/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// flakyStorage wraps InMemoryStorage and fails reads or writes on demand.
type flakyStorage struct {
	*InMemoryStorage
	mu        sync.Mutex
	failGet   map[string]bool
	failWrite bool
	writes    []string
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{InMemoryStorage: NewInMemoryStorage(), failGet: map[string]bool{}}
}

var errDiskFull = errors.New("disk full")

func (s *flakyStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failGet[key]
	s.mu.Unlock()
	if fail {
		return "", false, errors.New("read failed")
	}
	return s.InMemoryStorage.GetItem(ctx, key)
}

func (s *flakyStorage) SetItem(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.writes = append(s.writes, key)
	fail := s.failWrite
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.InMemoryStorage.SetItem(ctx, key, value)
}

func newTestRepository(t *testing.T, storage Storage) (*MirroredRepository, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	repo := NewMirroredRepository(storage, logger.Discard(), m)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, m
}

func loadRepo(t *testing.T, repo *MirroredRepository) Ready {
	t.Helper()
	ready, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ready
}

func flush(t *testing.T, repo *MirroredRepository) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func newSubmission(id string) Submission {
	return Submission{
		ID:             id,
		Title:          "Track " + id,
		ArtistName:     "Artist",
		AudioURL:       "https://example.com/" + id + ".wav",
		ContestantID:   "c42",
		ContestantName: "Artist",
		SubmittedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:         StatusPending,
	}
}

func TestMirroredRepository_Load(t *testing.T) {
	t.Run("empty_storage_uses_seed", func(t *testing.T) {
		repo, m := newTestRepository(t, NewInMemoryStorage())
		ready := loadRepo(t, repo)
		if !ready.Seeded || ready.Submissions != 3 {
			t.Errorf("expected seeded with 3 submissions, got %+v", ready)
		}
		if !reflect.DeepEqual(repo.Submissions(), SeedSubmissions()) {
			t.Error("collection should equal the seed dataset")
		}
		if ready.Session != (Session{}) {
			t.Errorf("expected no session, got %+v", ready.Session)
		}
		if got := testutil.ToFloat64(m.ReadFallbacks()); got != 0 {
			t.Errorf("absent value is not a fallback, got %v", got)
		}
	})

	t.Run("stored_collection_wins", func(t *testing.T) {
		storage := NewInMemoryStorage()
		raw, _ := EncodeSubmissions([]Submission{newSubmission("s100")})
		_ = storage.SetItem(context.Background(), KeySubmissions, raw)

		repo, _ := newTestRepository(t, storage)
		ready := loadRepo(t, repo)
		if ready.Seeded || ready.Submissions != 1 {
			t.Errorf("expected stored collection, got %+v", ready)
		}
		if _, ok := repo.Submission("s100"); !ok {
			t.Error("stored submission s100 should be loaded")
		}
	})

	t.Run("stored_empty_collection_is_kept", func(t *testing.T) {
		storage := NewInMemoryStorage()
		_ = storage.SetItem(context.Background(), KeySubmissions, "[]")

		repo, _ := newTestRepository(t, storage)
		ready := loadRepo(t, repo)
		if ready.Seeded || ready.Submissions != 0 {
			t.Errorf("expected empty stored collection, got %+v", ready)
		}
	})

	t.Run("corrupt_value_falls_back_to_seed", func(t *testing.T) {
		storage := NewInMemoryStorage()
		_ = storage.SetItem(context.Background(), KeySubmissions, "{broken")

		repo, m := newTestRepository(t, storage)
		ready := loadRepo(t, repo)
		if !ready.Seeded || ready.Submissions != 3 {
			t.Errorf("expected seed fallback, got %+v", ready)
		}
		if got := testutil.ToFloat64(m.ReadFallbacks()); got != 1 {
			t.Errorf("read fallbacks: got %v want 1", got)
		}
	})

	t.Run("read_error_falls_back_to_defaults", func(t *testing.T) {
		storage := newFlakyStorage()
		storage.failGet[KeySubmissions] = true
		storage.failGet[KeyUserRole] = true

		repo, m := newTestRepository(t, storage)
		ready := loadRepo(t, repo)
		if !ready.Seeded {
			t.Error("expected seed after read error")
		}
		if ready.Session.Active() {
			t.Errorf("expected no session after read error, got %+v", ready.Session)
		}
		if got := testutil.ToFloat64(m.ReadFallbacks()); got != 2 {
			t.Errorf("read fallbacks: got %v want 2", got)
		}
	})

	t.Run("session_restored", func(t *testing.T) {
		storage := NewInMemoryStorage()
		_ = storage.SetItem(context.Background(), KeyUserRole, "judge")
		_ = storage.SetItem(context.Background(), KeyUserID, "j2")

		repo, _ := newTestRepository(t, storage)
		ready := loadRepo(t, repo)
		want := Session{Role: RoleJudge, UserID: "j2"}
		if ready.Session != want || repo.Session() != want {
			t.Errorf("session: ready=%+v repo=%+v want %+v", ready.Session, repo.Session(), want)
		}
	})

	t.Run("unknown_stored_role_means_no_session", func(t *testing.T) {
		storage := NewInMemoryStorage()
		_ = storage.SetItem(context.Background(), KeyUserRole, "root")
		_ = storage.SetItem(context.Background(), KeyUserID, "u1")

		repo, _ := newTestRepository(t, storage)
		if s := loadRepo(t, repo).Session; s != (Session{}) {
			t.Errorf("expected empty session, got %+v", s)
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		repo, _ := newTestRepository(t, NewInMemoryStorage())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := repo.Load(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestMirroredRepository_AddSubmission(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, m := newTestRepository(t, storage)
	loadRepo(t, repo)

	sub := newSubmission("s10")
	if err := repo.AddSubmission(sub); err != nil {
		t.Fatalf("AddSubmission: %v", err)
	}

	got, ok := repo.Submission("s10")
	if !ok {
		t.Fatal("added submission not found")
	}
	if !reflect.DeepEqual(got, sub) {
		t.Errorf("read back differs:\n got %+v\nwant %+v", got, sub)
	}

	all := repo.Submissions()
	if len(all) != 4 || all[3].ID != "s10" {
		t.Errorf("expected s10 appended last, got %d submissions", len(all))
	}

	flush(t, repo)
	raw, ok, _ := storage.GetItem(context.Background(), KeySubmissions)
	if !ok {
		t.Fatal("collection should be written through to storage")
	}
	stored, err := DecodeSubmissions(raw)
	if err != nil {
		t.Fatalf("stored value does not decode: %v", err)
	}
	if len(stored) != 4 || stored[3].ID != "s10" {
		t.Errorf("stored collection: got %d records", len(stored))
	}
	if got := testutil.ToFloat64(m.SubmissionsAdded()); got != 1 {
		t.Errorf("submissions added: got %v want 1", got)
	}
}

func TestMirroredRepository_AddSubmission_duplicate_id_first_wins(t *testing.T) {
	repo, _ := newTestRepository(t, NewInMemoryStorage())
	loadRepo(t, repo)

	dup := newSubmission("s1")
	dup.Title = "Impostor"
	repo.AddSubmission(dup)

	if len(repo.Submissions()) != 4 {
		t.Errorf("duplicate id should still be appended")
	}
	got, _ := repo.Submission("s1")
	if got.Title != "Summer Dreams" {
		t.Errorf("lookup should return the first match, got %q", got.Title)
	}
}

func TestMirroredRepository_UpdateSubmission(t *testing.T) {
	t.Run("judged_patch_touches_only_given_fields", func(t *testing.T) {
		repo, m := newTestRepository(t, NewInMemoryStorage())
		loadRepo(t, repo)
		before, _ := repo.Submission("s2")

		err := repo.UpdateSubmission("s2", SubmissionPatch{
			Status:   Ptr(StatusJudged),
			Rating:   Ptr(9.0),
			Feedback: Ptr("Lovely groove"),
		})
		if err != nil {
			t.Fatalf("UpdateSubmission: %v", err)
		}

		after, _ := repo.Submission("s2")
		want := before
		want.Status = StatusJudged
		want.Rating = Ptr(9.0)
		want.Feedback = "Lovely groove"
		if !reflect.DeepEqual(after, want) {
			t.Errorf("unexpected record:\n got %+v\nwant %+v", after, want)
		}
		if got := testutil.ToFloat64(m.SubmissionsUpdated()); got != 1 {
			t.Errorf("submissions updated: got %v want 1", got)
		}
	})

	t.Run("missing_id_leaves_collection_unchanged", func(t *testing.T) {
		storage := newFlakyStorage()
		repo, _ := newTestRepository(t, storage)
		loadRepo(t, repo)
		before := repo.Submissions()

		err := repo.UpdateSubmission("nope", SubmissionPatch{Status: Ptr(StatusJudged)})
		if !errors.Is(err, ErrSubmissionNotFound) {
			t.Errorf("expected ErrSubmissionNotFound, got %v", err)
		}
		if !reflect.DeepEqual(repo.Submissions(), before) {
			t.Error("collection changed after update of missing id")
		}
		flush(t, repo)
		if len(storage.writes) != 0 {
			t.Errorf("no write expected, got %v", storage.writes)
		}
	})

	t.Run("pending_to_assigned", func(t *testing.T) {
		repo, _ := newTestRepository(t, NewInMemoryStorage())
		loadRepo(t, repo)
		err := repo.UpdateSubmission("s1", SubmissionPatch{AssignedJudgeID: Ptr("j3"), Status: Ptr(StatusAssigned)})
		if err != nil {
			t.Fatalf("UpdateSubmission: %v", err)
		}
		got, _ := repo.Submission("s1")
		if got.Status != StatusAssigned || got.AssignedJudgeID != "j3" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("plain_field_edit", func(t *testing.T) {
		repo, _ := newTestRepository(t, NewInMemoryStorage())
		loadRepo(t, repo)
		if err := repo.UpdateSubmission("s3", SubmissionPatch{Title: Ptr("Electric Soul (Remix)")}); err != nil {
			t.Fatalf("UpdateSubmission: %v", err)
		}
		got, _ := repo.Submission("s3")
		if got.Title != "Electric Soul (Remix)" || got.Status != StatusJudged || *got.Rating != 8.5 {
			t.Errorf("got %+v", got)
		}
	})
}

func TestMirroredRepository_UpdateSubmission_rejects(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		patch  SubmissionPatch
		want   error
		reason string
	}{
		{"judged_back_to_pending", "s3", SubmissionPatch{Status: Ptr(StatusPending)}, ErrStatusRegression, "status_regression"},
		{"judged_back_to_assigned", "s3", SubmissionPatch{Status: Ptr(StatusAssigned)}, ErrStatusRegression, "status_regression"},
		{"assigned_back_to_pending", "s2", SubmissionPatch{Status: Ptr(StatusPending)}, ErrStatusRegression, "status_regression"},
		{"pending_straight_to_judged", "s1", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(5.0), Feedback: Ptr("fine")}, ErrStatusSkip, "status_skip"},
		{"unknown_status", "s1", SubmissionPatch{Status: Ptr(Status("archived"))}, ErrInvalidStatus, "invalid_status"},
		{"rating_above_ten", "s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(11.0), Feedback: Ptr("x")}, ErrInvalidRating, "invalid_rating"},
		{"rating_negative", "s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(-1.0), Feedback: Ptr("x")}, ErrInvalidRating, "invalid_rating"},
		{"rating_nan", "s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(math.NaN()), Feedback: Ptr("x")}, ErrInvalidRating, "invalid_rating"},
		{"rating_positive_infinity", "s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(math.Inf(1)), Feedback: Ptr("x")}, ErrInvalidRating, "invalid_rating"},
		{"rating_negative_infinity", "s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(math.Inf(-1)), Feedback: Ptr("x")}, ErrInvalidRating, "invalid_rating"},
		{"assigned_loses_judge", "s2", SubmissionPatch{AssignedJudgeID: Ptr("")}, ErrNotAssigned, "not_assigned"},
		{"assigned_without_judge", "s1", SubmissionPatch{Status: Ptr(StatusAssigned)}, ErrNotAssigned, "not_assigned"},
		{"rating_without_judged", "s2", SubmissionPatch{Rating: Ptr(7.0)}, ErrNotJudged, "not_judged"},
		{"feedback_without_judged", "s1", SubmissionPatch{Feedback: Ptr("nice")}, ErrNotJudged, "not_judged"},
		{"judge_on_pending", "s1", SubmissionPatch{AssignedJudgeID: Ptr("j1")}, ErrNotAssigned, "not_assigned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, m := newTestRepository(t, NewInMemoryStorage())
			loadRepo(t, repo)
			before := repo.Submissions()

			err := repo.UpdateSubmission(tt.id, tt.patch)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !reflect.DeepEqual(repo.Submissions(), before) {
				t.Error("rejected patch must not change the collection")
			}
			if got := testutil.ToFloat64(m.UpdatesRejected(tt.reason)); got != 1 {
				t.Errorf("rejected{%s}: got %v want 1", tt.reason, got)
			}
		})
	}
}

func TestMirroredRepository_AddSubmission_rejects_unstorable_records(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, _ := newTestRepository(t, storage)
	loadRepo(t, repo)

	if err := repo.AddSubmission(newSubmission("keep")); err != nil {
		t.Fatalf("AddSubmission: %v", err)
	}

	noStatus := newSubmission("bad1")
	noStatus.Status = ""
	if err := repo.AddSubmission(noStatus); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("empty status: expected ErrInvalidStatus, got %v", err)
	}
	nanRating := newSubmission("bad2")
	nanRating.Status = StatusJudged
	nanRating.Rating = Ptr(math.NaN())
	if err := repo.AddSubmission(nanRating); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("NaN rating: expected ErrInvalidRating, got %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded, _ := newTestRepository(t, storage)
	ready := loadRepo(t, reloaded)
	if ready.Seeded {
		t.Fatal("stored collection should still load")
	}
	ids := make([]string, 0, ready.Submissions)
	for _, s := range reloaded.Submissions() {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []string{"s1", "s2", "s3", "keep"}) {
		t.Errorf("reloaded ids = %v", ids)
	}
}

func TestMirroredRepository_rejected_rating_keeps_persisting(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, m := newTestRepository(t, storage)
	loadRepo(t, repo)

	err := repo.UpdateSubmission("s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(math.NaN()), Feedback: Ptr("f")})
	if !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if err := repo.AddSubmission(newSubmission("x2")); err != nil {
		t.Fatalf("AddSubmission: %v", err)
	}
	flush(t, repo)

	raw, _, _ := storage.GetItem(context.Background(), KeySubmissions)
	stored, err := DecodeSubmissions(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stored) != 4 || stored[3].ID != "x2" {
		t.Errorf("x2 should be persisted, got %d records", len(stored))
	}
	if stored[1].Status != StatusAssigned || stored[1].Rating != nil {
		t.Errorf("s2 should be untouched, got %+v", stored[1])
	}
	if n := testutil.ToFloat64(m.WriteErrors()); n != 0 {
		t.Errorf("write errors: got %v want 0", n)
	}
}

func TestMirroredRepository_status_never_regresses(t *testing.T) {
	repo, _ := newTestRepository(t, NewInMemoryStorage())
	loadRepo(t, repo)

	sequence := []SubmissionPatch{
		{Status: Ptr(StatusAssigned), AssignedJudgeID: Ptr("j1")},
		{Status: Ptr(StatusJudged), Rating: Ptr(6.5), Feedback: Ptr("solid")},
		{Status: Ptr(StatusPending)},
		{Status: Ptr(StatusAssigned)},
		{AssignedJudgeID: Ptr("j2")},
		{Status: Ptr(StatusPending), AssignedJudgeID: Ptr("")},
	}
	last := StatusPending
	for i, p := range sequence {
		_ = repo.UpdateSubmission("s1", p)
		got, _ := repo.Submission("s1")
		if got.Status.rank() < last.rank() {
			t.Fatalf("step %d: status moved from %s back to %s", i, last, got.Status)
		}
		last = got.Status
	}
	if last != StatusJudged {
		t.Errorf("expected s1 to end judged, got %s", last)
	}
}

func TestMirroredRepository_SelectRole_ClearRole(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, _ := newTestRepository(t, storage)
	initial := loadRepo(t, repo).Session

	if err := repo.SelectRole(RoleAdmin, "admin1"); err != nil {
		t.Fatalf("SelectRole: %v", err)
	}
	if got := repo.Session(); got != (Session{Role: RoleAdmin, UserID: "admin1"}) {
		t.Errorf("session after select: %+v", got)
	}

	flush(t, repo)
	role, _, _ := storage.GetItem(context.Background(), KeyUserRole)
	uid, _, _ := storage.GetItem(context.Background(), KeyUserID)
	if role != "admin" || uid != "admin1" {
		t.Errorf("persisted session: role=%q user=%q", role, uid)
	}

	repo.ClearRole(context.Background())
	if got := repo.Session(); got != initial {
		t.Errorf("session after clear: got %+v want %+v", got, initial)
	}
	if _, ok, _ := storage.GetItem(context.Background(), KeyUserRole); ok {
		t.Error("role should be removed from storage")
	}
	if _, ok, _ := storage.GetItem(context.Background(), KeyUserID); ok {
		t.Error("user id should be removed from storage")
	}
}

func TestMirroredRepository_ClearRole_after_unflushed_select(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, _ := newTestRepository(t, storage)
	loadRepo(t, repo)

	_ = repo.SelectRole(RoleJudge, "j1")
	repo.ClearRole(context.Background())
	flush(t, repo)

	if len(storage.Keys()) != 0 {
		t.Errorf("queued select must not outlive clear, storage has %v", storage.Keys())
	}
}

func TestMirroredRepository_SelectRole_invalid(t *testing.T) {
	repo, _ := newTestRepository(t, NewInMemoryStorage())
	loadRepo(t, repo)

	for _, role := range []Role{RoleNone, Role("root")} {
		if err := repo.SelectRole(role, "x"); !errors.Is(err, ErrInvalidRole) {
			t.Errorf("SelectRole(%q): expected ErrInvalidRole, got %v", role, err)
		}
	}
	if repo.Session().Active() {
		t.Error("invalid role must not start a session")
	}
}

func TestMirroredRepository_round_trip(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, _ := newTestRepository(t, storage)
	loadRepo(t, repo)

	repo.AddSubmission(newSubmission("s20"))
	_ = repo.UpdateSubmission("s1", SubmissionPatch{Status: Ptr(StatusAssigned), AssignedJudgeID: Ptr("j2")})
	_ = repo.UpdateSubmission("s2", SubmissionPatch{Status: Ptr(StatusJudged), Rating: Ptr(4.5), Feedback: Ptr("needs work")})
	_ = repo.SelectRole(RoleContestant, "c42")
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reloaded, _ := newTestRepository(t, storage)
	ready := loadRepo(t, reloaded)
	if ready.Seeded {
		t.Fatal("reload should read the stored collection")
	}

	want := repo.Submissions()
	got := reloaded.Submissions()
	if len(got) != len(want) {
		t.Fatalf("reloaded %d submissions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Status != want[i].Status {
			t.Errorf("record %d: got %s/%s want %s/%s", i, got[i].ID, got[i].Status, want[i].ID, want[i].Status)
		}
		if !reflect.DeepEqual(got[i].Rating, want[i].Rating) {
			t.Errorf("record %d rating: got %v want %v", i, got[i].Rating, want[i].Rating)
		}
	}
	if ready.Session != (Session{Role: RoleContestant, UserID: "c42"}) {
		t.Errorf("session not restored: %+v", ready.Session)
	}
}

func TestMirroredRepository_write_failure_is_silent(t *testing.T) {
	storage := newFlakyStorage()
	storage.failWrite = true
	repo, m := newTestRepository(t, storage)
	loadRepo(t, repo)

	repo.AddSubmission(newSubmission("s30"))
	if err := repo.UpdateSubmission("s30", SubmissionPatch{Title: Ptr("Renamed")}); err != nil {
		t.Fatalf("write failure must not surface to the caller: %v", err)
	}
	flush(t, repo)

	got, ok := repo.Submission("s30")
	if !ok || got.Title != "Renamed" {
		t.Errorf("in-memory state should stay authoritative, got %+v ok=%v", got, ok)
	}
	if n := testutil.ToFloat64(m.WriteErrors()); n != 2 {
		t.Errorf("write errors: got %v want 2", n)
	}
}

func TestMirroredRepository_writes_keep_mutation_order(t *testing.T) {
	storage := NewInMemoryStorage()
	repo, _ := newTestRepository(t, storage)
	loadRepo(t, repo)

	for i := 0; i < 50; i++ {
		repo.AddSubmission(newSubmission("x"))
	}
	flush(t, repo)

	raw, _, _ := storage.GetItem(context.Background(), KeySubmissions)
	stored, err := DecodeSubmissions(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stored) != 53 {
		t.Errorf("last write should hold all 53 records, got %d", len(stored))
	}
}

func TestMirroredRepository_Close(t *testing.T) {
	storage := newFlakyStorage()
	repo, _ := newTestRepository(t, storage)
	loadRepo(t, repo)

	repo.AddSubmission(newSubmission("s40"))
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok, _ := storage.GetItem(context.Background(), KeySubmissions); !ok {
		t.Error("Close should drain pending writes")
	}

	t.Run("idempotent", func(t *testing.T) {
		if err := repo.Close(); err != nil {
			t.Errorf("second Close: %v", err)
		}
	})

	t.Run("mutations_after_close_stay_in_memory", func(t *testing.T) {
		writes := len(storage.writes)
		repo.AddSubmission(newSubmission("s41"))
		if _, ok := repo.Submission("s41"); !ok {
			t.Error("s41 should be in memory")
		}
		if err := repo.Flush(context.Background()); err != nil {
			t.Errorf("Flush after Close: %v", err)
		}
		if len(storage.writes) != writes {
			t.Error("no writes expected after Close")
		}
	})
}

func TestMirroredRepository_Judges(t *testing.T) {
	repo, _ := newTestRepository(t, NewInMemoryStorage())

	judges := repo.Judges()
	if len(judges) != 3 {
		t.Fatalf("expected 3 judges, got %d", len(judges))
	}
	judges[0].Name = "changed"
	if j, _ := repo.Judge("j1"); j.Name != "Sarah Johnson" {
		t.Error("Judges must return a copy")
	}

	if _, ok := repo.Judge("j9"); ok {
		t.Error("unknown judge should not be found")
	}
}

func TestMirroredRepository_StatusCounts(t *testing.T) {
	repo, _ := newTestRepository(t, NewInMemoryStorage())
	loadRepo(t, repo)

	want := map[Status]int{StatusPending: 1, StatusAssigned: 1, StatusJudged: 1}
	if got := repo.StatusCounts(); !reflect.DeepEqual(got, want) {
		t.Errorf("StatusCounts: got %v want %v", got, want)
	}
}

func TestMirroredRepository_Submissions_returns_copy(t *testing.T) {
	repo, _ := newTestRepository(t, NewInMemoryStorage())
	loadRepo(t, repo)

	subs := repo.Submissions()
	subs[2].Title = "changed"
	*subs[2].Rating = 1

	got, _ := repo.Submission("s3")
	if got.Title != "Electric Soul" || *got.Rating != 8.5 {
		t.Errorf("caller mutation leaked into the store: %+v", got)
	}
}
