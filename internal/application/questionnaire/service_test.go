package questionnaire

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejxv/PULSE/internal/domain/analysis"
	"github.com/tejxv/PULSE/internal/domain/reports"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeBackend struct {
	mu             sync.Mutex
	questions      []string
	followErr      error
	summary        string
	summaryErr     error
	lastSummaryReq analysis.SummaryRequest

	// when set, FollowUpQuestions signals entered and blocks until released
	entered  chan struct{}
	released chan struct{}
}

func (b *fakeBackend) FollowUpQuestions(ctx context.Context, qna map[string]string, department string) ([]string, error) {
	if b.entered != nil {
		close(b.entered)
		<-b.released
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.questions, b.followErr
}

func (b *fakeBackend) Summarize(ctx context.Context, req analysis.SummaryRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSummaryReq = req
	return b.summary, b.summaryErr
}

func (b *fakeBackend) DoctorMapping(ctx context.Context, visitID string) (map[string]any, error) {
	return nil, analysis.ErrUnsupported
}

type fakeRepo struct {
	mu      sync.Mutex
	saved   []*reports.Report
	saveErr error
}

func (r *fakeRepo) Save(ctx context.Context, rep *reports.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, rep)
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id reports.ReportID) (*reports.Report, error) {
	return nil, reports.ErrNotFound
}

func (r *fakeRepo) ListByUser(ctx context.Context, userID string) ([]*reports.Report, error) {
	return nil, nil
}

func (r *fakeRepo) ListVisibleToDoctors(ctx context.Context) ([]*reports.Report, error) {
	return nil, nil
}

func (r *fakeRepo) UpdateFlags(ctx context.Context, id reports.ReportID, upd reports.FlagUpdate) error {
	return nil
}

func answeredCatalog() []reports.QnACategory {
	cats := Catalog()
	for i := range cats {
		for j := range cats[i].Items {
			cats[i].Items[j].Answer = "answer"
		}
	}
	return cats
}

func newTestService(backend *fakeBackend, repo *fakeRepo) *Service {
	return NewService(repo, backend, fixedClock{t: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}, nil)
}

func begin(t *testing.T, svc *Service) string {
	t.Helper()
	v, err := svc.Begin("user-1", reports.DeptCardiology, true, nil)
	require.NoError(t, err)
	return v.ID
}

func TestBegin(t *testing.T) {
	svc := newTestService(&fakeBackend{}, &fakeRepo{})

	t.Run("returns catalog and idle state", func(t *testing.T) {
		v, err := svc.Begin("user-1", reports.DeptPediatrics, true, []string{"doc-1"})
		require.NoError(t, err)
		assert.Equal(t, "idle", v.State)
		assert.NotEmpty(t, v.VisitID)
		require.Len(t, v.Questions, 1)
		assert.Len(t, v.Questions[0].Items, 6)
	})

	t.Run("rejects unknown department", func(t *testing.T) {
		_, err := svc.Begin("user-1", reports.Department("Wizardry"), true, nil)
		assert.ErrorIs(t, err, ErrInvalidDepartment)
	})
}

func TestSubmitInitial(t *testing.T) {
	ctx := context.Background()

	t.Run("follow-up set capped at five", func(t *testing.T) {
		backend := &fakeBackend{questions: []string{"f1", "f2", "f3", "f4", "f5", "f6", "f7"}}
		svc := newTestService(backend, &fakeRepo{})
		id := begin(t, svc)

		qs, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		require.NoError(t, err)
		assert.Len(t, qs, MaxFollowUpQuestions)

		st, err := svc.State(id)
		require.NoError(t, err)
		assert.Equal(t, StateAwaitingFinal, st)
	})

	t.Run("malformed response fails with no follow-up set", func(t *testing.T) {
		backend := &fakeBackend{followErr: analysis.ErrBadResponse}
		svc := newTestService(backend, &fakeRepo{})
		id := begin(t, svc)

		_, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		require.ErrorIs(t, err, analysis.ErrBadResponse)

		st, _ := svc.State(id)
		assert.Equal(t, StateFailed, st)
		v, _ := svc.Get(id)
		assert.Empty(t, v.FollowUpQuestions)
	})

	t.Run("zero questions means no follow-up round", func(t *testing.T) {
		backend := &fakeBackend{questions: nil, summary: "## Patient of 1 years old, Male"}
		repo := &fakeRepo{}
		svc := newTestService(backend, repo)
		id := begin(t, svc)

		qs, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		require.NoError(t, err)
		assert.Empty(t, qs)

		st, _ := svc.State(id)
		assert.Equal(t, StateAwaitingFinal, st)

		// Final phase proceeds directly with no follow-up answers
		_, err = svc.SubmitFinal(ctx, id, map[string]string{})
		require.NoError(t, err)
	})

	t.Run("incomplete answers rejected", func(t *testing.T) {
		svc := newTestService(&fakeBackend{}, &fakeRepo{})
		id := begin(t, svc)

		partial := answeredCatalog()
		partial[0].Items = partial[0].Items[:2]
		_, err := svc.SubmitInitial(ctx, id, partial)
		assert.ErrorIs(t, err, ErrIncompleteAnswers)
	})

	t.Run("answers for unasked questions rejected", func(t *testing.T) {
		svc := newTestService(&fakeBackend{}, &fakeRepo{})
		id := begin(t, svc)

		extra := answeredCatalog()
		extra[0].Items = append(extra[0].Items, reports.QnAItem{Question: "made up", Answer: "x"})
		_, err := svc.SubmitInitial(ctx, id, extra)
		assert.ErrorIs(t, err, ErrUnknownQuestion)
	})

	t.Run("unknown submission", func(t *testing.T) {
		svc := newTestService(&fakeBackend{}, &fakeRepo{})
		_, err := svc.SubmitInitial(ctx, "nope", answeredCatalog())
		assert.ErrorIs(t, err, ErrUnknownSubmission)
	})

	t.Run("manual retry after failure", func(t *testing.T) {
		backend := &fakeBackend{followErr: errors.New("network down")}
		svc := newTestService(backend, &fakeRepo{})
		id := begin(t, svc)

		_, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		require.Error(t, err)

		backend.mu.Lock()
		backend.followErr = nil
		backend.questions = []string{"f1"}
		backend.mu.Unlock()

		qs, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		require.NoError(t, err)
		assert.Equal(t, []string{"f1"}, qs)
	})
}

func TestSubmitFinal(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, backend *fakeBackend, repo *fakeRepo) (svc *Service, id string) {
		t.Helper()
		svc = newTestService(backend, repo)
		id = begin(t, svc)
		_, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		require.NoError(t, err)
		return svc, id
	}

	t.Run("merges rounds and persists one report", func(t *testing.T) {
		backend := &fakeBackend{
			questions: []string{"Any recent travel?", "Any fever at night?"},
			summary:   "## Patient of 45 years old, Male\n- **Symptoms:**\n- fever",
		}
		repo := &fakeRepo{}
		svc, id := setup(t, backend, repo)

		reportID, err := svc.SubmitFinal(ctx, id, map[string]string{
			"Any recent travel?":  "no",
			"Any fever at night?": "yes",
		})
		require.NoError(t, err)

		// Key count is the sum of both rounds, nothing dropped
		assert.Len(t, backend.lastSummaryReq.QnA, 6+2)
		assert.Equal(t, "user-1", backend.lastSummaryReq.UserID)
		assert.Equal(t, string(reports.DeptCardiology), backend.lastSummaryReq.Department)

		require.Len(t, repo.saved, 1)
		saved := repo.saved[0]
		assert.Equal(t, reportID, saved.ID)
		assert.Equal(t, backend.summary, saved.Analysis)
		assert.True(t, saved.IsVisibleToDoctors)
		assert.Len(t, saved.Responses, 8)
		assert.Equal(t, 2025, saved.CreatedAt.Year())
	})

	t.Run("successful persistence discards the submission", func(t *testing.T) {
		backend := &fakeBackend{questions: []string{"f1"}, summary: "text"}
		svc, id := setup(t, backend, &fakeRepo{})

		_, err := svc.SubmitFinal(ctx, id, map[string]string{"f1": "a"})
		require.NoError(t, err)

		_, err = svc.Get(id)
		assert.ErrorIs(t, err, ErrUnknownSubmission)
		_, err = svc.State(id)
		assert.ErrorIs(t, err, ErrUnknownSubmission)
		assert.Empty(t, svc.subs, "registry must not retain completed submissions")
	})

	t.Run("missing follow-up answers pass through empty", func(t *testing.T) {
		backend := &fakeBackend{questions: []string{"f1"}, summary: "ok"}
		repo := &fakeRepo{}
		svc, id := setup(t, backend, repo)

		_, err := svc.SubmitFinal(ctx, id, map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, "", backend.lastSummaryReq.QnA["f1"])
		assert.Len(t, backend.lastSummaryReq.QnA, 7)
	})

	t.Run("rejects answers to questions never issued", func(t *testing.T) {
		backend := &fakeBackend{questions: []string{"f1"}, summary: "ok"}
		svc, id := setup(t, backend, &fakeRepo{})

		_, err := svc.SubmitFinal(ctx, id, map[string]string{"invented": "x"})
		assert.ErrorIs(t, err, ErrUnknownQuestion)
	})

	t.Run("analysis failure writes nothing", func(t *testing.T) {
		backend := &fakeBackend{questions: []string{"f1"}, summaryErr: errors.New("boom")}
		repo := &fakeRepo{}
		svc, id := setup(t, backend, repo)

		_, err := svc.SubmitFinal(ctx, id, map[string]string{"f1": "a"})
		require.Error(t, err)
		assert.Empty(t, repo.saved)

		st, _ := svc.State(id)
		assert.Equal(t, StateFailed, st)
	})

	t.Run("insert failure discards analysis", func(t *testing.T) {
		backend := &fakeBackend{questions: []string{"f1"}, summary: "text"}
		repo := &fakeRepo{saveErr: errors.New("db down")}
		svc, id := setup(t, backend, repo)

		_, err := svc.SubmitFinal(ctx, id, map[string]string{"f1": "a"})
		require.Error(t, err)

		st, _ := svc.State(id)
		assert.Equal(t, StateFailed, st)

		// Manual retry re-requests the analysis; the earlier text was lost
		repo.mu.Lock()
		repo.saveErr = nil
		repo.mu.Unlock()
		_, err = svc.SubmitFinal(ctx, id, map[string]string{"f1": "a"})
		require.NoError(t, err)
		require.Len(t, repo.saved, 1)
	})

	t.Run("final before follow-up round is rejected", func(t *testing.T) {
		svc := newTestService(&fakeBackend{}, &fakeRepo{})
		id := begin(t, svc)
		_, err := svc.SubmitFinal(ctx, id, nil)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestRemoveStale(t *testing.T) {
	svc := newTestService(&fakeBackend{}, &fakeRepo{})
	id := begin(t, svc)
	started := svc.clock.Now()

	// Young submissions survive the sweep
	svc.removeStale(started.Add(staleAfter - time.Minute))
	_, err := svc.Get(id)
	require.NoError(t, err)

	// Abandoned ones are dropped once the age limit passes
	svc.removeStale(started.Add(staleAfter + time.Minute))
	_, err = svc.Get(id)
	assert.ErrorIs(t, err, ErrUnknownSubmission)
	assert.Empty(t, svc.subs)
}

func TestReentrancy(t *testing.T) {
	ctx := context.Background()

	backend := &fakeBackend{
		questions: []string{"f1"},
		entered:   make(chan struct{}),
		released:  make(chan struct{}),
	}
	repo := &fakeRepo{}
	svc := newTestService(backend, repo)
	id := begin(t, svc)

	done := make(chan error, 1)
	go func() {
		_, err := svc.SubmitInitial(ctx, id, answeredCatalog())
		done <- err
	}()

	<-backend.entered

	// A second submit while the first is in flight is a no-op
	_, err := svc.SubmitInitial(ctx, id, answeredCatalog())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = svc.SubmitFinal(ctx, id, nil)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, repo.saved)

	close(backend.released)
	require.NoError(t, <-done)

	st, _ := svc.State(id)
	assert.Equal(t, StateAwaitingFinal, st)
}
