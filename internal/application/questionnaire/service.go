package questionnaire

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tejxv/PULSE/internal/application"
	"github.com/tejxv/PULSE/internal/domain/analysis"
	"github.com/tejxv/PULSE/internal/domain/reports"
)

// Submission is one form instance working through the two-phase flow.
// State is confined to the instance; the mutex only serialises access from
// the handler goroutines, there is no cross-instance sharing.
type Submission struct {
	mu sync.Mutex

	id               string
	userID           string
	department       reports.Department
	visitID          string
	visibleToDoctors bool
	docIDs           []string

	state         State
	initial       []reports.QnACategory
	followUps     []string
	followUpReady bool
	reportID      reports.ReportID
	touched       time.Time
}

// Submissions live only until their report is persisted; abandoned ones are
// swept after this long without activity.
const staleAfter = 24 * time.Hour

const sweepInterval = time.Hour

// View is the client-facing snapshot of a submission.
type View struct {
	ID                string                `json:"id"`
	VisitID           string                `json:"visit_id"`
	State             string                `json:"state"`
	Department        reports.Department    `json:"department"`
	Questions         []reports.QnACategory `json:"questions"`
	FollowUpQuestions []string              `json:"followup_questions,omitempty"`
	ReportID          reports.ReportID      `json:"report_id,omitempty"`
}

// Service implements the questionnaire workflow use-cases.
// Safe for concurrent use.
type Service struct {
	repo    reports.Repository
	backend analysis.Backend
	clock   application.Clock
	logger  *zap.Logger

	mu   sync.RWMutex
	subs map[string]*Submission
}

func NewService(repo reports.Repository, backend analysis.Backend, clock application.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:    repo,
		backend: backend,
		clock:   clock,
		logger:  logger,
		subs:    make(map[string]*Submission),
	}
	go s.cleanup()
	return s
}

// Begin registers a new submission for the user and hands back the question
// catalog to render.
func (s *Service) Begin(userID string, department reports.Department, visibleToDoctors bool, docIDs []string) (View, error) {
	if !department.Valid() {
		return View{}, fmt.Errorf("%w: %q", ErrInvalidDepartment, department)
	}

	sub := &Submission{
		id:               uuid.New().String(),
		userID:           userID,
		department:       department,
		visitID:          uuid.New().String(),
		visibleToDoctors: visibleToDoctors,
		docIDs:           docIDs,
		state:            StateIdle,
		touched:          s.clock.Now(),
	}

	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()

	s.logger.Info("submission started",
		zap.String("submission_id", sub.id),
		zap.String("department", string(department)))
	return sub.view(), nil
}

// SubmitInitial takes the complete initial answer set and asks the backend
// for the follow-up round. An empty round is valid: the submission moves on
// and the final phase accepts an empty follow-up answer map.
func (s *Service) SubmitInitial(ctx context.Context, id string, answers []reports.QnACategory) ([]string, error) {
	sub, err := s.submission(id)
	if err != nil {
		return nil, err
	}

	sub.mu.Lock()
	if sub.state.InFlight() {
		sub.mu.Unlock()
		return nil, ErrBusy
	}
	if !sub.state.CanTransition(StateAwaitingFollowUp) {
		sub.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, sub.state)
	}
	if err := validateAgainstCatalog(answers); err != nil {
		sub.mu.Unlock()
		return nil, err
	}
	sub.initial = answers
	sub.state = StateAwaitingFollowUp
	sub.touched = s.clock.Now()
	qna := reports.FlattenQnA(answers)
	department := sub.department
	sub.mu.Unlock()

	questions, err := s.backend.FollowUpQuestions(ctx, qna, string(department))

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if err != nil {
		sub.state = StateFailed
		s.logger.Warn("followup request failed",
			zap.String("submission_id", id), zap.Error(err))
		return nil, fmt.Errorf("getting follow-up questions: %w", err)
	}
	if len(questions) > MaxFollowUpQuestions {
		questions = questions[:MaxFollowUpQuestions]
	}
	sub.followUps = questions
	sub.followUpReady = true
	sub.state = StateAwaitingFinal
	return questions, nil
}

// SubmitFinal merges both answer rounds, requests the analysis, and persists
// the report in one atomic insert. On failure at either step the submission
// fails and any obtained analysis text is discarded; nothing is half-written.
func (s *Service) SubmitFinal(ctx context.Context, id string, followUpAnswers map[string]string) (reports.ReportID, error) {
	sub, err := s.submission(id)
	if err != nil {
		return "", err
	}

	sub.mu.Lock()
	if sub.state.InFlight() {
		sub.mu.Unlock()
		return "", ErrBusy
	}
	if !sub.state.CanTransition(StateAnalyzing) || !sub.followUpReady {
		sub.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrInvalidState, sub.state)
	}
	issued := make(map[string]bool, len(sub.followUps))
	for _, q := range sub.followUps {
		issued[q] = true
	}
	for q := range followUpAnswers {
		if !issued[q] {
			sub.mu.Unlock()
			return "", fmt.Errorf("%w: %q", ErrUnknownQuestion, q)
		}
	}
	followUp := make(map[string]string, len(sub.followUps))
	for _, q := range sub.followUps {
		followUp[q] = followUpAnswers[q]
	}
	merged := reports.MergeQnA(reports.FlattenQnA(sub.initial), followUp)

	req := analysis.SummaryRequest{
		UserID:     sub.userID,
		QnA:        merged,
		DocIDs:     sub.docIDs,
		Department: string(sub.department),
	}
	sub.state = StateAnalyzing
	sub.touched = s.clock.Now()
	sub.mu.Unlock()

	text, err := s.backend.Summarize(ctx, req)
	if err != nil {
		sub.mu.Lock()
		sub.state = StateFailed
		sub.mu.Unlock()
		s.logger.Warn("analysis request failed",
			zap.String("submission_id", id), zap.Error(err))
		return "", fmt.Errorf("getting analysis: %w", err)
	}

	report := &reports.Report{
		ID:                 reports.ReportID(uuid.New().String()),
		UserID:             sub.userID,
		Department:         sub.department,
		Responses:          merged,
		Analysis:           text,
		VisitID:            sub.visitID,
		DocIDs:             sub.docIDs,
		IsVisibleToDoctors: sub.visibleToDoctors,
		CreatedAt:          s.clock.Now(),
	}
	if err := s.repo.Save(ctx, report); err != nil {
		sub.mu.Lock()
		sub.state = StateFailed
		sub.mu.Unlock()
		s.logger.Error("report insert failed",
			zap.String("submission_id", id), zap.Error(err))
		return "", fmt.Errorf("saving report: %w", err)
	}

	sub.mu.Lock()
	sub.reportID = report.ID
	sub.state = StateDone
	sub.mu.Unlock()

	// The submission's job is done once the report row exists; discard it
	// so the registry holds active workflows only.
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()

	s.logger.Info("report created",
		zap.String("submission_id", id),
		zap.String("report_id", string(report.ID)))
	return report.ID, nil
}

// State returns the current workflow state of a submission.
func (s *Service) State(id string) (State, error) {
	sub, err := s.submission(id)
	if err != nil {
		return StateIdle, err
	}
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.state, nil
}

// Get returns the client-facing snapshot of a submission.
func (s *Service) Get(id string) (View, error) {
	sub, err := s.submission(id)
	if err != nil {
		return View{}, err
	}
	return sub.view(), nil
}

func (s *Service) cleanup() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.removeStale(s.clock.Now())
	}
}

// removeStale drops abandoned submissions. Instances with a backend request
// outstanding are kept; the request resolves before they can go stale.
func (s *Service) removeStale(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subs {
		sub.mu.Lock()
		stale := !sub.state.InFlight() && now.Sub(sub.touched) > staleAfter
		sub.mu.Unlock()
		if stale {
			delete(s.subs, id)
		}
	}
}

func (s *Service) submission(id string) (*Submission, error) {
	s.mu.RLock()
	sub, ok := s.subs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSubmission
	}
	return sub, nil
}

func (sub *Submission) view() View {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return View{
		ID:                sub.id,
		VisitID:           sub.visitID,
		State:             sub.state.String(),
		Department:        sub.department,
		Questions:         Catalog(),
		FollowUpQuestions: sub.followUps,
		ReportID:          sub.reportID,
	}
}

// validateAgainstCatalog requires the answers to cover the fixed catalog
// exactly: every catalog question answered (empty strings allowed), no
// answers for questions that were never asked.
func validateAgainstCatalog(answers []reports.QnACategory) error {
	if err := reports.ValidateQnA(answers); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteAnswers, err)
	}
	expected := reports.FlattenQnA(Catalog())
	got := reports.FlattenQnA(answers)
	for q := range expected {
		if _, ok := got[q]; !ok {
			return fmt.Errorf("%w: missing %q", ErrIncompleteAnswers, q)
		}
	}
	for q := range got {
		if _, ok := expected[q]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownQuestion, q)
		}
	}
	return nil
}
