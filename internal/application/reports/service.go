package reports

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tejxv/PULSE/internal/domain/analysis"
	"github.com/tejxv/PULSE/internal/domain/reports"
)

// Service implements the report list/detail use-cases plus the dashboard
// flag toggles. Reports are read from the repository on every call; nothing
// is cached, so flags written by another process are always visible. A
// failed toggle hands the caller the unchanged prior value back.
type Service struct {
	repo   reports.Repository
	logger *zap.Logger
}

func NewService(repo reports.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListItem is a report summary for the dashboard.
type ListItem struct {
	ID           reports.ReportID   `json:"id"`
	Title        string             `json:"title"`
	Preview      string             `json:"preview"`
	Department   reports.Department `json:"department"`
	IsUrgent     bool               `json:"is_urgent"`
	IsBookmarked bool               `json:"is_bookmarked"`
	CreatedAt    string             `json:"created_at"`
}

// Detail is the full report plus its parsed sections.
type Detail struct {
	Report  *reports.Report       `json:"report"`
	Title   string                `json:"title"`
	Parsed  analysis.ParsedReport `json:"parsed"`
	Preview string                `json:"preview"`
}

// Stats summarises the doctor-visible reports for the dashboard header.
type Stats struct {
	Total      int `json:"total"`
	Urgent     int `json:"urgent"`
	Bookmarked int `json:"bookmarked"`
}

// List returns the reports the requester may see: patients get their own,
// doctors get everything flagged visible. Reports without analysis text are
// filtered out, same as the dashboard does.
func (s *Service) List(ctx context.Context, userID string, role reports.Role) ([]ListItem, error) {
	var (
		rows []*reports.Report
		err  error
	)
	if role == reports.RoleDoctor {
		rows, err = s.repo.ListVisibleToDoctors(ctx)
	} else {
		rows, err = s.repo.ListByUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}

	items := make([]ListItem, 0, len(rows))
	for _, r := range rows {
		if r.Analysis == "" {
			continue
		}
		items = append(items, ListItem{
			ID:           r.ID,
			Title:        analysis.Title(r.Analysis),
			Preview:      analysis.Preview(r.Analysis),
			Department:   r.Department,
			IsUrgent:     r.IsUrgent,
			IsBookmarked: r.IsBookmarked,
			CreatedAt:    r.CreatedAt.Format("2 Jan 06"),
		})
	}
	return items, nil
}

// Get returns one report with its parsed sections, enforcing visibility.
func (s *Service) Get(ctx context.Context, id reports.ReportID, userID string, role reports.Role) (*Detail, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(r, userID, role); err != nil {
		return nil, err
	}
	return &Detail{
		Report:  r,
		Title:   analysis.Title(r.Analysis),
		Parsed:  analysis.ParseSections(r.Analysis),
		Preview: analysis.Preview(r.Analysis),
	}, nil
}

// Stats computes the dashboard counters over the doctor-visible set.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.repo.ListVisibleToDoctors(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing reports: %w", err)
	}
	var st Stats
	for _, r := range rows {
		if r.Analysis == "" {
			continue
		}
		st.Total++
		if r.IsUrgent {
			st.Urgent++
		}
		if r.IsBookmarked {
			st.Bookmarked++
		}
	}
	return st, nil
}

// ToggleUrgent flips the urgency flag. The row holds the truth: on a failed
// write nothing changed, and the caller gets the prior value back.
func (s *Service) ToggleUrgent(ctx context.Context, id reports.ReportID, userID string, role reports.Role) (bool, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if err := authorize(r, userID, role); err != nil {
		return false, err
	}

	prev := r.IsUrgent
	next := !prev
	if err := s.repo.UpdateFlags(ctx, id, reports.FlagUpdate{IsUrgent: &next}); err != nil {
		s.logger.Warn("urgent flag update failed",
			zap.String("report_id", string(id)), zap.Error(err))
		return prev, fmt.Errorf("updating flags: %w", err)
	}
	return next, nil
}

// ToggleBookmark flips the bookmark flag with the same scheme.
func (s *Service) ToggleBookmark(ctx context.Context, id reports.ReportID, userID string, role reports.Role) (bool, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	if err := authorize(r, userID, role); err != nil {
		return false, err
	}

	prev := r.IsBookmarked
	next := !prev
	if err := s.repo.UpdateFlags(ctx, id, reports.FlagUpdate{IsBookmarked: &next}); err != nil {
		s.logger.Warn("bookmark flag update failed",
			zap.String("report_id", string(id)), zap.Error(err))
		return prev, fmt.Errorf("updating flags: %w", err)
	}
	return next, nil
}

func (s *Service) load(ctx context.Context, id reports.ReportID) (*reports.Report, error) {
	return s.repo.Get(ctx, id)
}

func authorize(r *reports.Report, userID string, role reports.Role) error {
	if r.UserID == userID {
		return nil
	}
	if role == reports.RoleDoctor && r.IsVisibleToDoctors {
		return nil
	}
	return reports.ErrForbidden
}
