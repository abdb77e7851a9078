package reports

import "context"

// Repository port (interface for persistence)
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id ReportID) (*Report, error)
	ListByUser(ctx context.Context, userID string) ([]*Report, error)
	ListVisibleToDoctors(ctx context.Context) ([]*Report, error)

	// UpdateFlags applies a partial update keyed by id; analysis and the
	// rest of the row are never touched after insert.
	UpdateFlags(ctx context.Context, id ReportID, upd FlagUpdate) error
}
