package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/tejxv/PULSE/internal/domain/reports"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, user_id, department, responses, analysis, visit_id, doc_ids,
       is_visible_to_doctors, is_urgent, is_bookmarked, created_at`

// Save inserts the report row. One atomic insert; analysis is never updated
// afterwards, only the flag columns are.
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO reports
(id, user_id, department, responses, analysis, visit_id, doc_ids,
 is_visible_to_doctors, is_urgent, is_bookmarked, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?);
`
	responses, err := encodeResponses(rep.Responses)
	if err != nil {
		return fmt.Errorf("encoding responses: %w", err)
	}
	docIDs, err := encodeDocIDs(rep.DocIDs)
	if err != nil {
		return fmt.Errorf("encoding doc ids: %w", err)
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.UserID, rep.Department, responses, rep.Analysis, rep.VisitID, docIDs,
		rep.IsVisibleToDoctors, rep.IsUrgent, rep.IsBookmarked, created,
	)
	return err
}

// Get by ID
func (r *ReportRepository) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE id=? LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, err
}

// ListByUser returns the user's own reports, newest first
func (r *ReportRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE user_id=? ORDER BY created_at DESC;`
	return r.list(ctx, q, userID)
}

// ListVisibleToDoctors returns every report flagged visible, newest first
func (r *ReportRepository) ListVisibleToDoctors(ctx context.Context) ([]*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE is_visible_to_doctors=1 ORDER BY created_at DESC;`
	return r.list(ctx, q)
}

// UpdateFlags applies a partial update of the mutable flag columns only
func (r *ReportRepository) UpdateFlags(ctx context.Context, id domain.ReportID, upd domain.FlagUpdate) error {
	if upd.Empty() {
		return nil
	}
	var sets []string
	var args []interface{}
	if upd.IsUrgent != nil {
		sets = append(sets, "is_urgent = ?")
		args = append(args, *upd.IsUrgent)
	}
	if upd.IsBookmarked != nil {
		sets = append(sets, "is_bookmarked = ?")
		args = append(args, *upd.IsBookmarked)
	}
	args = append(args, id)

	q := "UPDATE reports SET " + strings.Join(sets, ", ") + " WHERE id = ?;"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) list(ctx context.Context, q string, args ...interface{}) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*domain.Report, error) {
	var rep domain.Report
	var responses, docIDs string
	if err := row.Scan(
		&rep.ID, &rep.UserID, &rep.Department, &responses, &rep.Analysis, &rep.VisitID, &docIDs,
		&rep.IsVisibleToDoctors, &rep.IsUrgent, &rep.IsBookmarked, &rep.CreatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	rep.Responses, err = decodeResponses(responses)
	if err != nil {
		return nil, fmt.Errorf("decoding responses: %w", err)
	}
	rep.DocIDs, err = decodeDocIDs(docIDs)
	if err != nil {
		return nil, fmt.Errorf("decoding doc ids: %w", err)
	}
	return &rep, nil
}
