package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/tejxv/PULSE/internal/domain/reports"
)

type ReportRepository struct{ db *sql.DB }

func NewReportRepository(db *sql.DB) *ReportRepository { return &ReportRepository{db: db} }

const reportColumns = `id, user_id, department, responses, analysis, visit_id, doc_ids,
       is_visible_to_doctors, is_urgent, is_bookmarked, created_at`

// Save inserts the report row (single atomic insert)
func (r *ReportRepository) Save(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO reports
(id, user_id, department, responses, analysis, visit_id, doc_ids,
 is_visible_to_doctors, is_urgent, is_bookmarked, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?);`

	responses := rep.Responses
	if responses == nil {
		responses = map[string]string{}
	}
	respJSON, err := json.Marshal(responses)
	if err != nil {
		return fmt.Errorf("encoding responses: %w", err)
	}
	docIDs := rep.DocIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	docJSON, err := json.Marshal(docIDs)
	if err != nil {
		return fmt.Errorf("encoding doc ids: %w", err)
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		rep.ID, rep.UserID, rep.Department, string(respJSON), rep.Analysis, rep.VisitID, string(docJSON),
		rep.IsVisibleToDoctors, rep.IsUrgent, rep.IsBookmarked, created.UTC().Format(time.RFC3339Nano),
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

func (r *ReportRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE user_id=? ORDER BY created_at DESC;`
	return r.list(ctx, q, userID)
}

func (r *ReportRepository) ListVisibleToDoctors(ctx context.Context) ([]*domain.Report, error) {
	q := `SELECT ` + reportColumns + ` FROM reports WHERE is_visible_to_doctors=1 ORDER BY created_at DESC;`
	return r.list(ctx, q)
}

// UpdateFlags partial update keyed by id
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
	var responses, docIDs, created string
	if err := row.Scan(
		&rep.ID, &rep.UserID, &rep.Department, &responses, &rep.Analysis, &rep.VisitID, &docIDs,
		&rep.IsVisibleToDoctors, &rep.IsUrgent, &rep.IsBookmarked, &created,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(responses), &rep.Responses); err != nil {
		return nil, fmt.Errorf("decoding responses: %w", err)
	}
	if docIDs != "" && docIDs != "[]" {
		if err := json.Unmarshal([]byte(docIDs), &rep.DocIDs); err != nil {
			return nil, fmt.Errorf("decoding doc ids: %w", err)
		}
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("decoding created_at: %w", err)
	}
	rep.CreatedAt = t
	return &rep, nil
}
