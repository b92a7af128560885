package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
)

type reportsRepo struct {
	db dbtx
}

func (r *reportsRepo) CreateReport(ctx context.Context, rep domain.FinalizationReport) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	createdAt := rep.FinishedAt
	if createdAt.IsZero() {
		createdAt = now()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO finalization_reports (id, batch_number, succeeded, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		rep.ID, rep.BatchNumber, rep.Succeeded, string(body), toMillis(createdAt),
	)
	return mapConstraint(err)
}

func (r *reportsRepo) GetReport(ctx context.Context, id string) (domain.FinalizationReport, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM finalization_reports WHERE id = ?`, id).Scan(&body)
	if err != nil {
		return domain.FinalizationReport{}, mapNotFound(err)
	}

	var rep domain.FinalizationReport
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return domain.FinalizationReport{}, fmt.Errorf("decode report %s: %w", id, err)
	}
	return rep, nil
}

func (r *reportsRepo) ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, batch_number, succeeded, created_at
		   FROM finalization_reports
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReportSummary
	for rows.Next() {
		var (
			s         domain.ReportSummary
			createdAt int64
		)
		if err := rows.Scan(&s.ID, &s.BatchNumber, &s.Succeeded, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = fromMillis(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *reportsRepo) DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM finalization_reports WHERE created_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
