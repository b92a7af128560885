package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
)

type applicantsRepo struct {
	db dbtx
}

const applicantColumns = `id, email, first_name, last_name, status, was_waitlisted, batch_number, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row rowScanner) (domain.Applicant, error) {
	var (
		a         domain.Applicant
		status    string
		batch     sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &status, &a.WasWaitlisted, &batch, &createdAt, &updatedAt)
	if err != nil {
		return domain.Applicant{}, err
	}
	a.Status = domain.Status(status)
	a.BatchNumber = mapNullIntPtr(batch)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func (r *applicantsRepo) CreateApplicant(ctx context.Context, a domain.Applicant) error {
	ts := now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = ts
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	if a.Status == "" {
		a.Status = domain.StatusPending
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applicants (`+applicantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, strings.TrimSpace(a.Email), a.FirstName, a.LastName, string(a.Status),
		a.WasWaitlisted, mapOptionalInt(a.BatchNumber), toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *applicantsRepo) GetApplicantByID(ctx context.Context, id string) (domain.Applicant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = ?`, id)
	a, err := scanApplicant(row)
	if err != nil {
		return domain.Applicant{}, mapNotFound(err)
	}
	return a, nil
}

func (r *applicantsRepo) ListApplicantsByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Applicant, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicantColumns+` FROM applicants WHERE status IN (`+placeholders+`) ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *applicantsRepo) UpdateDecision(ctx context.Context, id string, upd domain.DecisionUpdate) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE applicants
		    SET status = ?, was_waitlisted = ?, batch_number = ?, updated_at = ?
		  WHERE id = ? AND status = ?`,
		string(upd.Status), upd.WasWaitlisted, upd.BatchNumber, toMillis(now()),
		id, string(upd.From),
	))
}
