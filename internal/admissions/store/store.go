package store

import (
	"context"
	"errors"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose sub-repositories so transactional code cannot reach the outer
// connection by accident.
type Store interface {
	Applicants() Applicants
	KeySlots() KeySlots
	BatchCounter() BatchCounter
	Reports() Reports

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Applicants interface {
	// CreateApplicant inserts an applicant; email is unique ignoring case.
	CreateApplicant(ctx context.Context, a domain.Applicant) error

	GetApplicantByID(ctx context.Context, id string) (domain.Applicant, error)

	// ListApplicantsByStatus returns applicants holding any of statuses,
	// oldest first.
	ListApplicantsByStatus(ctx context.Context, statuses ...domain.Status) ([]domain.Applicant, error)

	// UpdateDecision applies upd if the applicant still holds upd.From.
	// Returns ErrNotFound when no row matched.
	UpdateDecision(ctx context.Context, id string, upd domain.DecisionUpdate) error
}

type KeySlots interface {
	// GetKeySlotCounter returns the singleton counter record.
	GetKeySlotCounter(ctx context.Context) (domain.KeySlotCounter, error)

	// AddSlotIndex moves the current slot forward by delta.
	AddSlotIndex(ctx context.Context, delta int) error

	// ResetCalls zeroes calls made and stamps last_reset.
	ResetCalls(ctx context.Context) error

	SetCalls(ctx context.Context, calls int) error
	IncrementCalls(ctx context.Context, n int) error

	// SetLimits updates max calls per slot and max slots.
	SetLimits(ctx context.Context, maxCalls, maxSlots int) error

	// ResetCounter returns to slot 1 with zero calls.
	ResetCounter(ctx context.Context) error
}

type BatchCounter interface {
	GetBatchNumber(ctx context.Context) (int, error)

	// IncrementBatchNumber bumps the counter and returns the new value.
	IncrementBatchNumber(ctx context.Context) (int, error)
}

type Reports interface {
	CreateReport(ctx context.Context, r domain.FinalizationReport) error
	GetReport(ctx context.Context, id string) (domain.FinalizationReport, error)

	// ListReports returns the newest reports first.
	ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error)

	// DeleteReportsBefore removes reports created before cutoff (housekeeping).
	DeleteReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
