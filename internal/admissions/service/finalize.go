package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/idx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
)

// Inviter creates ticket invitations for a batch.
type Inviter interface {
	InviteAll(ctx context.Context, applicants []domain.Applicant, params TicketParams) (BulkInviteResult, error)
}

// Notifier sends one category's notifications.
type Notifier interface {
	Process(ctx context.Context, category domain.Category, src TicketSource) NotifyResult
}

// Finalizer runs a whole finalization round: ticket invitations, category
// notifications and the verified status transitions. One run at a time.
type Finalizer struct {
	Store    store.Store
	Inviter  Inviter
	Notifier Notifier
	Metrics  *Metrics
	Now      func() time.Time

	mu sync.Mutex
}

func (f *Finalizer) now() time.Time {
	if f.Now != nil {
		return f.Now().UTC()
	}
	return time.Now().UTC()
}

// Finalize runs one round and persists its report. Per-applicant and
// per-category failures are reported, not returned; the error is non-nil
// only when the run could not start.
func (f *Finalizer) Finalize(ctx context.Context, params TicketParams) (domain.FinalizationReport, error) {
	if !f.mu.TryLock() {
		f.Metrics.finalizeRun("rejected", 0)
		return domain.FinalizationReport{}, ErrFinalizationInProgress
	}
	defer f.mu.Unlock()

	started := f.now()
	runID := idx.NewAt(started)
	ctx = slogx.WithRunID(ctx, runID.String())
	log := slogx.FromContext(ctx)

	batch, err := f.Store.BatchCounter().GetBatchNumber(ctx)
	if err != nil {
		return domain.FinalizationReport{}, fmt.Errorf("read batch counter: %w", err)
	}
	ticketApplicants, err := f.Store.Applicants().ListApplicantsByStatus(ctx, domain.TicketStatuses()...)
	if err != nil {
		return domain.FinalizationReport{}, fmt.Errorf("list ticket applicants: %w", err)
	}

	log.Info("finalization started",
		slog.Int("batch_number", batch),
		slog.Int("ticket_applicants", len(ticketApplicants)),
	)

	var (
		wg       sync.WaitGroup
		bulk     BulkInviteResult
		bulkErr  error
		resultMu sync.Mutex
		results  = make(map[domain.Category]NotifyResult, len(domain.Categories))
	)
	record := func(r NotifyResult) {
		resultMu.Lock()
		results[r.Category] = r
		resultMu.Unlock()
	}

	// Ticket path: invitations strictly before dependent notifications.
	wg.Go(func() {
		bulk = BulkInviteResult{Invites: domain.InviteMap{}}
		if len(ticketApplicants) > 0 {
			bulk, bulkErr = f.Inviter.InviteAll(ctx, ticketApplicants, params)
			if bulkErr != nil {
				bulk.Invites = domain.InviteMap{}
			}
		}
		for _, c := range domain.Categories {
			if c.RequiresTicket() {
				record(f.Notifier.Process(ctx, c, TicketsFromMap(bulk.Invites)))
			}
		}
	})
	for _, c := range domain.Categories {
		if !c.RequiresTicket() {
			wg.Go(func() {
				record(f.Notifier.Process(ctx, c, TicketSource{}))
			})
		}
	}
	wg.Wait()

	report := domain.FinalizationReport{
		ID:          runID.String(),
		BatchNumber: batch,
		StartedAt:   started,
		Tickets:     ticketReport(len(ticketApplicants), bulk, bulkErr),
	}

	hardErrors := len(report.Tickets.Errors)
	for _, c := range domain.Categories {
		cr := f.transition(ctx, c, results[c], bulk.Invites, batch)
		hardErrors += cr.ErrorCount() + len(cr.Skipped) + len(cr.Blocked)
		report.Categories = append(report.Categories, cr)
	}

	result := "partial"
	if hardErrors == 0 {
		if n, err := f.Store.BatchCounter().IncrementBatchNumber(ctx); err != nil {
			log.Error("failed to increment batch counter", slog.Any("error", err))
		} else {
			report.Succeeded = true
			result = "succeeded"
			log.Info("batch counter incremented", slog.Int("batch_number", n))
		}
	}

	report.FinishedAt = f.now()
	if err := f.Store.Reports().CreateReport(ctx, report); err != nil {
		log.Error("failed to persist finalization report", slog.Any("error", err))
	}
	f.Metrics.finalizeRun(result, report.FinishedAt.Sub(started))

	log.Info("finalization finished",
		slog.Bool("succeeded", report.Succeeded),
		slog.Int("hard_errors", hardErrors),
		slog.Int("invited", report.Tickets.Invited),
		slog.Duration("duration", report.FinishedAt.Sub(started)),
	)
	return report, nil
}

func ticketReport(attempted int, bulk BulkInviteResult, err error) domain.TicketReport {
	tr := domain.TicketReport{
		OK:             bulk.OK,
		Attempted:      attempted,
		Invited:        len(bulk.Invites),
		Errors:         bulk.Errors,
		AutoFixedCount: bulk.AutoFixedCount,
		AutoFixedNotes: bulk.AutoFixedNotes,
		Outcomes:       bulk.Outcomes,
	}
	if err != nil {
		tr.OK = false
		tr.Errors = append(tr.Errors, "ticket creation aborted: "+err.Error())
	}
	return tr
}

// transition applies the status update for every notified applicant that
// passes the second gate: ticket categories need the email in invites, and
// no category may transition an applicant its own failure summary mentions.
func (f *Finalizer) transition(ctx context.Context, c domain.Category, res NotifyResult, invites domain.InviteMap, batch int) domain.CategoryReport {
	log := slogx.FromContext(ctx)

	cr := domain.CategoryReport{
		Category: c,
		OK:       res.OK,
		Notified: len(res.IDs),
		Skipped:  res.Skipped(),
		Failures: res.Failures(),
	}
	var summary string
	if res.Err != nil {
		cr.Error = res.Err.Error()
		summary = strings.ToLower(cr.Error)
	}

	known := make(map[string]domain.Applicant, len(res.Outcomes))
	for _, o := range res.Outcomes {
		known[o.Applicant.ID] = o.Applicant
	}

	for _, id := range res.IDs {
		a, ok := known[id]
		if !ok {
			var err error
			if a, err = f.Store.Applicants().GetApplicantByID(ctx, id); err != nil {
				cr.UpdateErrors = append(cr.UpdateErrors, id+": "+err.Error())
				continue
			}
		}

		email := a.NormalizedEmail()
		if c.RequiresTicket() {
			if _, ok := invites.URL(email); !ok {
				log.Warn("notified applicant has no verified ticket; not transitioning", slog.String("email", email))
				cr.Blocked = append(cr.Blocked, email+": no verified ticket invitation")
				continue
			}
		}
		if mentions(summary, email) {
			cr.Blocked = append(cr.Blocked, email+": mentioned in failure summary")
			continue
		}

		err := f.Store.Applicants().UpdateDecision(ctx, a.ID, domain.DecisionUpdate{
			From:          c.SourceStatus(),
			Status:        c.TargetStatus(),
			WasWaitlisted: a.WasWaitlisted || c.Waitlisted(),
			BatchNumber:   batch,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = fmt.Errorf("applicant no longer %s", c.SourceStatus())
			}
			log.Warn("status transition failed", slog.String("email", email), slog.Any("error", err))
			cr.UpdateErrors = append(cr.UpdateErrors, email+": "+err.Error())
			continue
		}
		cr.Transitioned++
	}

	return cr
}

// mentions reports whether summary names email as a whole address.
func mentions(summary, email string) bool {
	if summary == "" || email == "" {
		return false
	}
	for rest, offset := summary, 0; ; {
		i := strings.Index(rest, email)
		if i < 0 {
			return false
		}
		start, end := offset+i, offset+i+len(email)
		if (start == 0 || !isEmailByte(summary[start-1])) && (end == len(summary) || !isEmailByte(summary[end])) {
			return true
		}
		rest, offset = summary[start+1:], start+1
	}
}

func isEmailByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	}
	return strings.IndexByte("._%+-@", b) >= 0
}
