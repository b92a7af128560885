package service

import (
	"context"
	"log/slog"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
)

const errSkippedDuplicate = "skipped duplicate applicant email"

// Issuer creates a single ticket invitation.
type Issuer interface {
	Issue(ctx context.Context, req TicketRequest) (TicketResult, error)
}

// BulkInviteResult aggregates one bulk invitation pass. OK means at least one
// invitation succeeded; use Errors for exact failure accounting.
type BulkInviteResult struct {
	OK             bool
	Invites        domain.InviteMap
	Outcomes       []domain.InvitationOutcome
	Errors         []string
	AutoFixedCount int
	AutoFixedNotes map[string]string
}

// BulkInviter drives an Issuer over a batch in windows of WindowSize.
type BulkInviter struct {
	Issuer     Issuer
	WindowSize int // default TicketWindowSize
}

// InviteAll deduplicates applicants by normalized email and creates an
// invitation for each. It only returns an error when params are invalid;
// per-applicant failures are reported in the result.
func (s *BulkInviter) InviteAll(ctx context.Context, applicants []domain.Applicant, params TicketParams) (BulkInviteResult, error) {
	log := slogx.FromContext(ctx)
	res := BulkInviteResult{
		Invites:        domain.InviteMap{},
		AutoFixedNotes: map[string]string{},
	}

	if _, err := params.Validate(); err != nil {
		log.Error("bulk invite aborted", slog.Any("error", err))
		return res, err
	}

	unique := make([]domain.Applicant, 0, len(applicants))
	seen := make(map[string]bool, len(applicants))
	for _, a := range applicants {
		key := a.NormalizedEmail()
		if key != "" && seen[key] {
			res.Errors = append(res.Errors, key+": "+errSkippedDuplicate)
			res.Outcomes = append(res.Outcomes, domain.InvitationOutcome{Email: key, Error: errSkippedDuplicate})
			continue
		}
		seen[key] = true
		unique = append(unique, a)
	}

	size := s.WindowSize
	if size <= 0 {
		size = TicketWindowSize
	}

	results := make([]TicketResult, len(unique))
	errs := forEachWindow(ctx, unique, size, func(ctx context.Context, i int, a domain.Applicant) error {
		r, err := s.Issuer.Issue(ctx, TicketRequest{
			TicketParams: params,
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			Email:        a.Email,
		})
		results[i] = r
		if err == nil && r.URL == "" {
			return ErrTicketMissingURL
		}
		return err
	})

	for i, a := range unique {
		key := a.NormalizedEmail()
		if err := errs[i]; err != nil {
			label := key
			if label == "" {
				label = a.ID
			}
			log.Warn("ticket invitation failed", slog.String("applicant", label), slog.Any("error", err))
			res.Errors = append(res.Errors, label+": "+err.Error())
			res.Outcomes = append(res.Outcomes, domain.InvitationOutcome{Email: key, Error: err.Error()})
			continue
		}

		r := results[i]
		res.Invites[key] = r.URL
		res.Outcomes = append(res.Outcomes, domain.InvitationOutcome{Email: key, URL: r.URL, Note: r.Note})
		if r.Reused || r.Recreated {
			res.AutoFixedCount++
			res.AutoFixedNotes[key] = r.Note
		}
	}

	res.OK = len(res.Invites) > 0
	log.Info("bulk invite completed",
		slog.Int("attempted", len(unique)),
		slog.Int("invited", len(res.Invites)),
		slog.Int("errors", len(res.Errors)),
		slog.Int("auto_fixed", res.AutoFixedCount),
	)
	return res, nil
}
