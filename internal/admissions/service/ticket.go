package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/tito"
)

const (
	NoteReusedInvitation    = "reused existing invitation"
	NoteRecreatedInvitation = "deleted conflicting invitation and recreated"

	defaultTicketAttempts = 5
	defaultTicketBackoff  = time.Second
)

// TicketClient is the ticketing platform surface used for invitations.
type TicketClient interface {
	CreateInvitation(ctx context.Context, p tito.CreateInvitationParams) (tito.Invitation, error)
	GetInvitationByEmail(ctx context.Context, listID, email string) (tito.Invitation, error)
	DeleteInvitationByEmail(ctx context.Context, listID, email string) (string, error)
}

// TicketParams are the run-wide ticketing settings.
type TicketParams struct {
	ListID       string
	ReleaseIDs   string // comma-separated numeric ids
	DiscountCode string
}

// Validate checks the list id and release ids without any I/O.
func (p TicketParams) Validate() ([]int, error) {
	if strings.TrimSpace(p.ListID) == "" {
		return nil, fmt.Errorf("%w: list id is required", ErrInvalidTicketRequest)
	}
	ids, err := tito.ParseReleaseIDs(p.ReleaseIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTicketRequest, err)
	}
	return ids, nil
}

// TicketRequest asks for one applicant's invitation.
type TicketRequest struct {
	TicketParams
	FirstName string
	LastName  string
	Email     string
}

// TicketResult is a successful invitation. Reused and Recreated mark
// conflict recoveries.
type TicketResult struct {
	URL       string
	Reused    bool
	Recreated bool
	Note      string
}

// TicketIssuer creates one ticket invitation, recovering from duplicate
// conflicts and retrying rate limits.
type TicketIssuer struct {
	Client  TicketClient
	Metrics *Metrics

	// MaxAttempts bounds create attempts under rate limiting (default 5).
	MaxAttempts int
	// BaseDelay is the backoff unit, doubled per attempt (default 1s).
	BaseDelay time.Duration
	// Sleep waits between attempts; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter is added to computed backoff; defaults to [0, BaseDelay).
	Jitter func() time.Duration
}

// Issue validates req and creates the invitation.
func (s *TicketIssuer) Issue(ctx context.Context, req TicketRequest) (TicketResult, error) {
	log := slogx.FromContext(ctx)

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return TicketResult{}, fmt.Errorf("%w: email is required", ErrInvalidTicketRequest)
	}
	releaseIDs, err := req.Validate()
	if err != nil {
		return TicketResult{}, err
	}

	params := tito.CreateInvitationParams{
		ListID:       req.ListID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		ReleaseIDs:   releaseIDs,
		DiscountCode: req.DiscountCode,
	}

	inv, err := s.create(ctx, params)
	if err == nil && inv.URL == "" {
		err = ErrTicketMissingURL
	}
	switch {
	case err == nil:
		s.Metrics.ticket("created")
		return TicketResult{URL: inv.URL}, nil
	case extapi.IsConflict(err):
		log.Info("duplicate ticket, recovering", slog.String("email", email), slog.Any("error", err))
		res, err := s.recoverDuplicate(ctx, params)
		if err != nil {
			s.Metrics.ticket("failed")
			return TicketResult{}, err
		}
		return res, nil
	default:
		s.Metrics.ticket("failed")
		return TicketResult{}, err
	}
}

// create calls the platform, backing off on rate limits.
func (s *TicketIssuer) create(ctx context.Context, p tito.CreateInvitationParams) (tito.Invitation, error) {
	log := slogx.FromContext(ctx)
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = defaultTicketAttempts
	}

	for attempt := 0; ; attempt++ {
		inv, err := s.Client.CreateInvitation(ctx, p)
		if err == nil || !extapi.IsRateLimited(err) {
			return inv, err
		}
		if attempt+1 >= attempts {
			return tito.Invitation{}, fmt.Errorf("%w after %d attempts: %w", ErrTicketRateLimited, attempts, err)
		}

		delay := s.backoff(attempt, err)
		log.Warn("ticket creation rate limited",
			slog.String("email", p.Email),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)
		if err := s.sleep(ctx, delay); err != nil {
			return tito.Invitation{}, err
		}
	}
}

// backoff honours a server hint, else BaseDelay * 2^attempt plus jitter.
func (s *TicketIssuer) backoff(attempt int, err error) time.Duration {
	if d, ok := extapi.RetryAfterOf(err); ok {
		return d
	}

	base := s.BaseDelay
	if base <= 0 {
		base = defaultTicketBackoff
	}
	delay := base << attempt

	if s.Jitter != nil {
		return delay + s.Jitter()
	}
	return delay + rand.N(base)
}

func (s *TicketIssuer) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recoverDuplicate reuses the existing invitation when it can be found, and
// otherwise deletes the conflicting record and creates once more.
func (s *TicketIssuer) recoverDuplicate(ctx context.Context, p tito.CreateInvitationParams) (TicketResult, error) {
	log := slogx.FromContext(ctx)

	existing, err := s.Client.GetInvitationByEmail(ctx, p.ListID, p.Email)
	if err == nil && existing.URL != "" {
		s.Metrics.ticket("reused")
		return TicketResult{URL: existing.URL, Reused: true, Note: NoteReusedInvitation}, nil
	}
	log.Warn("existing invitation not found, deleting by email",
		slog.String("email", p.Email),
		slog.Any("lookup_error", err),
	)

	if _, err := s.Client.DeleteInvitationByEmail(ctx, p.ListID, p.Email); err != nil {
		return TicketResult{}, fmt.Errorf("%w: delete: %w", ErrDuplicateRecoveryFailed, err)
	}

	inv, err := s.create(ctx, p)
	if err != nil {
		return TicketResult{}, fmt.Errorf("%w: recreate: %w", ErrDuplicateRecoveryFailed, err)
	}
	if inv.URL == "" {
		return TicketResult{}, fmt.Errorf("%w: recreate: %w", ErrDuplicateRecoveryFailed, ErrTicketMissingURL)
	}
	s.Metrics.ticket("recreated")
	return TicketResult{URL: inv.URL, Recreated: true, Note: NoteRecreatedInvitation}, nil
}
