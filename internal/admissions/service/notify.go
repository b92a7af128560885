package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
	"github.com/HackDavis/admissions-portal-sub000/pkg/mailchimp"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/tito"
)

// Mailer upserts a contact on the notification platform.
type Mailer interface {
	UpsertContact(ctx context.Context, audienceID string, c mailchimp.Contact) error
}

// MailerFactory builds a Mailer bound to one credential slot.
type MailerFactory func(creds mailchimp.Credentials) Mailer

// Provisioner creates an account invite on the community hub and returns its URL.
type Provisioner interface {
	Provision(ctx context.Context, email, name string) (string, error)
}

// InvitationLookup finds an existing ticket invitation.
type InvitationLookup interface {
	GetInvitationByEmail(ctx context.Context, listID, email string) (tito.Invitation, error)
}

// KeyReservation assigns credential slots ahead of a batch.
type KeyReservation interface {
	ReserveIndices(ctx context.Context, count int) ([]int, error)
}

type ticketMode int

const (
	ticketsLookup ticketMode = iota
	ticketsFromMap
)

// TicketSource says where a ticket-requiring category gets its verified
// invitations. The zero value looks them up on the processor's default list.
type TicketSource struct {
	mode    ticketMode
	invites domain.InviteMap
	listID  string
}

// TicketsFromMap uses an invite map built earlier in the run.
func TicketsFromMap(m domain.InviteMap) TicketSource {
	if m == nil {
		m = domain.InviteMap{}
	}
	return TicketSource{mode: ticketsFromMap, invites: m}
}

// TicketsFromLookup fetches each applicant's invitation from listID.
func TicketsFromLookup(listID string) TicketSource {
	return TicketSource{mode: ticketsLookup, listID: listID}
}

// OutcomeKind classifies one applicant's notification result.
type OutcomeKind string

const (
	OutcomeSent    OutcomeKind = "sent"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// NotifyOutcome is one applicant's notification result.
type NotifyOutcome struct {
	Applicant domain.Applicant
	Kind      OutcomeKind
	Reason    string
	TicketURL string
	HubURL    string
}

// NotifyResult is a category's notification pass. OK is false only when the
// whole category failed; Err summarizes per-applicant skips and failures.
type NotifyResult struct {
	Category domain.Category
	OK       bool
	IDs      []string
	Outcomes []NotifyOutcome
	Err      error
}

func (r NotifyResult) entries(kind OutcomeKind) []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			out = append(out, o.Applicant.NormalizedEmail()+": "+o.Reason)
		}
	}
	return out
}

func (r NotifyResult) Failures() []string { return r.entries(OutcomeFailed) }
func (r NotifyResult) Skipped() []string  { return r.entries(OutcomeSkipped) }

// NotificationProcessor sends one category's decision notifications.
type NotificationProcessor struct {
	Store       store.Store
	Keys        KeyReservation
	Credentials CredentialSource
	NewMailer   MailerFactory
	// Provisioner is called for ticket-requiring categories; nil disables it.
	Provisioner   Provisioner
	Tickets       InvitationLookup
	DefaultListID string
	WindowSize    int // default NotifyWindowSize
	Metrics       *Metrics
}

func fatal(category domain.Category, err error) NotifyResult {
	return NotifyResult{Category: category, OK: false, Err: err}
}

// Process notifies every applicant in category. Applicants of ticket
// categories without a verified invitation are skipped before provisioning
// or notification.
func (p *NotificationProcessor) Process(ctx context.Context, category domain.Category, src TicketSource) NotifyResult {
	log := slogx.FromContext(ctx).With(slog.String("category", category.String()))

	if !category.IsValid() {
		return fatal(category, fmt.Errorf("%w: %q", ErrUnknownCategory, category))
	}

	applicants, err := p.Store.Applicants().ListApplicantsByStatus(ctx, category.SourceStatus())
	if err != nil {
		log.Error("failed to list applicants", slog.Any("error", err))
		return fatal(category, fmt.Errorf("list %s applicants: %w", category, err))
	}
	if len(applicants) == 0 {
		return NotifyResult{Category: category, OK: true}
	}

	size := p.WindowSize
	if size <= 0 {
		size = NotifyWindowSize
	}

	outcomes := make([]NotifyOutcome, len(applicants))
	for i, a := range applicants {
		outcomes[i] = NotifyOutcome{Applicant: a}
	}

	if category.RequiresTicket() {
		if err := p.resolveTickets(ctx, src, outcomes, size); err != nil {
			log.Error("ticket source unavailable", slog.Any("error", err))
			return fatal(category, err)
		}
	}

	var eligible []int
	for i := range outcomes {
		if outcomes[i].Kind == "" {
			eligible = append(eligible, i)
		}
	}

	if len(eligible) > 0 {
		slots, err := p.Keys.ReserveIndices(ctx, len(eligible))
		if err != nil {
			return fatal(category, err)
		}

		mailers, audiences, err := p.mailersFor(slots)
		if err != nil {
			log.Error("notification credentials unavailable", slog.Any("error", err))
			return fatal(category, err)
		}

		errs := forEachWindow(ctx, eligible, size, func(ctx context.Context, j int, i int) error {
			slot := slots[j]
			return p.notifyOne(ctx, category, &outcomes[i], mailers[slot], audiences[slot])
		})
		for j, i := range eligible {
			if errs[j] != nil {
				outcomes[i].Kind = OutcomeFailed
				outcomes[i].Reason = errs[j].Error()
				log.Warn("notification failed",
					slog.String("email", outcomes[i].Applicant.NormalizedEmail()),
					slog.Any("error", errs[j]),
				)
			} else {
				outcomes[i].Kind = OutcomeSent
			}
		}
	}

	return p.summarize(ctx, category, outcomes)
}

// resolveTickets marks applicants without a verified invitation as skipped
// and records the ticket URL on the rest.
func (p *NotificationProcessor) resolveTickets(ctx context.Context, src TicketSource, outcomes []NotifyOutcome, size int) error {
	if src.mode == ticketsFromMap {
		for i := range outcomes {
			url, ok := src.invites.URL(outcomes[i].Applicant.Email)
			if !ok {
				outcomes[i].Kind = OutcomeSkipped
				outcomes[i].Reason = "Skipped: no verified ticket invitation"
				continue
			}
			outcomes[i].TicketURL = url
		}
		return nil
	}

	listID := src.listID
	if listID == "" {
		listID = p.DefaultListID
	}
	if listID == "" || p.Tickets == nil {
		return ErrTicketSourceRequired
	}

	errs := forEachWindow(ctx, outcomes, size, func(ctx context.Context, i int, o NotifyOutcome) error {
		inv, err := p.Tickets.GetInvitationByEmail(ctx, listID, o.Applicant.Email)
		if err != nil {
			return err
		}
		if inv.URL == "" {
			return errors.New("invitation has no url")
		}
		outcomes[i].TicketURL = inv.URL
		return nil
	})
	for i, err := range errs {
		if err == nil {
			continue
		}
		outcomes[i].Kind = OutcomeSkipped
		if extapi.IsNotFound(err) {
			outcomes[i].Reason = "Skipped: no ticket invitation found"
		} else {
			outcomes[i].Reason = "Skipped: ticket lookup failed: " + err.Error()
		}
	}
	return nil
}

// mailersFor builds one Mailer per distinct slot.
func (p *NotificationProcessor) mailersFor(slots []int) (map[int]Mailer, map[int]string, error) {
	mailers := map[int]Mailer{}
	audiences := map[int]string{}
	for _, slot := range slots {
		if _, ok := mailers[slot]; ok {
			continue
		}
		creds, err := p.Credentials.Credentials(slot)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: slot %d: %w", ErrMissingEnvironment, slot, err)
		}
		mailers[slot] = p.NewMailer(creds)
		audiences[slot] = creds.AudienceID
	}
	return mailers, audiences, nil
}

func (p *NotificationProcessor) notifyOne(ctx context.Context, category domain.Category, o *NotifyOutcome, m Mailer, audienceID string) error {
	a := o.Applicant

	if category.RequiresTicket() && p.Provisioner != nil {
		hubURL, err := p.Provisioner.Provision(ctx, a.NormalizedEmail(), a.FullName())
		if err != nil {
			return fmt.Errorf("provisioning: %w", err)
		}
		o.HubURL = hubURL
	}

	fields := map[string]string{
		"FNAME": a.FirstName,
		"LNAME": a.LastName,
	}
	if o.TicketURL != "" {
		fields["TICKET_URL"] = o.TicketURL
	}
	if o.HubURL != "" {
		fields["HUB_URL"] = o.HubURL
	}

	err := m.UpsertContact(ctx, audienceID, mailchimp.Contact{
		Email:       a.NormalizedEmail(),
		MergeFields: fields,
		Tag:         category.Tag(),
	})
	if err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	return nil
}

func (p *NotificationProcessor) summarize(ctx context.Context, category domain.Category, outcomes []NotifyOutcome) NotifyResult {
	res := NotifyResult{Category: category, OK: true, Outcomes: outcomes}

	var details []string
	for _, o := range outcomes {
		p.Metrics.notification(category.String(), string(o.Kind))
		switch o.Kind {
		case OutcomeSent:
			res.IDs = append(res.IDs, o.Applicant.ID)
		case OutcomeSkipped:
			details = append(details, o.Reason+" ("+o.Applicant.NormalizedEmail()+")")
		case OutcomeFailed:
			details = append(details, o.Applicant.NormalizedEmail()+": "+o.Reason)
		}
	}

	if len(details) > 0 {
		res.Err = fmt.Errorf("%d of %d %s applicants not notified: %s",
			len(details), len(outcomes), category, strings.Join(details, "; "))
	}

	slogx.FromContext(ctx).Info("category notified",
		slog.String("category", category.String()),
		slog.Int("sent", len(res.IDs)),
		slog.Int("not_sent", len(details)),
	)
	return res
}
