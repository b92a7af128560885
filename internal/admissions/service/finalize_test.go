package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/stretchr/testify/require"
)

var testParams = TicketParams{ListID: "rl_2026", ReleaseIDs: "101,102", DiscountCode: "HACKER"}

func newFinalizeFixture(t *testing.T) (*notifyFixture, *Finalizer) {
	t.Helper()

	f := newNotifyFixture(t, 500, 1)
	issuer := &TicketIssuer{
		Client: f.tickets,
		Sleep:  func(context.Context, time.Duration) error { return nil },
	}
	fin := &Finalizer{
		Store:    f.store,
		Inviter:  &BulkInviter{Issuer: issuer},
		Notifier: f.proc,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return f, fin
}

func TestFinalizeEndToEnd(t *testing.T) {
	t.Parallel()

	f, fin := newFinalizeFixture(t)
	ctx := t.Context()
	ada := seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyAccepted)
	wait := seedApplicant(t, f.store, "wait@example.com", domain.StatusTentativelyWaitlisted)
	wl := seedApplicant(t, f.store, "wl@example.com", domain.StatusTentativelyWaitlistAccepted)
	rej := seedApplicant(t, f.store, "rej@example.com", domain.StatusTentativelyWaitlistRejected)

	report, err := fin.Finalize(ctx, testParams)
	require.NoError(t, err)
	require.True(t, report.Succeeded)
	require.Equal(t, 1, report.BatchNumber)
	require.Equal(t, 2, report.Tickets.Invited)
	require.Len(t, report.Categories, len(domain.Categories))
	for _, cr := range report.Categories {
		require.True(t, cr.OK, cr.Category)
		require.Equal(t, 1, cr.Transitioned, cr.Category)
	}

	n, err := f.store.BatchCounter().GetBatchNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	want := map[string]struct {
		status     domain.Status
		waitlisted bool
	}{
		ada.ID:  {domain.StatusAccepted, false},
		wait.ID: {domain.StatusWaitlisted, true},
		wl.ID:   {domain.StatusWaitlistAccepted, true},
		rej.ID:  {domain.StatusWaitlistRejected, true},
	}
	for id, w := range want {
		a, err := f.store.Applicants().GetApplicantByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, w.status, a.Status)
		require.Equal(t, w.waitlisted, a.WasWaitlisted)
		require.NotNil(t, a.BatchNumber)
		require.Equal(t, 1, *a.BatchNumber)
	}

	require.Equal(t, "https://ti.to/inv/ada@example.com", f.mailer.sent["ada@example.com"].MergeFields["TICKET_URL"])
	_, hasTicket := f.mailer.sent["wait@example.com"].MergeFields["TICKET_URL"]
	require.False(t, hasTicket)

	stored, err := f.store.Reports().GetReport(ctx, report.ID)
	require.NoError(t, err)
	require.Equal(t, report.BatchNumber, stored.BatchNumber)
	require.True(t, stored.Succeeded)

	// A second run finds nothing tentative and advances the counter again.
	again, err := fin.Finalize(ctx, testParams)
	require.NoError(t, err)
	require.True(t, again.Succeeded)
	require.Equal(t, 2, again.BatchNumber)
	require.Zero(t, again.Tickets.Attempted)
}

func TestFinalizeBlocksApplicantsMentionedInFailures(t *testing.T) {
	t.Parallel()

	f, fin := newFinalizeFixture(t)
	ctx := t.Context()
	ada := seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyWaitlisted)
	bob := seedApplicant(t, f.store, "bob@example.com", domain.StatusTentativelyWaitlisted)

	fin.Notifier = &mockNotifier{processFn: func(ctx context.Context, c domain.Category, src TicketSource) NotifyResult {
		if c != domain.CategoryWaitlists {
			return NotifyResult{Category: c, OK: true}
		}
		return NotifyResult{
			Category: c,
			OK:       true,
			IDs:      []string{ada.ID, bob.ID},
			Err:      errors.New("1 of 2 waitlists applicants not notified: Bob@Example.com: notification: timeout"),
		}
	}}

	report, err := fin.Finalize(ctx, testParams)
	require.NoError(t, err)
	require.False(t, report.Succeeded)

	var cr domain.CategoryReport
	for _, c := range report.Categories {
		if c.Category == domain.CategoryWaitlists {
			cr = c
		}
	}
	require.Equal(t, 1, cr.Transitioned)
	require.Equal(t, []string{"bob@example.com: mentioned in failure summary"}, cr.Blocked)

	a, err := f.store.Applicants().GetApplicantByID(ctx, ada.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitlisted, a.Status)

	b, err := f.store.Applicants().GetApplicantByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusTentativelyWaitlisted, b.Status)

	n, err := f.store.BatchCounter().GetBatchNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestFinalizeRequiresVerifiedTicket(t *testing.T) {
	t.Parallel()

	f, fin := newFinalizeFixture(t)
	ctx := t.Context()
	ada := seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyAccepted)

	fin.Inviter = &mockInviter{}
	fin.Notifier = &mockNotifier{processFn: func(ctx context.Context, c domain.Category, src TicketSource) NotifyResult {
		if c == domain.CategoryAcceptances {
			return NotifyResult{Category: c, OK: true, IDs: []string{ada.ID}}
		}
		return NotifyResult{Category: c, OK: true}
	}}

	report, err := fin.Finalize(ctx, testParams)
	require.NoError(t, err)
	require.False(t, report.Succeeded)
	require.Equal(t, []string{"ada@example.com: no verified ticket invitation"}, report.Categories[0].Blocked)

	a, err := f.store.Applicants().GetApplicantByID(ctx, ada.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusTentativelyAccepted, a.Status)
}

func TestFinalizeInvalidTicketParams(t *testing.T) {
	t.Parallel()

	f, fin := newFinalizeFixture(t)
	ctx := t.Context()
	seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyAccepted)
	wait := seedApplicant(t, f.store, "wait@example.com", domain.StatusTentativelyWaitlisted)

	report, err := fin.Finalize(ctx, TicketParams{ListID: "rl_2026", ReleaseIDs: "abc"})
	require.NoError(t, err)
	require.False(t, report.Succeeded)
	require.False(t, report.Tickets.OK)
	require.Zero(t, report.Tickets.Invited)
	require.NotEmpty(t, report.Tickets.Errors)
	require.Contains(t, report.Tickets.Errors[len(report.Tickets.Errors)-1], "ticket creation aborted")
	require.Zero(t, f.tickets.creates.Load())

	// Acceptances are skipped without tickets; waitlists still go out.
	require.Len(t, report.Categories[0].Skipped, 1)
	_, sentAda := f.mailer.sent["ada@example.com"]
	require.False(t, sentAda)

	w, err := f.store.Applicants().GetApplicantByID(ctx, wait.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusWaitlisted, w.Status)

	n, err := f.store.BatchCounter().GetBatchNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestFinalizeSingleRun(t *testing.T) {
	t.Parallel()

	f, fin := newFinalizeFixture(t)
	seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyAccepted)

	entered := make(chan struct{})
	release := make(chan struct{})
	fin.Inviter = &mockInviter{inviteFn: func(ctx context.Context, applicants []domain.Applicant, params TicketParams) (BulkInviteResult, error) {
		close(entered)
		<-release
		return BulkInviteResult{Invites: domain.InviteMap{}}, nil
	}}

	done := make(chan error, 1)
	go func() {
		_, err := fin.Finalize(t.Context(), testParams)
		done <- err
	}()

	<-entered
	_, err := fin.Finalize(t.Context(), testParams)
	require.ErrorIs(t, err, ErrFinalizationInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		summary string
		email   string
		want    bool
	}{
		{"exact", "ada@example.com: failed", "ada@example.com", true},
		{"inside sentence", "1 of 2 failed: ada@example.com: timeout", "ada@example.com", true},
		{"prefix of longer address", "ada@example.com.au: failed", "ada@example.com", false},
		{"suffix of longer address", "xada@example.com: failed", "ada@example.com", false},
		{"second occurrence matches", "xada@example.com; ada@example.com", "ada@example.com", true},
		{"empty summary", "", "ada@example.com", false},
		{"absent", "bob@example.com: failed", "ada@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, mentions(tt.summary, tt.email))
		})
	}
}
