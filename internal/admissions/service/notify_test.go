package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
	"github.com/HackDavis/admissions-portal-sub000/pkg/tito"
	"github.com/stretchr/testify/require"
)

type notifyFixture struct {
	store       store.Store
	mailer      *recordingMailer
	provisioner *mockProvisioner
	tickets     *mockTicketClient
	proc        *NotificationProcessor
}

func newNotifyFixture(t *testing.T, maxCalls, maxSlots int) *notifyFixture {
	t.Helper()

	s := newTestStore(t)
	require.NoError(t, s.KeySlots().SetLimits(t.Context(), maxCalls, maxSlots))

	creds := staticCredentials{slots: maxSlots}
	f := &notifyFixture{
		store:       s,
		mailer:      newRecordingMailer(),
		provisioner: &mockProvisioner{},
		tickets:     &mockTicketClient{},
	}
	f.proc = &NotificationProcessor{
		Store:         s,
		Keys:          &KeyReserver{Store: s, Credentials: creds},
		Credentials:   creds,
		NewMailer:     f.mailer.factory,
		Provisioner:   f.provisioner,
		Tickets:       f.tickets,
		DefaultListID: "rl_default",
	}
	return f
}

func TestProcessNonTicketCategory(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	for i := range 25 {
		seedApplicant(t, f.store, fmt.Sprintf("wait%02d@example.com", i), domain.StatusTentativelyWaitlisted)
	}
	seedApplicant(t, f.store, "other@example.com", domain.StatusTentativelyAccepted)

	res := f.proc.Process(t.Context(), domain.CategoryWaitlists, TicketSource{})
	require.True(t, res.OK)
	require.NoError(t, res.Err)
	require.Len(t, res.IDs, 25)

	require.Len(t, f.mailer.sent, 25)
	require.LessOrEqual(t, f.mailer.flight.peak.Load(), int32(NotifyWindowSize))
	require.EqualValues(t, 1, f.mailer.built.Load())
	require.Zero(t, f.provisioner.calls.Load())
	require.Zero(t, f.tickets.lookups.Load())
	require.Equal(t, "waitlists", f.mailer.sent["wait00@example.com"].Tag)

	c, err := f.store.KeySlots().GetKeySlotCounter(t.Context())
	require.NoError(t, err)
	require.Equal(t, 25, c.CallsMade)
}

func TestProcessSkipsApplicantsWithoutTicket(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	ada := seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyAccepted)
	seedApplicant(t, f.store, "bob@example.com", domain.StatusTentativelyAccepted)

	invites := domain.InviteMap{"ada@example.com": "https://ti.to/inv/ada"}
	res := f.proc.Process(t.Context(), domain.CategoryAcceptances, TicketsFromMap(invites))

	require.True(t, res.OK)
	require.Equal(t, []string{ada.ID}, res.IDs)
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "Skipped:")
	require.Contains(t, res.Err.Error(), "bob@example.com")
	require.Len(t, res.Skipped(), 1)
	require.Empty(t, res.Failures())

	require.EqualValues(t, 1, f.provisioner.calls.Load())
	_, sentBob := f.mailer.sent["bob@example.com"]
	require.False(t, sentBob)

	contact := f.mailer.sent["ada@example.com"]
	require.Equal(t, "https://ti.to/inv/ada", contact.MergeFields["TICKET_URL"])
	require.Equal(t, "https://hub.hackdavis.io/invite/ada@example.com", contact.MergeFields["HUB_URL"])
	require.Equal(t, "acceptances", contact.Tag)

	// Only the eligible applicant consumed a call.
	c, err := f.store.KeySlots().GetKeySlotCounter(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, c.CallsMade)
}

func TestProcessLookupTickets(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyWaitlistAccepted)
	seedApplicant(t, f.store, "bob@example.com", domain.StatusTentativelyWaitlistAccepted)
	f.tickets.getFn = func(ctx context.Context, listID, email string) (tito.Invitation, error) {
		require.Equal(t, "rl_default", listID)
		if email == "ada@example.com" {
			return tito.Invitation{Email: email, URL: "https://ti.to/inv/ada"}, nil
		}
		return tito.Invitation{}, &extapi.Error{Kind: extapi.KindNotFound}
	}

	res := f.proc.Process(t.Context(), domain.CategoryWaitlistAcceptances, TicketSource{})
	require.True(t, res.OK)
	require.Len(t, res.IDs, 1)
	require.EqualValues(t, 2, f.tickets.lookups.Load())
	require.Equal(t, []string{"bob@example.com: Skipped: no ticket invitation found"}, res.Skipped())
}

func TestProcessLookupRequiresListID(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	f.proc.DefaultListID = ""
	seedApplicant(t, f.store, "ada@example.com", domain.StatusTentativelyAccepted)

	res := f.proc.Process(t.Context(), domain.CategoryAcceptances, TicketsFromLookup(""))
	require.False(t, res.OK)
	require.ErrorIs(t, res.Err, ErrTicketSourceRequired)
	require.Empty(t, f.mailer.sent)
}

func TestProcessKeysExhaustedIsFatal(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 3, 1)
	for i := range 3 {
		seedApplicant(t, f.store, fmt.Sprintf("w%d@example.com", i), domain.StatusTentativelyWaitlistRejected)
	}

	res := f.proc.Process(t.Context(), domain.CategoryWaitlistRejections, TicketSource{})
	require.False(t, res.OK)
	require.ErrorIs(t, res.Err, ErrKeysExhausted)
	require.Empty(t, f.mailer.sent)
}

func TestProcessMissingCredentialsConsumesNoQuota(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 2)
	creds := staticCredentials{slots: 2, missing: map[int]bool{1: true}}
	f.proc.Keys = &KeyReserver{Store: f.store, Credentials: creds}
	f.proc.Credentials = creds
	for i := range 3 {
		seedApplicant(t, f.store, fmt.Sprintf("wait%d@example.com", i), domain.StatusTentativelyWaitlisted)
	}

	res := f.proc.Process(t.Context(), domain.CategoryWaitlists, TicketSource{})
	require.False(t, res.OK)
	require.ErrorIs(t, res.Err, ErrMissingEnvironment)
	require.Empty(t, f.mailer.sent)

	c, err := f.store.KeySlots().GetKeySlotCounter(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, c.SlotIndex)
	require.Zero(t, c.CallsMade)
}

func TestProcessPartialFailures(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	seedApplicant(t, f.store, "ok@example.com", domain.StatusTentativelyAccepted)
	seedApplicant(t, f.store, "mail@example.com", domain.StatusTentativelyAccepted)
	seedApplicant(t, f.store, "hub@example.com", domain.StatusTentativelyAccepted)

	f.mailer.failFor["mail@example.com"] = &extapi.Error{Platform: "mailchimp", Kind: extapi.KindValidation, Message: "fake email"}
	f.provisioner.provisionFn = func(ctx context.Context, email, name string) (string, error) {
		if email == "hub@example.com" {
			return "", errors.New("hub down")
		}
		return "https://hub/" + email, nil
	}

	invites := domain.InviteMap{
		"ok@example.com":   "https://ti.to/1",
		"mail@example.com": "https://ti.to/2",
		"hub@example.com":  "https://ti.to/3",
	}
	res := f.proc.Process(t.Context(), domain.CategoryAcceptances, TicketsFromMap(invites))

	require.True(t, res.OK)
	require.Len(t, res.IDs, 1)
	require.Len(t, res.Failures(), 2)
	require.ErrorContains(t, res.Err, "2 of 3 acceptances applicants not notified")
	require.ErrorContains(t, res.Err, "provisioning: hub down")
	require.ErrorContains(t, res.Err, "fake email")

	_, sentHub := f.mailer.sent["hub@example.com"]
	require.False(t, sentHub)
}

func TestProcessRotatesSlotClients(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 4, 2) // 3 calls per slot
	for i := range 5 {
		seedApplicant(t, f.store, fmt.Sprintf("w%d@example.com", i), domain.StatusTentativelyWaitlisted)
	}

	res := f.proc.Process(t.Context(), domain.CategoryWaitlists, TicketSource{})
	require.True(t, res.OK)
	require.Len(t, res.IDs, 5)
	require.EqualValues(t, 2, f.mailer.built.Load())

	audiences := map[string]int{}
	for _, aud := range f.mailer.audience {
		audiences[aud]++
	}
	require.Equal(t, map[string]int{"aud-1": 3, "aud-2": 2}, audiences)
}

func TestProcessEmptyCategory(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	res := f.proc.Process(t.Context(), domain.CategoryAcceptances, TicketsFromMap(nil))
	require.True(t, res.OK)
	require.NoError(t, res.Err)
	require.Empty(t, res.IDs)
}

func TestProcessUnknownCategory(t *testing.T) {
	t.Parallel()

	f := newNotifyFixture(t, 500, 1)
	res := f.proc.Process(t.Context(), domain.Category("rejections"), TicketSource{})
	require.False(t, res.OK)
	require.ErrorIs(t, res.Err, ErrUnknownCategory)
}
