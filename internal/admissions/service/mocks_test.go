package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store/drivers/sqlite"
	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
	"github.com/HackDavis/admissions-portal-sub000/pkg/idx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/mailchimp"
	"github.com/HackDavis/admissions-portal-sub000/pkg/tito"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedApplicant(t *testing.T, s store.Store, email string, status domain.Status) domain.Applicant {
	t.Helper()

	a := domain.Applicant{
		ID:        idx.New().String(),
		Email:     email,
		FirstName: "First",
		LastName:  "Last",
		Status:    status,
	}
	require.NoError(t, s.Applicants().CreateApplicant(t.Context(), a))
	return a
}

// countingStore wraps a real store and counts key slot writes made inside
// transactions.
type countingStore struct {
	store.Store
	writes *atomic.Int32
}

func (s countingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(countingTx{innerTx: tx, writes: s.writes})
	})
}

// innerTx keeps the promoted Tx(ctx) method reachable; embedding store.Tx
// directly would shadow it with a field of the same name.
type innerTx = store.Tx

var _ store.Tx = countingTx{}

type countingTx struct {
	innerTx
	writes *atomic.Int32
}

func (t countingTx) KeySlots() store.KeySlots {
	return countingKeySlots{KeySlots: t.innerTx.KeySlots(), writes: t.writes}
}

type countingKeySlots struct {
	store.KeySlots
	writes *atomic.Int32
}

func (k countingKeySlots) AddSlotIndex(ctx context.Context, delta int) error {
	k.writes.Add(1)
	return k.KeySlots.AddSlotIndex(ctx, delta)
}

func (k countingKeySlots) ResetCalls(ctx context.Context) error {
	k.writes.Add(1)
	return k.KeySlots.ResetCalls(ctx)
}

func (k countingKeySlots) SetCalls(ctx context.Context, calls int) error {
	k.writes.Add(1)
	return k.KeySlots.SetCalls(ctx, calls)
}

func (k countingKeySlots) IncrementCalls(ctx context.Context, n int) error {
	k.writes.Add(1)
	return k.KeySlots.IncrementCalls(ctx, n)
}

// staticCredentials configures slots 1..n.
type staticCredentials struct {
	slots   int
	missing map[int]bool
}

func (c staticCredentials) Credentials(slot int) (mailchimp.Credentials, error) {
	if slot < 1 || slot > c.slots || c.missing[slot] {
		return mailchimp.Credentials{}, fmt.Errorf("%w: MAILCHIMP_API_KEY_%d", mailchimp.ErrMissingCredentials, slot)
	}
	return mailchimp.Credentials{
		Slot:         slot,
		APIKey:       fmt.Sprintf("key-%d", slot),
		ServerPrefix: "us1",
		AudienceID:   fmt.Sprintf("aud-%d", slot),
	}, nil
}

// inflight tracks the peak number of concurrent calls.
type inflight struct {
	cur  atomic.Int32
	peak atomic.Int32
}

func (f *inflight) enter() func() {
	n := f.cur.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { f.cur.Add(-1) }
}

type mockTicketClient struct {
	createFn func(ctx context.Context, p tito.CreateInvitationParams) (tito.Invitation, error)
	getFn    func(ctx context.Context, listID, email string) (tito.Invitation, error)
	deleteFn func(ctx context.Context, listID, email string) (string, error)

	creates atomic.Int32
	lookups atomic.Int32
	deletes atomic.Int32
}

func (m *mockTicketClient) CreateInvitation(ctx context.Context, p tito.CreateInvitationParams) (tito.Invitation, error) {
	m.creates.Add(1)
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return tito.Invitation{Email: p.Email, URL: "https://ti.to/inv/" + p.Email}, nil
}

func (m *mockTicketClient) GetInvitationByEmail(ctx context.Context, listID, email string) (tito.Invitation, error) {
	m.lookups.Add(1)
	if m.getFn != nil {
		return m.getFn(ctx, listID, email)
	}
	return tito.Invitation{}, &extapi.Error{Platform: "tito", Kind: extapi.KindNotFound}
}

func (m *mockTicketClient) DeleteInvitationByEmail(ctx context.Context, listID, email string) (string, error) {
	m.deletes.Add(1)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, listID, email)
	}
	return "1", nil
}

type mockIssuer struct {
	issueFn func(ctx context.Context, req TicketRequest) (TicketResult, error)
	calls   atomic.Int32
	flight  inflight
}

func (m *mockIssuer) Issue(ctx context.Context, req TicketRequest) (TicketResult, error) {
	m.calls.Add(1)
	defer m.flight.enter()()
	if m.issueFn != nil {
		return m.issueFn(ctx, req)
	}
	time.Sleep(time.Millisecond)
	return TicketResult{URL: "https://ti.to/inv/" + domain.NormalizeEmail(req.Email)}, nil
}

// recordingMailer records every contact per slot.
type recordingMailer struct {
	mu       sync.Mutex
	sent     map[string]mailchimp.Contact // email -> contact
	audience map[string]string            // email -> audience
	failFor  map[string]error
	flight   inflight
	built    atomic.Int32
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		sent:     map[string]mailchimp.Contact{},
		audience: map[string]string{},
		failFor:  map[string]error{},
	}
}

func (r *recordingMailer) factory(creds mailchimp.Credentials) Mailer {
	r.built.Add(1)
	return slotMailer{r: r}
}

type slotMailer struct {
	r *recordingMailer
}

func (m slotMailer) UpsertContact(ctx context.Context, audienceID string, c mailchimp.Contact) error {
	defer m.r.flight.enter()()
	time.Sleep(time.Millisecond)

	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if err := m.r.failFor[c.Email]; err != nil {
		return err
	}
	m.r.sent[c.Email] = c
	m.r.audience[c.Email] = audienceID
	return nil
}

type mockProvisioner struct {
	provisionFn func(ctx context.Context, email, name string) (string, error)
	calls       atomic.Int32
}

func (m *mockProvisioner) Provision(ctx context.Context, email, name string) (string, error) {
	m.calls.Add(1)
	if m.provisionFn != nil {
		return m.provisionFn(ctx, email, name)
	}
	return "https://hub.hackdavis.io/invite/" + email, nil
}

type mockNotifier struct {
	processFn func(ctx context.Context, c domain.Category, src TicketSource) NotifyResult
}

func (m *mockNotifier) Process(ctx context.Context, c domain.Category, src TicketSource) NotifyResult {
	if m.processFn != nil {
		return m.processFn(ctx, c, src)
	}
	return NotifyResult{Category: c, OK: true}
}

type mockInviter struct {
	inviteFn func(ctx context.Context, applicants []domain.Applicant, params TicketParams) (BulkInviteResult, error)
}

func (m *mockInviter) InviteAll(ctx context.Context, applicants []domain.Applicant, params TicketParams) (BulkInviteResult, error) {
	if m.inviteFn != nil {
		return m.inviteFn(ctx, applicants, params)
	}
	return BulkInviteResult{Invites: domain.InviteMap{}}, nil
}
