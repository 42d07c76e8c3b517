package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach_backend/internal/accounts"
	"outreach_backend/internal/campaign/domain"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/settings"
	"outreach_backend/internal/templates"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

type fakeStore struct {
	campaign  domain.Campaign
	lead      *domain.Lead
	remaining int64

	replyWon bool // ApplySendSuccess reports the reply race lost

	resets    []string
	statuses  []domain.CampaignStatus
	successes []int64
	failures  []string
	logs      []string
}

func (s *fakeStore) GetCampaign(ctx context.Context) (*domain.Campaign, error) {
	c := s.campaign
	return &c, nil
}

func (s *fakeStore) SetCampaignStatus(ctx context.Context, status domain.CampaignStatus) error {
	s.statuses = append(s.statuses, status)
	s.campaign.Status = status
	return nil
}

func (s *fakeStore) ResetDailyCounters(ctx context.Context, date string) error {
	s.resets = append(s.resets, date)
	s.campaign.SentToday = 0
	s.campaign.LastResetDate = date
	return nil
}

func (s *fakeStore) NextLead(ctx context.Context, now time.Time) (*domain.Lead, error) {
	return s.lead, nil
}

func (s *fakeStore) SendableRemaining(ctx context.Context) (int64, error) {
	return s.remaining, nil
}

func (s *fakeStore) ApplySendSuccess(ctx context.Context, leadID, accountID int64, now time.Time, stage domain.Stage) (bool, error) {
	if s.replyWon {
		return false, nil
	}
	s.successes = append(s.successes, leadID)
	return true, nil
}

func (s *fakeStore) ApplySendFailure(ctx context.Context, leadID int64, reason string) error {
	s.failures = append(s.failures, reason)
	return nil
}

func (s *fakeStore) AppendLog(ctx context.Context, email, event string) error {
	s.logs = append(s.logs, event)
	return nil
}

type fakePicker struct {
	account *accounts.Account
	err     error
}

func (p *fakePicker) NextSender(ctx context.Context) (*accounts.Account, error) {
	return p.account, p.err
}

type fakeSettings struct {
	snap settings.Snapshot
}

func (f *fakeSettings) Snapshot(ctx context.Context) settings.Snapshot { return f.snap }

type fakeTransport struct {
	sendErr error
	sent    []mailer.Message
}

func (t *fakeTransport) Send(ctx context.Context, account mailer.Account, msg mailer.Message) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *fakeTransport) FetchSince(ctx context.Context, account mailer.Account, since time.Time) ([]mailer.RawMessage, error) {
	return nil, nil
}

func (t *fakeTransport) ProbeSMTP(ctx context.Context, account mailer.Account) error { return nil }
func (t *fakeTransport) ProbeIMAP(ctx context.Context, account mailer.Account) error { return nil }

// noOverrides satisfies templates.Repository with an always-empty override
// table, so resolution lands on the built-in templates.
type noOverrides struct{}

func (noOverrides) Get(ctx context.Context, stage domain.Stage) (*templates.CustomTemplate, error) {
	return nil, apperr.NotFound("no override")
}
func (noOverrides) List(ctx context.Context) ([]templates.CustomTemplate, error) { return nil, nil }
func (noOverrides) Upsert(ctx context.Context, tpl templates.CustomTemplate) error {
	return nil
}
func (noOverrides) Delete(ctx context.Context, stage domain.Stage) error { return nil }

type engineFixture struct {
	engine    *Engine
	store     *fakeStore
	picker    *fakePicker
	transport *fakeTransport
	source    *fakeSettings
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	log := logger.New("production")
	store := &fakeStore{
		campaign: domain.Campaign{
			ID:            domain.CampaignID,
			Status:        domain.CampaignRunning,
			LastResetDate: time.Now().Format(domain.ResetDateFormat),
		},
	}
	picker := &fakePicker{account: &accounts.Account{ID: 7, Email: "sender@example.com", IsActive: true}}
	transport := &fakeTransport{}
	source := &fakeSettings{snap: settings.Defaults()}

	engine := NewEngine(
		store,
		picker,
		templates.NewResolver(noOverrides{}),
		transport,
		source,
		fixedPacer(0),
		events.NewInMemoryBus(log),
		log,
	)
	return &engineFixture{engine: engine, store: store, picker: picker, transport: transport, source: source}
}

func TestTickSkipsWhenNotRunning(t *testing.T) {
	f := newEngineFixture(t)
	f.store.campaign.Status = domain.CampaignStopped

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionSkipped || out.Reason != "campaign not running" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(f.transport.sent) != 0 {
		t.Fatal("no email may be sent while the campaign is stopped")
	}
}

func TestTickEnforcesDailyLimit(t *testing.T) {
	f := newEngineFixture(t)
	f.source.snap.DailyEmailLimit = 3
	f.store.campaign.SentToday = 3
	f.store.lead = &domain.Lead{ID: 1, Email: "lead@example.com", Status: domain.LeadPending}

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionSkipped || out.Reason != "daily limit reached" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(f.transport.sent) != 0 {
		t.Fatal("no email may be sent at the daily limit")
	}
}

func TestTickSendsPendingLead(t *testing.T) {
	f := newEngineFixture(t)
	f.store.lead = &domain.Lead{
		ID:     42,
		Email:  "lead@example.com",
		Status: domain.LeadPending,
		Data:   map[string]string{"first_name": "Ada", "industry": "fintech"},
	}

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionSent {
		t.Fatalf("action = %q, want sent", out.Action)
	}
	if out.Stage != domain.StageInitial {
		t.Fatalf("stage = %q, want initial for a pending lead", out.Stage)
	}
	if out.AccountID != 7 {
		t.Fatalf("account = %d, want the picked account", out.AccountID)
	}
	if len(f.transport.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(f.transport.sent))
	}
	if f.transport.sent[0].To != "lead@example.com" {
		t.Fatalf("sent to %q", f.transport.sent[0].To)
	}
	if len(f.store.successes) != 1 || f.store.successes[0] != 42 {
		t.Fatalf("success bookkeeping %v, want [42]", f.store.successes)
	}
}

func TestTickFollowupStage(t *testing.T) {
	f := newEngineFixture(t)
	sent := time.Now().Add(-4 * 24 * time.Hour)
	f.store.lead = &domain.Lead{
		ID:            9,
		Email:         "lead@example.com",
		Status:        domain.LeadSent,
		FollowupCount: 1,
		LastSentAt:    &sent,
	}

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Stage != domain.StageFollowup1 {
		t.Fatalf("stage = %q, want followup_1", out.Stage)
	}
}

func TestTickSendFailureMarksLead(t *testing.T) {
	f := newEngineFixture(t)
	f.store.lead = &domain.Lead{ID: 5, Email: "lead@example.com", Status: domain.LeadPending}
	f.transport.sendErr = errors.New("smtp: connection refused")

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionFailed {
		t.Fatalf("action = %q, want failed", out.Action)
	}
	if len(f.store.failures) != 1 || f.store.failures[0] != "smtp: connection refused" {
		t.Fatalf("failure bookkeeping %v", f.store.failures)
	}
	if len(f.store.successes) != 0 {
		t.Fatal("send success must not be recorded on failure")
	}
}

func TestTickReplyWinsRace(t *testing.T) {
	f := newEngineFixture(t)
	f.store.lead = &domain.Lead{ID: 6, Email: "lead@example.com", Status: domain.LeadPending}
	f.store.replyWon = true

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionSkipped || out.Reason != "lead replied during send" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(f.store.successes) != 0 {
		t.Fatal("send bookkeeping must be suppressed when the reply won")
	}
}

func TestTickPauseCadenceFollowsSessionSends(t *testing.T) {
	f := newEngineFixture(t)
	f.source.snap.MinDelaySeconds = 60
	f.source.snap.MaxDelaySeconds = 120
	f.source.snap.PauseEveryNEmails = 2
	f.source.snap.PauseMinMinutes = 5
	f.source.snap.PauseMaxMinutes = 8
	f.store.lead = &domain.Lead{ID: 1, Email: "lead@example.com", Status: domain.LeadPending}
	// A daily counter that would pause immediately if the cadence were
	// keyed per account instead of per session.
	f.picker.account.SentToday = 1

	first, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if first.Paused != 60*time.Second {
		t.Fatalf("first send paused %v, want the short delay only", first.Paused)
	}

	second, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if second.Paused != 5*time.Minute+60*time.Second {
		t.Fatalf("second send paused %v, want short delay plus long pause", second.Paused)
	}
}

func TestTickCompletesCampaign(t *testing.T) {
	f := newEngineFixture(t)
	f.store.lead = nil
	f.store.remaining = 0

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionCompleted {
		t.Fatalf("action = %q, want completed", out.Action)
	}
	if f.store.campaign.Status != domain.CampaignCompleted {
		t.Fatalf("campaign status = %q, want COMPLETED", f.store.campaign.Status)
	}
}

func TestTickIdleWhenLeadsNotDue(t *testing.T) {
	f := newEngineFixture(t)
	f.store.lead = nil
	f.store.remaining = 4

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionIdle {
		t.Fatalf("action = %q, want idle", out.Action)
	}
	if f.store.campaign.Status != domain.CampaignRunning {
		t.Fatal("campaign must stay RUNNING while follow-ups are pending")
	}
}

func TestTickHealsStaleDailyReset(t *testing.T) {
	f := newEngineFixture(t)
	f.store.campaign.LastResetDate = "2026-08-01"
	f.store.campaign.SentToday = 500
	f.store.lead = &domain.Lead{ID: 3, Email: "lead@example.com", Status: domain.LeadPending}

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}

	today := time.Now().Format(domain.ResetDateFormat)
	if len(f.store.resets) != 1 || f.store.resets[0] != today {
		t.Fatalf("resets = %v, want [%s]", f.store.resets, today)
	}
	// The quota was freed by the reset, so the send proceeds.
	if out.Action != ActionSent {
		t.Fatalf("action = %q, want sent after self-heal", out.Action)
	}
}

func TestTickNoActiveAccounts(t *testing.T) {
	f := newEngineFixture(t)
	f.store.lead = &domain.Lead{ID: 2, Email: "lead@example.com", Status: domain.LeadPending}
	f.picker.account = nil
	f.picker.err = apperr.Conflict("no active email accounts configured")

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionSkipped || out.Reason != "no active email accounts" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestTickNoAccountsDoesNotComplete(t *testing.T) {
	// Account availability is checked before the backlog: an empty backlog
	// with no accounts skips, it must not mark the campaign COMPLETED.
	f := newEngineFixture(t)
	f.store.lead = nil
	f.store.remaining = 0
	f.picker.account = nil
	f.picker.err = apperr.Conflict("no active email accounts configured")

	out, err := f.engine.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if out.Action != ActionSkipped || out.Reason != "no active email accounts" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if f.store.campaign.Status != domain.CampaignRunning {
		t.Fatalf("campaign status = %q, want RUNNING", f.store.campaign.Status)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	f.store.campaign.Status = domain.CampaignStopped
	if err := f.engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.engine.Start(ctx); err == nil {
		t.Fatal("starting a running campaign must conflict")
	}
	if err := f.engine.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := f.engine.Pause(ctx); err == nil {
		t.Fatal("pausing a paused campaign must conflict")
	}
	if err := f.engine.Stop(ctx); err != nil {
		t.Fatalf("Stop from paused: %v", err)
	}
	if err := f.engine.Stop(ctx); err == nil {
		t.Fatal("stopping a stopped campaign must conflict")
	}
}
