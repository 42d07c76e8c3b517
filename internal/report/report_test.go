package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/accounts"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/settings"
	"outreach_backend/platform/logger"
)

type fakeReportRepo struct {
	sent, replied, failed int64
	overall               OverallStats
	trend                 map[string]DayTrend
	activity              []Activity
	status                string
}

func (f *fakeReportRepo) TodayCounts(ctx context.Context, day time.Time) (int64, int64, int64, error) {
	return f.sent, f.replied, f.failed, nil
}

func (f *fakeReportRepo) OverallCounts(ctx context.Context) (*OverallStats, error) {
	overall := f.overall
	return &overall, nil
}

func (f *fakeReportRepo) Trend(ctx context.Context, from time.Time) (map[string]DayTrend, error) {
	return f.trend, nil
}

func (f *fakeReportRepo) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	return f.activity, nil
}

func (f *fakeReportRepo) CampaignStatus(ctx context.Context) (string, error) {
	return f.status, nil
}

type fakeAccountSource struct {
	accts []accounts.Account
}

func (f *fakeAccountSource) ListActive(ctx context.Context) ([]accounts.Account, error) {
	return f.accts, nil
}

type fakeSnapshot struct {
	limit int
}

func (f fakeSnapshot) Snapshot(ctx context.Context) settings.Snapshot {
	snap := settings.Defaults()
	if f.limit > 0 {
		snap.DailyEmailLimit = f.limit
	}
	return snap
}

type fakeSender struct {
	sendErr error
	sent    []mailer.Message
}

func (f *fakeSender) Send(ctx context.Context, account mailer.Account, msg mailer.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) FetchSince(ctx context.Context, account mailer.Account, since time.Time) ([]mailer.RawMessage, error) {
	return nil, nil
}

func (f *fakeSender) ProbeSMTP(ctx context.Context, account mailer.Account) error { return nil }
func (f *fakeSender) ProbeIMAP(ctx context.Context, account mailer.Account) error { return nil }

func newGenerator(repo Repository, source AccountSource, sender mailer.Transport, limit int) *Generator {
	g := NewGenerator(repo, source, sender, fakeSnapshot{limit: limit}, logger.New("production"))
	g.now = func() time.Time {
		return time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	}
	return g
}

func TestGenerateComputesRates(t *testing.T) {
	repo := &fakeReportRepo{
		sent: 40, replied: 4, failed: 2,
		overall: OverallStats{TotalLeads: 200, TotalSent: 120, TotalReplied: 30, TotalFailed: 10, TotalPending: 70},
		status:  "RUNNING",
	}
	g := newGenerator(repo, &fakeAccountSource{}, &fakeSender{}, 100)

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Date != "2026-08-29" {
		t.Errorf("Date = %q", report.Date)
	}
	if report.Today.UsagePercent != 40 {
		t.Errorf("UsagePercent = %v, want 40", report.Today.UsagePercent)
	}
	if report.Overall.ReplyRate != 25 {
		t.Errorf("ReplyRate = %v, want 25", report.Overall.ReplyRate)
	}
	if report.Overall.FailureRate != 5 {
		t.Errorf("FailureRate = %v, want 5", report.Overall.FailureRate)
	}
	if report.CampaignStatus != "RUNNING" {
		t.Errorf("CampaignStatus = %q", report.CampaignStatus)
	}
}

func TestGenerateFillsTrendGaps(t *testing.T) {
	repo := &fakeReportRepo{
		trend: map[string]DayTrend{
			"2026-08-27": {Date: "2026-08-27", Sent: 12, Replied: 3},
		},
		status: "RUNNING",
	}
	g := newGenerator(repo, &fakeAccountSource{}, &fakeSender{}, 100)

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(report.Last7Days) != 7 {
		t.Fatalf("Last7Days has %d entries, want 7", len(report.Last7Days))
	}
	if report.Last7Days[0].Date != "2026-08-23" || report.Last7Days[6].Date != "2026-08-29" {
		t.Fatalf("trend range %s..%s", report.Last7Days[0].Date, report.Last7Days[6].Date)
	}
	if report.Last7Days[4].Sent != 12 || report.Last7Days[4].Replied != 3 {
		t.Errorf("recorded day = %+v", report.Last7Days[4])
	}
	if report.Last7Days[0].Sent != 0 {
		t.Errorf("gap day must be zero, got %+v", report.Last7Days[0])
	}
}

func TestGenerateZeroDenominators(t *testing.T) {
	g := newGenerator(&fakeReportRepo{status: "STOPPED"}, &fakeAccountSource{}, &fakeSender{}, 0)

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Overall.ReplyRate != 0 || report.Overall.FailureRate != 0 {
		t.Errorf("rates must stay zero with no sends: %+v", report.Overall)
	}
}

func TestRenderContainsReportFigures(t *testing.T) {
	g := newGenerator(&fakeReportRepo{}, &fakeAccountSource{}, &fakeSender{}, 100)

	body, err := g.Render(&Report{
		Date:           "2026-08-29",
		Today:          TodayStats{Sent: 41, Replied: 7, Failed: 2, DailyLimit: 100, UsagePercent: 41},
		Overall:        OverallStats{TotalLeads: 300, ReplyRate: 12.5},
		CampaignStatus: "RUNNING",
		Last7Days:      []DayTrend{{Date: "2026-08-29", Sent: 41, Replied: 7}},
		RecentActivity: []Activity{
			{Event: "initial email sent", Email: "a@example.com", Timestamp: "09:00"},
			{Event: "reply received", Email: "b@example.com", Timestamp: "09:05"},
			{Event: "followup1 email sent", Email: "c@example.com", Timestamp: "09:10"},
			{Event: "followup1 email sent", Email: "d@example.com", Timestamp: "09:15"},
		},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"2026-08-29", "41", "RUNNING", "12.5"} {
		if !strings.Contains(body, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
	// Activity is capped at the top three entries.
	if strings.Contains(body, "d@example.com") {
		t.Error("rendered report must cap recent activity at three entries")
	}
}

func TestSendDailyDefaultsRecipient(t *testing.T) {
	sender := &fakeSender{}
	source := &fakeAccountSource{accts: []accounts.Account{{ID: 1, Email: "first@agency.com", IsActive: true}}}
	g := newGenerator(&fakeReportRepo{status: "RUNNING"}, source, sender, 100)

	if err := g.SendDaily(context.Background(), ""); err != nil {
		t.Fatalf("SendDaily: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "first@agency.com" {
		t.Errorf("To = %q, want the first active account", msg.To)
	}
	if !msg.HTML {
		t.Error("daily report must be sent as HTML")
	}
	if msg.Subject != "Daily Outreach Report - 2026-08-29" {
		t.Errorf("Subject = %q", msg.Subject)
	}
}

func TestSendDailyNoActiveAccounts(t *testing.T) {
	g := newGenerator(&fakeReportRepo{}, &fakeAccountSource{}, &fakeSender{}, 100)
	if err := g.SendDaily(context.Background(), "ops@agency.com"); err == nil {
		t.Fatal("expected error with no active accounts")
	}
}

func TestSendDailyTransportError(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("smtp: 550 rejected")}
	source := &fakeAccountSource{accts: []accounts.Account{{ID: 1, Email: "first@agency.com", IsActive: true}}}
	g := newGenerator(&fakeReportRepo{status: "RUNNING"}, source, sender, 100)

	if err := g.SendDaily(context.Background(), "ops@agency.com"); err == nil {
		t.Fatal("expected transport error to surface")
	}
}
