// Package report builds and delivers the daily analytics email: today's
// send/reply/failure counts against the quota, overall campaign health, a
// seven-day trend, and the latest audit entries.
package report

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"time"

	"outreach_backend/internal/accounts"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/settings"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

//go:embed report.html
var reportHTML string

var reportTemplate = template.Must(template.New("daily_report").Parse(reportHTML))

// TodayStats covers the report day.
type TodayStats struct {
	Sent         int64   `json:"sent"`
	Replied      int64   `json:"replied"`
	Failed       int64   `json:"failed"`
	DailyLimit   int     `json:"daily_limit"`
	UsagePercent float64 `json:"usage_percent"`
}

// OverallStats covers the whole campaign.
type OverallStats struct {
	TotalLeads   int64   `json:"total_leads"`
	TotalSent    int64   `json:"total_sent"`
	TotalReplied int64   `json:"total_replied"`
	TotalFailed  int64   `json:"total_failed"`
	TotalPending int64   `json:"total_pending"`
	ReplyRate    float64 `json:"reply_rate"`
	FailureRate  float64 `json:"failure_rate"`
}

// DayTrend is one day of the trend table.
type DayTrend struct {
	Date    string `json:"date"`
	Sent    int64  `json:"sent"`
	Replied int64  `json:"replied"`
}

// Activity is one recent audit entry.
type Activity struct {
	Event     string `json:"event"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

// Report is the assembled daily report.
type Report struct {
	GeneratedAt    string     `json:"generated_at"`
	Date           string     `json:"date"`
	Today          TodayStats `json:"today"`
	Overall        OverallStats `json:"overall"`
	Last7Days      []DayTrend `json:"last_7_days"`
	RecentActivity []Activity `json:"recent_activity"`
	CampaignStatus string     `json:"campaign_status"`
}

// SettingsSource resolves the current runtime settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) settings.Snapshot
}

// AccountSource supplies the delivery mailbox.
type AccountSource interface {
	ListActive(ctx context.Context) ([]accounts.Account, error)
}

// Generator assembles and emails the daily report.
type Generator struct {
	repo     Repository
	accounts AccountSource
	sender   mailer.Transport
	settings SettingsSource
	logger   *logger.Logger

	now func() time.Time
}

func NewGenerator(repo Repository, source AccountSource, sender mailer.Transport, settingsSource SettingsSource, log *logger.Logger) *Generator {
	return &Generator{
		repo:     repo,
		accounts: source,
		sender:   sender,
		settings: settingsSource,
		logger:   log,
		now:      time.Now,
	}
}

// Generate assembles the report for today.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	now := g.now()
	today := now.Format("2006-01-02")

	todaySent, todayReplied, todayFailed, err := g.repo.TodayCounts(ctx, now)
	if err != nil {
		return nil, err
	}
	overall, err := g.repo.OverallCounts(ctx)
	if err != nil {
		return nil, err
	}
	status, err := g.repo.CampaignStatus(ctx)
	if err != nil {
		return nil, err
	}

	snap := g.settings.Snapshot(ctx)
	limit := snap.DailyEmailLimit
	if limit < 1 {
		limit = 1
	}

	if overall.TotalSent > 0 {
		overall.ReplyRate = round2(float64(overall.TotalReplied) / float64(overall.TotalSent) * 100)
	}
	if overall.TotalLeads > 0 {
		overall.FailureRate = round2(float64(overall.TotalFailed) / float64(overall.TotalLeads) * 100)
	}

	trend, err := g.repo.Trend(ctx, now.AddDate(0, 0, -6))
	if err != nil {
		return nil, err
	}
	days := make([]DayTrend, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		if t, ok := trend[date]; ok {
			days = append(days, t)
		} else {
			days = append(days, DayTrend{Date: date})
		}
	}

	activity, err := g.repo.RecentActivity(ctx, 10)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: now.Format(time.RFC3339),
		Date:        today,
		Today: TodayStats{
			Sent:         todaySent,
			Replied:      todayReplied,
			Failed:       todayFailed,
			DailyLimit:   snap.DailyEmailLimit,
			UsagePercent: round2(float64(todaySent) / float64(limit) * 100),
		},
		Overall:        *overall,
		Last7Days:      days,
		RecentActivity: activity,
		CampaignStatus: status,
	}, nil
}

// Render produces the HTML email body for a report.
func (g *Generator) Render(report *Report) (string, error) {
	var buf bytes.Buffer
	data := struct {
		*Report
		TopActivity []Activity
		FooterDate  string
	}{
		Report:      report,
		TopActivity: report.RecentActivity,
		FooterDate:  g.now().Format("January 2, 2006 at 15:04"),
	}
	if len(data.TopActivity) > 3 {
		data.TopActivity = data.TopActivity[:3]
	}
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering daily report: %w", err)
	}
	return buf.String(), nil
}

// SendDaily generates today's report and emails it. An empty recipient
// defaults to the first active account's own address.
func (g *Generator) SendDaily(ctx context.Context, to string) error {
	account, err := g.deliveryAccount(ctx)
	if err != nil {
		return err
	}
	if to == "" {
		to = account.Email
	}

	report, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	body, err := g.Render(report)
	if err != nil {
		return err
	}

	err = g.sender.Send(ctx, account.Mailbox(), mailer.Message{
		To:      to,
		Subject: "Daily Outreach Report - " + report.Date,
		Body:    body,
		HTML:    true,
	})
	if err != nil {
		return apperr.Transport("sending daily report", err)
	}

	g.logger.Info("daily report sent", "to", to, "date", report.Date)
	return nil
}

func (g *Generator) deliveryAccount(ctx context.Context) (*accounts.Account, error) {
	active, err := g.accounts.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, apperr.Conflict("no active email accounts to deliver the report")
	}
	return &active[0], nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
