package scheduler

import (
	"context"
	"time"

	"outreach_backend/internal/settings"
	"outreach_backend/platform/logger"
)

// reportHour is the local hour the daily report goes out, one hour after
// the counters reset.
const reportHour = 1

// SettingsSource resolves the current runtime settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) settings.Snapshot
}

// Dispatcher feeds the worker: it enqueues campaign ticks and reply checks
// at the operator-configured intervals and schedules the midnight reset and
// daily report. Interval changes take effect on the next beat because the
// settings snapshot is re-read every loop.
type Dispatcher struct {
	client   *Client
	settings SettingsSource
	log      *logger.Logger
}

func NewDispatcher(client *Client, source SettingsSource, log *logger.Logger) *Dispatcher {
	return &Dispatcher{client: client, settings: source, log: log}
}

// Run blocks until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	go d.tickLoop(ctx)
	go d.replyLoop(ctx)
	d.dailyLoop(ctx)
}

func (d *Dispatcher) tickLoop(ctx context.Context) {
	for {
		interval := d.settings.Snapshot(ctx).SchedulerTick()
		if !sleep(ctx, interval) {
			return
		}
		if err := d.client.EnqueueTick(ctx); err != nil {
			d.log.Warn("failed to enqueue campaign tick", "error", err)
		}
	}
}

func (d *Dispatcher) replyLoop(ctx context.Context) {
	for {
		interval := d.settings.Snapshot(ctx).ReplyTick()
		if !sleep(ctx, interval) {
			return
		}
		if err := d.client.EnqueueReplyCheck(ctx); err != nil {
			d.log.Warn("failed to enqueue reply check", "error", err)
		}
	}
}

// dailyLoop schedules the next midnight reset and the next report, then
// sleeps past them and repeats. Scheduling ahead of time keeps both jobs on
// the queue even if this process restarts across the boundary.
func (d *Dispatcher) dailyLoop(ctx context.Context) {
	for {
		now := time.Now()
		midnight := nextOccurrence(now, 0)
		reportAt := nextOccurrence(now, reportHour)

		date := midnight.Format("2006-01-02")
		if err := d.client.ScheduleDailyReset(ctx, date, midnight); err != nil {
			d.log.Warn("failed to schedule daily reset", "error", err)
		}
		if err := d.client.ScheduleDailyReport(ctx, "", reportAt); err != nil {
			d.log.Warn("failed to schedule daily report", "error", err)
		}

		wakeAt := midnight
		if reportAt.After(wakeAt) {
			wakeAt = reportAt
		}
		if !sleep(ctx, time.Until(wakeAt.Add(time.Minute))) {
			return
		}
	}
}

// nextOccurrence returns the next time the local clock reads hour:00.
func nextOccurrence(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
