package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testConfig struct {
	redisURL string
}

func (c testConfig) GetRedisURL() string       { return c.redisURL }
func (c testConfig) GetRedisTLSInsecure() bool { return false }
func (c testConfig) GetAsynqQueueName() string { return "outreach" }
func (c testConfig) GetAsynqConcurrency() int  { return 1 }

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := NewClient(testConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { inspector.Close() })
	return client, inspector
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testConfig{}); err == nil {
		t.Fatal("expected error for empty redis url")
	}
	if _, err := NewClient(testConfig{redisURL: "not a url"}); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}

func TestEnqueueTickDeduplicates(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()

	if err := client.EnqueueTick(ctx); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	// A second tick while one is pending must be silently absorbed.
	if err := client.EnqueueTick(ctx); err != nil {
		t.Fatalf("duplicate enqueue: %v", err)
	}

	pending, err := inspector.ListPendingTasks("outreach")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1", len(pending))
	}
	if pending[0].Type != TaskCampaignTick {
		t.Fatalf("task type = %q", pending[0].Type)
	}
}

func TestEnqueueReplyCheckIndependentOfTick(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()

	if err := client.EnqueueTick(ctx); err != nil {
		t.Fatalf("EnqueueTick: %v", err)
	}
	if err := client.EnqueueReplyCheck(ctx); err != nil {
		t.Fatalf("EnqueueReplyCheck: %v", err)
	}

	pending, err := inspector.ListPendingTasks("outreach")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending tasks = %d, want tick and reply check", len(pending))
	}
}

func TestScheduleDailyResetPerDayDedup(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()
	runAt := time.Now().Add(6 * time.Hour)

	if err := client.ScheduleDailyReset(ctx, "2026-08-30", runAt); err != nil {
		t.Fatalf("first schedule: %v", err)
	}
	if err := client.ScheduleDailyReset(ctx, "2026-08-30", runAt.Add(time.Minute)); err != nil {
		t.Fatalf("reschedule same day: %v", err)
	}
	if err := client.ScheduleDailyReset(ctx, "2026-08-31", runAt.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("schedule next day: %v", err)
	}

	scheduled, err := inspector.ListScheduledTasks("outreach")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(scheduled) != 2 {
		t.Fatalf("scheduled tasks = %d, want one per day", len(scheduled))
	}
}

func TestScheduleDailyReportCarriesRecipient(t *testing.T) {
	client, inspector := newTestClient(t)
	ctx := context.Background()

	runAt := time.Now().Add(time.Hour)
	if err := client.ScheduleDailyReport(ctx, "ops@agency.com", runAt); err != nil {
		t.Fatalf("ScheduleDailyReport: %v", err)
	}

	scheduled, err := inspector.ListScheduledTasks("outreach")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(scheduled))
	}
	payload, err := ParseDailyReportPayload(asynq.NewTask(scheduled[0].Type, scheduled[0].Payload))
	if err != nil {
		t.Fatalf("ParseDailyReportPayload: %v", err)
	}
	if payload.To != "ops@agency.com" {
		t.Fatalf("payload.To = %q", payload.To)
	}
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	got := nextOccurrence(now, 0)
	want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextOccurrence midnight = %v, want %v", got, want)
	}

	got = nextOccurrence(now, 11)
	want = time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextOccurrence later today = %v, want %v", got, want)
	}

	// Exactly on the hour rolls to tomorrow, never fires twice.
	exact := time.Date(2026, 8, 29, 11, 0, 0, 0, time.UTC)
	got = nextOccurrence(exact, 11)
	want = time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextOccurrence at the boundary = %v, want %v", got, want)
	}
}
