package service

import (
	"context"
	"testing"
	"time"

	"outreach_backend/internal/settings"
)

func fixedPacer(pick int) *Pacer {
	return &Pacer{
		intn:  func(n int) int { return pick % n },
		sleep: func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func TestPacerPlanShortDelay(t *testing.T) {
	snap := settings.Defaults()
	snap.MinDelaySeconds = 60
	snap.MaxDelaySeconds = 120
	snap.PauseEveryNEmails = 20

	p := fixedPacer(0)
	if got := p.Plan(snap, 1); got != 60*time.Second {
		t.Fatalf("Plan at lower bound = %v, want 60s", got)
	}

	p = fixedPacer(60)
	if got := p.Plan(snap, 3); got != 120*time.Second {
		t.Fatalf("Plan at upper bound = %v, want 120s", got)
	}
}

func TestPacerPlanLongPause(t *testing.T) {
	snap := settings.Defaults()
	snap.PauseEveryNEmails = 20
	snap.PauseMinMinutes = 5
	snap.PauseMaxMinutes = 8

	// The long pause stacks on top of the short delay, it does not replace it.
	p := fixedPacer(2)
	if got := p.Plan(snap, 20); got != 7*time.Minute+62*time.Second {
		t.Fatalf("Plan on every-Nth send = %v, want 7m62s", got)
	}
	if got := p.Plan(snap, 40); got != 7*time.Minute+62*time.Second {
		t.Fatalf("Plan on multiple of N = %v, want 7m62s", got)
	}
	// One send past the pause boundary goes back to the short delay alone.
	if got := p.Plan(snap, 21); got != 62*time.Second {
		t.Fatalf("Plan past boundary = %v, want 62s", got)
	}
}

func TestPacerPlanPauseAddsToShortDelay(t *testing.T) {
	snap := settings.Defaults()
	snap.MinDelaySeconds = 5
	snap.MaxDelaySeconds = 5
	snap.PauseEveryNEmails = 2
	snap.PauseMinMinutes = 1
	snap.PauseMaxMinutes = 1

	p := fixedPacer(0)
	if got := p.Plan(snap, 2); got != time.Minute+5*time.Second {
		t.Fatalf("Plan on the pause send = %v, want 1m5s", got)
	}
}

func TestPacerPlanPauseDisabled(t *testing.T) {
	snap := settings.Defaults()
	snap.PauseEveryNEmails = 0

	p := fixedPacer(0)
	if got := p.Plan(snap, 20); got != time.Duration(snap.MinDelaySeconds)*time.Second {
		t.Fatalf("Plan with pausing disabled = %v, want the short delay floor", got)
	}
}

func TestPacerBetweenInvertedRange(t *testing.T) {
	p := fixedPacer(0)
	if got := p.between(90, 30, time.Second); got != 90*time.Second {
		t.Fatalf("between with inverted range = %v, want 90s", got)
	}
	if got := p.between(45, 45, time.Second); got != 45*time.Second {
		t.Fatalf("between with zero span = %v, want 45s", got)
	}
}

func TestPacerWait(t *testing.T) {
	p := NewPacer()
	if err := p.Wait(context.Background(), 0); err != nil {
		t.Fatalf("Wait(0) returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx, time.Minute); err == nil {
		t.Fatal("Wait with cancelled context must return an error")
	}
}
