package service

import (
	"context"
	"math/rand"
	"time"

	"outreach_backend/internal/settings"
)

// Pacer decides how long the engine rests after each outbound email. Most
// sends get a short randomized delay; every Nth send earns a long pause so
// the traffic shape stays human. Auto-responses to inbound replies bypass
// the pacer entirely.
type Pacer struct {
	intn  func(n int) int
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer() *Pacer {
	return &Pacer{intn: rand.Intn, sleep: sleepCtx}
}

// Plan returns the rest duration after the send that brought the session
// counter to sessionSends. Every Nth send stacks the long pause on top of
// the short delay.
func (p *Pacer) Plan(snap settings.Snapshot, sessionSends int) time.Duration {
	rest := p.between(snap.MinDelaySeconds, snap.MaxDelaySeconds, time.Second)
	if snap.PauseEveryNEmails > 0 && sessionSends > 0 && sessionSends%snap.PauseEveryNEmails == 0 {
		rest += p.between(snap.PauseMinMinutes, snap.PauseMaxMinutes, time.Minute)
	}
	return rest
}

// Wait blocks for d or until ctx is done.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return p.sleep(ctx, d)
}

func (p *Pacer) between(min, max int, unit time.Duration) time.Duration {
	if max < min {
		max = min
	}
	n := min
	if span := max - min; span > 0 {
		n += p.intn(span + 1)
	}
	return time.Duration(n) * unit
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
