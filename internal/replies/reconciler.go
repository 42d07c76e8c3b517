// Package replies reconciles inbound mail with lead state. Each pass scans
// every active mailbox over IMAP, marks replying leads REPLIED (first write
// wins, repeats are no-ops), and answers first-time replies with the
// scheduling auto-response.
package replies

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"outreach_backend/internal/accounts"
	"outreach_backend/internal/campaign/domain"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/metrics"
	"outreach_backend/internal/settings"
	"outreach_backend/internal/templates"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

// lookback bounds the IMAP search window. Replies older than this were
// either already reconciled or are not worth answering.
const lookback = 7 * 24 * time.Hour

// Store is the lead persistence surface the reconciler needs.
type Store interface {
	MarkReplied(ctx context.Context, email string, accountID int64, now time.Time) (*domain.Lead, bool, error)
	AppendLog(ctx context.Context, email, event string) error
}

// AccountSource lists the mailboxes to scan.
type AccountSource interface {
	ListActive(ctx context.Context) ([]accounts.Account, error)
}

// SettingsSource resolves the current runtime settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) settings.Snapshot
}

// Reconciler scans inboxes and applies reply transitions.
type Reconciler struct {
	store    Store
	accounts AccountSource
	fetcher  mailer.Transport
	resolver *templates.Resolver
	settings SettingsSource
	bus      events.Bus
	logger   *logger.Logger

	now func() time.Time

	// processed remembers message ids already reconciled in this process.
	// It only saves IMAP round trips; correctness comes from the
	// idempotent REPLIED transition in the store.
	mu        sync.Mutex
	processed map[string]struct{}
}

func NewReconciler(
	store Store,
	source AccountSource,
	fetcher mailer.Transport,
	resolver *templates.Resolver,
	settingsSource SettingsSource,
	bus events.Bus,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		store:     store,
		accounts:  source,
		fetcher:   fetcher,
		resolver:  resolver,
		settings:  settingsSource,
		bus:       bus,
		logger:    log,
		now:       time.Now,
		processed: make(map[string]struct{}),
	}
}

// Outcome summarizes one reconciliation pass.
type Outcome struct {
	AccountsScanned int
	AccountErrors   int
	RepliesMarked   int
	AutoResponses   int
}

// scanConcurrency bounds how many mailboxes are polled at once.
const scanConcurrency = 4

// ReconcileOnce runs a single pass over every active mailbox. Mailboxes are
// scanned concurrently; a failing mailbox is logged and skipped, never
// aborting the pass.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (*Outcome, error) {
	accts, err := r.accounts.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	own := make(map[string]struct{}, len(accts))
	for _, a := range accts {
		own[strings.ToLower(a.Email)] = struct{}{}
	}

	var (
		out   Outcome
		outMu sync.Mutex
	)
	since := r.now().Add(-lookback)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)

	for i := range accts {
		account := &accts[i]
		g.Go(func() error {
			messages, err := r.fetcher.FetchSince(gctx, account.Mailbox(), since)

			outMu.Lock()
			out.AccountsScanned++
			if err != nil {
				out.AccountErrors++
			}
			outMu.Unlock()

			if err != nil {
				metrics.ReconcileErrors.Inc()
				r.logger.Warn("inbox scan failed", "account", account.Email, "error", err)
				return nil
			}

			for _, msg := range messages {
				marked, responded := r.handleMessage(gctx, account, msg, own)
				if marked || responded {
					outMu.Lock()
					if marked {
						out.RepliesMarked++
					}
					if responded {
						out.AutoResponses++
					}
					outMu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &out, err
	}
	return &out, ctx.Err()
}

func (r *Reconciler) handleMessage(ctx context.Context, account *accounts.Account, msg mailer.RawMessage, own map[string]struct{}) (marked, responded bool) {
	if r.seen(msg.MessageID) {
		return false, false
	}

	from := strings.ToLower(strings.TrimSpace(msg.From))
	if from == "" {
		r.remember(msg.MessageID)
		return false, false
	}
	if _, ours := own[from]; ours {
		// Our own copies show up in the scanned window; never treat
		// them as replies.
		r.remember(msg.MessageID)
		return false, false
	}

	lead, first, err := r.store.MarkReplied(ctx, from, account.ID, r.now())
	if err != nil {
		// Leave the message unremembered so the next pass retries.
		r.logger.Warn("reply transition failed", "email", from, "error", err)
		return false, false
	}
	if lead == nil {
		// Not a lead; ordinary inbox traffic.
		r.remember(msg.MessageID)
		return false, false
	}

	if first {
		metrics.RepliesDetected.Inc()
		r.logger.ReplyEvent(lead.Email, account.Email)
		r.bus.Publish(ctx, domain.LeadRepliedEvent{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			Email:     lead.Email,
			AccountID: account.ID,
		})
		responded = r.sendAutoResponse(ctx, account, lead)
	}
	r.remember(msg.MessageID)
	return first, responded
}

// sendAutoResponse answers a first-time reply with the scheduling message.
// It bypasses the send pacer and daily counters: it is a reaction, not
// outreach. Failure is logged and swallowed; the REPLIED transition stands.
func (r *Reconciler) sendAutoResponse(ctx context.Context, account *accounts.Account, lead *domain.Lead) bool {
	snap := r.settings.Snapshot(ctx)

	tpl := r.resolver.Resolve(ctx, lead.Industry(), domain.StageReply)
	vars := templates.LeadVariables(lead)
	vars["calendar_link"] = snap.CalendarLink
	rendered := templates.Render(tpl.Subject, tpl.Body, vars)

	err := r.fetcher.Send(ctx, account.Mailbox(), mailer.Message{
		To:      lead.Email,
		Subject: rendered.Subject,
		Body:    rendered.Body,
	})
	if err != nil {
		r.logger.Warn("auto-response failed",
			"email", lead.Email, "account", account.Email, "error", err)
		if logErr := r.store.AppendLog(ctx, lead.Email, "auto-response failed: "+err.Error()); logErr != nil {
			r.logger.Warn("failed to log auto-response failure", "email", lead.Email, "error", logErr)
		}
		return false
	}

	metrics.AutoResponses.Inc()
	r.logger.Info("auto-response sent", "email", lead.Email, "account", account.Email)
	if logErr := r.store.AppendLog(ctx, lead.Email, "auto-response sent"); logErr != nil {
		r.logger.Warn("failed to log auto-response", "email", lead.Email, "error", logErr)
	}
	return true
}

func (r *Reconciler) seen(messageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processed[messageID]
	return ok
}

func (r *Reconciler) remember(messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[messageID] = struct{}{}
}
