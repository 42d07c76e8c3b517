// Package service runs the outreach engine: the periodic tick that selects
// one lead, sends the message for its stage through the least-loaded
// account, commits the outcome, and paces the next send.
package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"outreach_backend/internal/accounts"
	"outreach_backend/internal/campaign/domain"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/metrics"
	"outreach_backend/internal/settings"
	"outreach_backend/internal/templates"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

// Store is the persistence surface the engine needs. It is satisfied by
// campaign/repository.Repository.
type Store interface {
	GetCampaign(ctx context.Context) (*domain.Campaign, error)
	SetCampaignStatus(ctx context.Context, status domain.CampaignStatus) error
	ResetDailyCounters(ctx context.Context, date string) error
	NextLead(ctx context.Context, now time.Time) (*domain.Lead, error)
	SendableRemaining(ctx context.Context) (int64, error)
	ApplySendSuccess(ctx context.Context, leadID, accountID int64, now time.Time, stage domain.Stage) (bool, error)
	ApplySendFailure(ctx context.Context, leadID int64, reason string) error
	AppendLog(ctx context.Context, email, event string) error
}

// AccountPicker selects the sending account for the next email.
type AccountPicker interface {
	NextSender(ctx context.Context) (*accounts.Account, error)
}

// SettingsSource resolves the current runtime settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) settings.Snapshot
}

// TickAction classifies what a tick did.
type TickAction string

const (
	ActionSent      TickAction = "sent"
	ActionFailed    TickAction = "failed"
	ActionSkipped   TickAction = "skipped"
	ActionCompleted TickAction = "completed"
	ActionIdle      TickAction = "idle"
)

// TickOutcome reports one tick for logging and tests.
type TickOutcome struct {
	Action    TickAction
	Reason    string
	LeadID    int64
	Email     string
	Stage     domain.Stage
	AccountID int64
	Paused    time.Duration
}

// Engine drives the campaign state machine.
type Engine struct {
	store    Store
	accounts AccountPicker
	resolver *templates.Resolver
	sender   mailer.Transport
	settings SettingsSource
	pacer    *Pacer
	bus      events.Bus
	logger   *logger.Logger

	now func() time.Time

	// sessionSends counts successful outreach sends since this process
	// started. The pause cadence keys off it, not the per-account daily
	// counters, so the phase survives midnight resets and account rotation.
	sessionSends atomic.Int64
}

func NewEngine(
	store Store,
	picker AccountPicker,
	resolver *templates.Resolver,
	sender mailer.Transport,
	source SettingsSource,
	pacer *Pacer,
	bus events.Bus,
	log *logger.Logger,
) *Engine {
	return &Engine{
		store:    store,
		accounts: picker,
		resolver: resolver,
		sender:   sender,
		settings: source,
		pacer:    pacer,
		bus:      bus,
		logger:   log,
		now:      time.Now,
	}
}

// Tick processes at most one lead. It self-heals a stale daily counter,
// refuses to run outside RUNNING, enforces the daily limit, and marks the
// campaign COMPLETED when no sendable lead remains.
func (e *Engine) Tick(ctx context.Context) (*TickOutcome, error) {
	started := e.now()
	defer func() {
		metrics.TickDuration.Observe(e.now().Sub(started).Seconds())
	}()

	campaign, err := e.healDailyReset(ctx)
	if err != nil {
		return nil, err
	}

	if campaign.Status != domain.CampaignRunning {
		return &TickOutcome{Action: ActionSkipped, Reason: "campaign not running"}, nil
	}

	snap := e.settings.Snapshot(ctx)
	if campaign.SentToday >= snap.DailyEmailLimit {
		e.logger.Info("daily email limit reached", "sent_today", campaign.SentToday, "limit", snap.DailyEmailLimit)
		return &TickOutcome{Action: ActionSkipped, Reason: "daily limit reached"}, nil
	}

	account, err := e.accounts.NextSender(ctx)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			e.logger.Warn("no active email accounts, skipping tick")
			return &TickOutcome{Action: ActionSkipped, Reason: "no active email accounts"}, nil
		}
		return nil, err
	}

	lead, err := e.store.NextLead(ctx, e.now())
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return e.maybeComplete(ctx)
	}

	stage := domain.StageForFollowupCount(lead.FollowupCount)
	rendered := e.resolver.ForLead(ctx, lead, stage)

	sendErr := e.sender.Send(ctx, account.Mailbox(), mailer.Message{
		To:      lead.Email,
		Subject: rendered.Subject,
		Body:    rendered.Body,
	})
	if sendErr != nil {
		return e.commitFailure(ctx, lead, stage, sendErr)
	}
	return e.commitSuccess(ctx, lead, account, stage, snap)
}

// healDailyReset zeroes the daily counters when the stamped reset date is
// not today, so a crash across midnight cannot leave yesterday's quota in
// force.
func (e *Engine) healDailyReset(ctx context.Context) (*domain.Campaign, error) {
	campaign, err := e.store.GetCampaign(ctx)
	if err != nil {
		return nil, err
	}

	today := e.now().Format(domain.ResetDateFormat)
	if campaign.LastResetDate == today {
		return campaign, nil
	}

	e.logger.Info("daily counters stale, resetting",
		"last_reset", campaign.LastResetDate, "today", today)
	if err := e.store.ResetDailyCounters(ctx, today); err != nil {
		return nil, err
	}
	return e.store.GetCampaign(ctx)
}

func (e *Engine) maybeComplete(ctx context.Context) (*TickOutcome, error) {
	remaining, err := e.store.SendableRemaining(ctx)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		// Leads exist but none is due yet.
		return &TickOutcome{Action: ActionIdle, Reason: "no lead due"}, nil
	}

	if err := e.store.SetCampaignStatus(ctx, domain.CampaignCompleted); err != nil {
		return nil, err
	}
	if err := e.store.AppendLog(ctx, "", "campaign completed"); err != nil {
		e.logger.Warn("failed to log campaign completion", "error", err)
	}
	e.bus.Publish(ctx, domain.CampaignCompletedEvent{BaseEvent: events.NewBaseEvent()})
	e.logger.Info("campaign completed, no sendable leads remain")
	return &TickOutcome{Action: ActionCompleted}, nil
}

func (e *Engine) commitFailure(ctx context.Context, lead *domain.Lead, stage domain.Stage, sendErr error) (*TickOutcome, error) {
	e.logger.SendEvent(string(stage), lead.Email, false, sendErr.Error())
	metrics.SendFailures.Inc()

	if err := e.store.ApplySendFailure(ctx, lead.ID, sendErr.Error()); err != nil {
		return nil, fmt.Errorf("recording send failure: %w", err)
	}
	e.bus.Publish(ctx, domain.LeadFailedEvent{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		Reason:    sendErr.Error(),
	})
	return &TickOutcome{
		Action: ActionFailed,
		Reason: sendErr.Error(),
		LeadID: lead.ID,
		Email:  lead.Email,
		Stage:  stage,
	}, nil
}

func (e *Engine) commitSuccess(ctx context.Context, lead *domain.Lead, account *accounts.Account, stage domain.Stage, snap settings.Snapshot) (*TickOutcome, error) {
	applied, err := e.store.ApplySendSuccess(ctx, lead.ID, account.ID, e.now(), stage)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A reply was committed between selection and send. The reply wins.
		e.logger.Info("send bookkeeping suppressed, lead already replied",
			"lead_id", lead.ID, "email", lead.Email)
		return &TickOutcome{
			Action: ActionSkipped,
			Reason: "lead replied during send",
			LeadID: lead.ID,
			Email:  lead.Email,
		}, nil
	}

	e.logger.SendEvent(string(stage), lead.Email, true, "")
	metrics.EmailsSent.WithLabelValues(string(stage)).Inc()
	e.bus.Publish(ctx, domain.LeadContactedEvent{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		Stage:     stage,
		AccountID: account.ID,
	})

	rest := e.pacer.Plan(snap, int(e.sessionSends.Add(1)))
	if err := e.pacer.Wait(ctx, rest); err != nil {
		return nil, err
	}
	return &TickOutcome{
		Action:    ActionSent,
		LeadID:    lead.ID,
		Email:     lead.Email,
		Stage:     stage,
		AccountID: account.ID,
		Paused:    rest,
	}, nil
}

// Start transitions the campaign to RUNNING.
func (e *Engine) Start(ctx context.Context) error {
	campaign, err := e.store.GetCampaign(ctx)
	if err != nil {
		return err
	}
	if campaign.Status == domain.CampaignRunning {
		return apperr.Conflict("campaign is already running")
	}
	if err := e.store.SetCampaignStatus(ctx, domain.CampaignRunning); err != nil {
		return err
	}
	if err := e.store.AppendLog(ctx, "", "campaign started"); err != nil {
		e.logger.Warn("failed to log campaign start", "error", err)
	}
	e.logger.Info("campaign started")
	return nil
}

// Pause transitions a RUNNING campaign to PAUSED.
func (e *Engine) Pause(ctx context.Context) error {
	campaign, err := e.store.GetCampaign(ctx)
	if err != nil {
		return err
	}
	if campaign.Status != domain.CampaignRunning {
		return apperr.Conflict("only a running campaign can be paused")
	}
	if err := e.store.SetCampaignStatus(ctx, domain.CampaignPaused); err != nil {
		return err
	}
	if err := e.store.AppendLog(ctx, "", "campaign paused"); err != nil {
		e.logger.Warn("failed to log campaign pause", "error", err)
	}
	e.logger.Info("campaign paused")
	return nil
}

// Stop transitions a RUNNING or PAUSED campaign to STOPPED.
func (e *Engine) Stop(ctx context.Context) error {
	campaign, err := e.store.GetCampaign(ctx)
	if err != nil {
		return err
	}
	if campaign.Status != domain.CampaignRunning && campaign.Status != domain.CampaignPaused {
		return apperr.Conflict("campaign is not running or paused")
	}
	if err := e.store.SetCampaignStatus(ctx, domain.CampaignStopped); err != nil {
		return err
	}
	if err := e.store.AppendLog(ctx, "", "campaign stopped"); err != nil {
		e.logger.Warn("failed to log campaign stop", "error", err)
	}
	e.logger.Info("campaign stopped")
	return nil
}

// Status returns the campaign aggregate.
func (e *Engine) Status(ctx context.Context) (*domain.Campaign, error) {
	return e.store.GetCampaign(ctx)
}
