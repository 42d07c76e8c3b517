package scheduler

import (
	"context"
	"fmt"
	"time"

	"outreach_backend/internal/campaign/domain"
	"outreach_backend/internal/campaign/repository"
	"outreach_backend/internal/campaign/service"
	"outreach_backend/internal/replies"
	"outreach_backend/internal/report"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	engine     *service.Engine
	reconciler *replies.Reconciler
	reports    *report.Generator
	repo       repository.Repository
	log        *logger.Logger
}

func NewWorker(
	cfg config.WorkerConfig,
	engine *service.Engine,
	reconciler *replies.Reconciler,
	reports *report.Generator,
	repo repository.Repository,
	log *logger.Logger,
) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 4
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		engine:     engine,
		reconciler: reconciler,
		reports:    reports,
		repo:       repo,
		log:        log,
	}

	mux.HandleFunc(TaskCampaignTick, w.handleCampaignTick)
	mux.HandleFunc(TaskReplyCheck, w.handleReplyCheck)
	mux.HandleFunc(TaskDailyReset, w.handleDailyReset)
	mux.HandleFunc(TaskDailyReport, w.handleDailyReport)

	return w, nil
}

func (w *Worker) handleCampaignTick(ctx context.Context, _ *asynq.Task) error {
	log := w.log.WithJob("campaign_tick")

	outcome, err := w.engine.Tick(ctx)
	if err != nil {
		log.Error("tick failed", "error", err)
		return err
	}

	switch outcome.Action {
	case service.ActionSent:
		log.Info("tick sent email",
			"lead_id", outcome.LeadID, "email", outcome.Email,
			"stage", outcome.Stage, "account_id", outcome.AccountID,
			"paused", outcome.Paused.String())
	case service.ActionFailed:
		log.Warn("tick send failed",
			"lead_id", outcome.LeadID, "email", outcome.Email, "reason", outcome.Reason)
	case service.ActionCompleted:
		log.Info("tick completed campaign")
	default:
		log.Debug("tick idle", "action", string(outcome.Action), "reason", outcome.Reason)
	}
	return nil
}

func (w *Worker) handleReplyCheck(ctx context.Context, _ *asynq.Task) error {
	log := w.log.WithJob("reply_check")

	outcome, err := w.reconciler.ReconcileOnce(ctx)
	if err != nil {
		log.Error("reconciliation failed", "error", err)
		return err
	}

	if outcome.RepliesMarked > 0 || outcome.AccountErrors > 0 {
		log.Info("reconciliation pass finished",
			"accounts", outcome.AccountsScanned,
			"account_errors", outcome.AccountErrors,
			"replies", outcome.RepliesMarked,
			"auto_responses", outcome.AutoResponses)
	}
	return nil
}

func (w *Worker) handleDailyReset(ctx context.Context, task *asynq.Task) error {
	log := w.log.WithJob("daily_reset")

	payload, err := ParseDailyResetPayload(task)
	if err != nil {
		return err
	}
	date := payload.Date
	if date == "" {
		date = time.Now().Format(domain.ResetDateFormat)
	}

	if err := w.repo.ResetDailyCounters(ctx, date); err != nil {
		log.Error("daily reset failed", "error", err)
		return err
	}
	log.Info("daily counters reset", "date", date)
	return nil
}

func (w *Worker) handleDailyReport(ctx context.Context, task *asynq.Task) error {
	log := w.log.WithJob("daily_report")

	payload, err := ParseDailyReportPayload(task)
	if err != nil {
		return err
	}

	if err := w.reports.SendDaily(ctx, payload.To); err != nil {
		log.Error("daily report failed", "error", err)
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
