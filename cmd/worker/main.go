package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/accounts"
	"outreach_backend/internal/campaign"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/replies"
	"outreach_backend/internal/report"
	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/settings"
	"outreach_backend/internal/templates"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	transport := mailer.New()

	settingsModule := settings.NewModule(pool, log)
	accountsModule := accounts.NewModule(pool, transport, val, log)
	templatesModule := templates.NewModule(pool, val)
	campaignModule := campaign.NewModule(
		pool,
		accountsModule.Service(),
		templatesModule.Resolver(),
		transport,
		settingsModule.Service(),
		eventBus,
		val,
		log,
	)
	reportModule := report.NewModule(pool, accountsModule.Repository(), transport, settingsModule.Service(), log)

	reconciler := replies.NewReconciler(
		campaignModule.Repository(),
		accountsModule.Repository(),
		transport,
		templatesModule.Resolver(),
		settingsModule.Service(),
		eventBus,
		log,
	)

	worker, err := scheduler.NewWorker(cfg, campaignModule.Engine(), reconciler, reportModule.Generator(), campaignModule.Repository(), log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer client.Close()

	dispatcher := scheduler.NewDispatcher(client, settingsModule.Service(), log)

	go worker.Run(ctx)
	dispatcher.Run(ctx)

	log.Info("worker stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
