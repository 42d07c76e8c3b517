// Package scheduler wires the engine's periodic work onto asynq: the send
// tick, reply reconciliation, the midnight counter reset, and the daily
// report, all carried over Redis.
package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"outreach_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.WorkerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueTick queues one campaign tick for immediate processing. TaskID
// keyed by task name deduplicates a tick that is already pending, so a slow
// tick never stacks up behind itself.
func (c *Client) EnqueueTick(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewCampaignTickTask(),
		asynq.Queue(c.queue), asynq.TaskID(TaskCampaignTick))
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

// EnqueueReplyCheck queues one reconciliation pass, deduplicated like ticks.
func (c *Client) EnqueueReplyCheck(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewReplyCheckTask(),
		asynq.Queue(c.queue), asynq.TaskID(TaskReplyCheck))
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

// ScheduleDailyReset queues the counter reset to run at runAt. The task ID
// carries the date so rescheduling the same day is a no-op.
func (c *Client) ScheduleDailyReset(ctx context.Context, date string, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewDailyResetTask(DailyResetPayload{Date: date})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt), asynq.Queue(c.queue),
		asynq.TaskID(TaskDailyReset+"@"+date))
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

// ScheduleDailyReport queues the report to run at runAt, deduplicated per day.
func (c *Client) ScheduleDailyReport(ctx context.Context, to string, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewDailyReportTask(DailyReportPayload{To: to})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt), asynq.Queue(c.queue),
		asynq.TaskID(TaskDailyReport+"@"+runAt.Format("2006-01-02")))
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
