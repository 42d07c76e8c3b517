package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the daily report.
type Repository interface {
	TodayCounts(ctx context.Context, day time.Time) (sent, replied, failed int64, err error)
	OverallCounts(ctx context.Context) (*OverallStats, error)
	Trend(ctx context.Context, from time.Time) (map[string]DayTrend, error)
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)
	CampaignStatus(ctx context.Context) (string, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) TodayCounts(ctx context.Context, day time.Time) (int64, int64, int64, error) {
	const op = "report.Repository.TodayCounts"

	var sent, replied, failed int64
	err := r.pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE last_sent_at::date = $1::date),
			count(*) FILTER (WHERE status = 'REPLIED' AND last_sent_at::date = $1::date)
		 FROM leads`, day,
	).Scan(&sent, &replied)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT count(*) FROM logs
		 WHERE created_at::date = $1::date AND event LIKE 'send failed%'`, day,
	).Scan(&failed)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return sent, replied, failed, nil
}

func (r *pgRepository) OverallCounts(ctx context.Context) (*OverallStats, error) {
	const op = "report.Repository.OverallCounts"

	var s OverallStats
	err := r.pool.QueryRow(ctx,
		`SELECT
			count(*),
			count(*) FILTER (WHERE status IN ('SENT', 'REPLIED')),
			count(*) FILTER (WHERE status = 'REPLIED'),
			count(*) FILTER (WHERE status = 'FAILED'),
			count(*) FILTER (WHERE status = 'PENDING')
		 FROM leads`,
	).Scan(&s.TotalLeads, &s.TotalSent, &s.TotalReplied, &s.TotalFailed, &s.TotalPending)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func (r *pgRepository) Trend(ctx context.Context, from time.Time) (map[string]DayTrend, error) {
	const op = "report.Repository.Trend"

	rows, err := r.pool.Query(ctx,
		`SELECT last_sent_at::date,
			count(*),
			count(*) FILTER (WHERE status = 'REPLIED')
		 FROM leads
		 WHERE last_sent_at >= $1
		 GROUP BY last_sent_at::date`, from)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make(map[string]DayTrend)
	for rows.Next() {
		var day time.Time
		var t DayTrend
		if err := rows.Scan(&day, &t.Sent, &t.Replied); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.Date = day.Format("2006-01-02")
		out[t.Date] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *pgRepository) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	const op = "report.Repository.RecentActivity"

	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(email, ''), event, created_at
		 FROM logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var at time.Time
		if err := rows.Scan(&a.Email, &a.Event, &at); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.Timestamp = at.Format("2006-01-02 15:04:05")
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *pgRepository) CampaignStatus(ctx context.Context) (string, error) {
	const op = "report.Repository.CampaignStatus"

	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM campaign LIMIT 1`).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}
