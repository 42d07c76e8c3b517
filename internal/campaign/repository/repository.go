// Package repository persists the campaign aggregate, leads, and the audit
// log. Every state transition that touches more than one row runs in a
// single transaction, and transitions against leads re-check the current
// status under a row lock so a concurrent reply cannot be overwritten.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/campaign/domain"
	"outreach_backend/platform/apperr"
)

// Stats summarizes lead counts and campaign progress.
type Stats struct {
	TotalLeads  int64 `json:"total_leads"`
	Pending     int64 `json:"pending"`
	Sent        int64 `json:"sent"`
	Replied     int64 `json:"replied"`
	Failed      int64 `json:"failed"`
	SentToday   int   `json:"sent_today"`
	EmailsTotal int64 `json:"emails_sent_total"`
}

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	Status *domain.LeadStatus
	Limit  int
	Offset int
}

// Repository is the storage port for the campaign engine.
type Repository interface {
	CreateLead(ctx context.Context, lead *domain.Lead) error
	// CreateLeads inserts a batch, skipping emails that already exist.
	// Returns the number inserted.
	CreateLeads(ctx context.Context, leads []domain.Lead) (int, error)
	GetLead(ctx context.Context, id int64) (*domain.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)

	// NextLead picks the lead for the next send: the oldest PENDING lead,
	// or failing that the oldest SENT lead whose follow-up is due at now.
	// Returns nil when neither exists.
	NextLead(ctx context.Context, now time.Time) (*domain.Lead, error)

	// ApplySendSuccess commits a successful send: the lead moves to SENT
	// with its follow-up count advanced and the account pinned, and both
	// daily counters increment. Returns false without mutating anything
	// if the lead is no longer in a sendable state (a reply landed
	// between selection and send).
	ApplySendSuccess(ctx context.Context, leadID, accountID int64, now time.Time, stage domain.Stage) (bool, error)

	// ApplySendFailure moves the lead to FAILED and records the reason.
	// Daily counters are untouched. No-ops if the lead already replied.
	ApplySendFailure(ctx context.Context, leadID int64, reason string) error

	// MarkReplied transitions the lead for an email address to REPLIED,
	// adopting accountID as the assigned account when none is pinned yet.
	// Returns the lead and true on the first transition, and the lead
	// and false when it was already REPLIED. Unknown addresses return
	// (nil, false, nil).
	MarkReplied(ctx context.Context, email string, accountID int64, now time.Time) (*domain.Lead, bool, error)

	// SendableRemaining counts leads the engine could still touch: every
	// PENDING lead plus SENT leads with follow-ups left, due or not.
	SendableRemaining(ctx context.Context) (int64, error)

	// ResetLead returns a lead to PENDING with its sequence cleared.
	ResetLead(ctx context.Context, id int64) error
	DeleteLead(ctx context.Context, id int64) error

	GetCampaign(ctx context.Context) (*domain.Campaign, error)
	SetCampaignStatus(ctx context.Context, status domain.CampaignStatus) error

	// ResetDailyCounters zeroes the campaign and per-account daily
	// counters and stamps the reset date, all in one transaction.
	ResetDailyCounters(ctx context.Context, date string) error

	AppendLog(ctx context.Context, email, event string) error
	ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error)
	Stats(ctx context.Context) (*Stats, error)
}

const leadColumns = `id, email, data, status, followup_count, last_sent_at, assigned_account_id, created_at`

type pgRepository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) CreateLead(ctx context.Context, lead *domain.Lead) error {
	const op = "campaign.Repository.CreateLead"

	if lead.Data == nil {
		lead.Data = map[string]string{}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO leads (email, data) VALUES ($1, $2) RETURNING id, status, created_at`,
		strings.ToLower(strings.TrimSpace(lead.Email)), lead.Data,
	).Scan(&lead.ID, &lead.Status, &lead.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("a lead with this email already exists")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *pgRepository) CreateLeads(ctx context.Context, leads []domain.Lead) (int, error) {
	const op = "campaign.Repository.CreateLeads"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for i := range leads {
		data := leads[i].Data
		if data == nil {
			data = map[string]string{}
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO leads (email, data) VALUES ($1, $2)
			 ON CONFLICT (lower(email)) DO NOTHING`,
			strings.ToLower(strings.TrimSpace(leads[i].Email)), data)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return inserted, nil
}

func (r *pgRepository) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	const op = "campaign.Repository.GetLead"

	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lead, nil
}

func (r *pgRepository) GetLeadByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	const op = "campaign.Repository.GetLeadByEmail"

	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lead, nil
}

func (r *pgRepository) ListLeads(ctx context.Context, filter LeadFilter) ([]domain.Lead, error) {
	const op = "campaign.Repository.ListLeads"

	query := `SELECT ` + leadColumns + ` FROM leads`
	args := []any{}
	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *pgRepository) NextLead(ctx context.Context, now time.Time) (*domain.Lead, error) {
	const op = "campaign.Repository.NextLead"

	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE status = 'PENDING' ORDER BY id LIMIT 1`)
	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	row = r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE status = 'SENT' AND followup_count < $1 AND last_sent_at <= $2
		 ORDER BY id LIMIT 1`,
		domain.MaxFollowups, now.Add(-domain.FollowupDelay))
	lead, err = scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return lead, nil
}

func (r *pgRepository) ApplySendSuccess(ctx context.Context, leadID, accountID int64, now time.Time, stage domain.Stage) (bool, error) {
	const op = "campaign.Repository.ApplySendSuccess"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var status string
	var email string
	err = tx.QueryRow(ctx,
		`SELECT status, email FROM leads WHERE id = $1 FOR UPDATE`, leadID,
	).Scan(&status, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, apperr.NotFound("lead not found")
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	// The send already happened on the wire; only a committed reply may
	// suppress the bookkeeping, never be overwritten by it.
	if domain.LeadStatus(status) == domain.LeadReplied {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE leads
		 SET status = 'SENT', last_sent_at = $2, followup_count = followup_count + 1,
		     assigned_account_id = $3
		 WHERE id = $1`,
		leadID, now, accountID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE campaign SET sent_today = sent_today + 1, updated_at = now() WHERE id = $1`,
		domain.CampaignID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE email_accounts SET sent_today = sent_today + 1, last_used_at = $2, updated_at = now()
		 WHERE id = $1`,
		accountID, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO logs (email, event) VALUES ($1, $2)`,
		email, fmt.Sprintf("%s email sent", stage))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (r *pgRepository) ApplySendFailure(ctx context.Context, leadID int64, reason string) error {
	const op = "campaign.Repository.ApplySendFailure"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var status, email string
	err = tx.QueryRow(ctx,
		`SELECT status, email FROM leads WHERE id = $1 FOR UPDATE`, leadID,
	).Scan(&status, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("lead not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if domain.LeadStatus(status) == domain.LeadReplied {
		return tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET status = 'FAILED' WHERE id = $1`, leadID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO logs (email, event) VALUES ($1, $2)`,
		email, "send failed: "+reason); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return tx.Commit(ctx)
}

func (r *pgRepository) MarkReplied(ctx context.Context, email string, accountID int64, now time.Time) (*domain.Lead, bool, error) {
	const op = "campaign.Repository.MarkReplied"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower($1) FOR UPDATE`,
		strings.TrimSpace(email))
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if lead.Status == domain.LeadReplied {
		return lead, false, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads
		 SET status = 'REPLIED',
		     assigned_account_id = COALESCE(assigned_account_id, $2)
		 WHERE id = $1`, lead.ID, accountID); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO logs (email, event) VALUES ($1, 'reply received')`,
		lead.Email); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	lead.Status = domain.LeadReplied
	if lead.AssignedAccountID == nil {
		lead.AssignedAccountID = &accountID
	}
	return lead, true, nil
}

func (r *pgRepository) SendableRemaining(ctx context.Context) (int64, error) {
	const op = "campaign.Repository.SendableRemaining"

	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM leads
		 WHERE status = 'PENDING'
		    OR (status = 'SENT' AND followup_count < $1)`,
		domain.MaxFollowups).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *pgRepository) ResetLead(ctx context.Context, id int64) error {
	const op = "campaign.Repository.ResetLead"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	var email string
	err = tx.QueryRow(ctx,
		`UPDATE leads
		 SET status = 'PENDING', followup_count = 0, last_sent_at = NULL, assigned_account_id = NULL
		 WHERE id = $1
		 RETURNING email`, id).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("lead not found")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO logs (email, event) VALUES ($1, 'lead reset to pending')`, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return tx.Commit(ctx)
}

func (r *pgRepository) DeleteLead(ctx context.Context, id int64) error {
	const op = "campaign.Repository.DeleteLead"

	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func (r *pgRepository) GetCampaign(ctx context.Context) (*domain.Campaign, error) {
	const op = "campaign.Repository.GetCampaign"

	var c domain.Campaign
	var lastReset *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, status, sent_today, last_reset_date, created_at, updated_at
		 FROM campaign WHERE id = $1`, domain.CampaignID,
	).Scan(&c.ID, &c.Status, &c.SentToday, &lastReset, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if lastReset != nil {
		c.LastResetDate = *lastReset
	}
	return &c, nil
}

func (r *pgRepository) SetCampaignStatus(ctx context.Context, status domain.CampaignStatus) error {
	const op = "campaign.Repository.SetCampaignStatus"

	_, err := r.pool.Exec(ctx,
		`UPDATE campaign SET status = $2, updated_at = now() WHERE id = $1`,
		domain.CampaignID, string(status))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *pgRepository) ResetDailyCounters(ctx context.Context, date string) error {
	const op = "campaign.Repository.ResetDailyCounters"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE campaign SET sent_today = 0, last_reset_date = $2, updated_at = now() WHERE id = $1`,
		domain.CampaignID, date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE email_accounts SET sent_today = 0, updated_at = now()`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO logs (email, event) VALUES (NULL, 'daily counters reset for ' || $1)`,
		date); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return tx.Commit(ctx)
}

func (r *pgRepository) AppendLog(ctx context.Context, email, event string) error {
	const op = "campaign.Repository.AppendLog"

	var emailArg any
	if email != "" {
		emailArg = email
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO logs (email, event) VALUES ($1, $2)`, emailArg, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *pgRepository) ListLogs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	const op = "campaign.Repository.ListLogs"

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, COALESCE(email, ''), event, created_at
		 FROM logs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		if err := rows.Scan(&entry.ID, &entry.Email, &entry.Event, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *pgRepository) Stats(ctx context.Context) (*Stats, error) {
	const op = "campaign.Repository.Stats"

	var s Stats
	err := r.pool.QueryRow(ctx,
		`SELECT
			count(*),
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'SENT'),
			count(*) FILTER (WHERE status = 'REPLIED'),
			count(*) FILTER (WHERE status = 'FAILED')
		 FROM leads`,
	).Scan(&s.TotalLeads, &s.Pending, &s.Sent, &s.Replied, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	campaign, err := r.GetCampaign(ctx)
	if err != nil {
		return nil, err
	}
	s.SentToday = campaign.SentToday

	err = r.pool.QueryRow(ctx,
		`SELECT count(*) FROM logs WHERE event LIKE '%email sent'`).Scan(&s.EmailsTotal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.Email, &lead.Data, &lead.Status,
		&lead.FollowupCount, &lead.LastSentAt, &lead.AssignedAccountID, &lead.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
