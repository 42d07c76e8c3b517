package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/platform/apperr"
)

// Repository persists sending accounts.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	Update(ctx context.Context, acc *Account) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	ListActive(ctx context.Context) ([]Account, error)
	// NextSendingAccount returns the active account with the lowest
	// sent_today, breaking ties by lowest id. Returns nil when no account
	// is active.
	NextSendingAccount(ctx context.Context) (*Account, error)
	ResetAllSentToday(ctx context.Context) error
}

const accountColumns = `id, label, email, password, smtp_host, smtp_port,
	imap_host, imap_port, is_active, sent_today, last_used_at, created_at`

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Create(ctx context.Context, acc *Account) error {
	const op = "accounts.Repository.Create"

	err := r.pool.QueryRow(ctx,
		`INSERT INTO email_accounts (label, email, password, smtp_host, smtp_port, imap_host, imap_port, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		acc.Label, strings.ToLower(acc.Email), acc.Password,
		acc.SMTPHost, acc.SMTPPort, acc.IMAPHost, acc.IMAPPort, acc.IsActive,
	).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("an account with this email already exists")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *pgRepository) Update(ctx context.Context, acc *Account) error {
	const op = "accounts.Repository.Update"

	tag, err := r.pool.Exec(ctx,
		`UPDATE email_accounts
		 SET label = $2, email = $3, password = $4, smtp_host = $5, smtp_port = $6,
		     imap_host = $7, imap_port = $8, is_active = $9
		 WHERE id = $1`,
		acc.ID, acc.Label, strings.ToLower(acc.Email), acc.Password,
		acc.SMTPHost, acc.SMTPPort, acc.IMAPHost, acc.IMAPPort, acc.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("an account with this email already exists")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id int64) error {
	const op = "accounts.Repository.Delete"

	tag, err := r.pool.Exec(ctx, `DELETE FROM email_accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("account not found")
	}
	return nil
}

func (r *pgRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	const op = "accounts.Repository.GetByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM email_accounts WHERE id = $1`, id)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("account not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

func (r *pgRepository) List(ctx context.Context) ([]Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM email_accounts ORDER BY id`)
}

func (r *pgRepository) ListActive(ctx context.Context) ([]Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM email_accounts WHERE is_active ORDER BY id`)
}

func (r *pgRepository) list(ctx context.Context, query string) ([]Account, error) {
	const op = "accounts.Repository.list"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *pgRepository) NextSendingAccount(ctx context.Context) (*Account, error) {
	const op = "accounts.Repository.NextSendingAccount"

	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+`
		 FROM email_accounts
		 WHERE is_active
		 ORDER BY sent_today ASC, id ASC
		 LIMIT 1`)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

func (r *pgRepository) ResetAllSentToday(ctx context.Context) error {
	const op = "accounts.Repository.ResetAllSentToday"

	if _, err := r.pool.Exec(ctx, `UPDATE email_accounts SET sent_today = 0`); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID, &acc.Label, &acc.Email, &acc.Password,
		&acc.SMTPHost, &acc.SMTPPort, &acc.IMAPHost, &acc.IMAPPort,
		&acc.IsActive, &acc.SentToday, &acc.LastUsedAt, &acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
