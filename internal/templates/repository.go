package templates

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/campaign/domain"
	"outreach_backend/platform/apperr"
)

// CustomTemplate is an operator override for one stage, applied to every
// industry. A row exists only while the override is active.
type CustomTemplate struct {
	Stage   domain.Stage `json:"template_type"`
	Subject string       `json:"subject"`
	Body    string       `json:"body"`
}

// Repository persists operator template overrides.
type Repository interface {
	Get(ctx context.Context, stage domain.Stage) (*CustomTemplate, error)
	List(ctx context.Context) ([]CustomTemplate, error)
	Upsert(ctx context.Context, tpl CustomTemplate) error
	Delete(ctx context.Context, stage domain.Stage) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Get(ctx context.Context, stage domain.Stage) (*CustomTemplate, error) {
	const op = "templates.Repository.Get"

	row := r.pool.QueryRow(ctx,
		`SELECT template_type, subject, body FROM custom_templates WHERE template_type = $1`,
		string(stage))

	var tpl CustomTemplate
	if err := row.Scan(&tpl.Stage, &tpl.Subject, &tpl.Body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("template override not found")
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tpl, nil
}

func (r *pgRepository) List(ctx context.Context) ([]CustomTemplate, error) {
	const op = "templates.Repository.List"

	rows, err := r.pool.Query(ctx,
		`SELECT template_type, subject, body FROM custom_templates ORDER BY template_type`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []CustomTemplate
	for rows.Next() {
		var tpl CustomTemplate
		if err := rows.Scan(&tpl.Stage, &tpl.Subject, &tpl.Body); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *pgRepository) Upsert(ctx context.Context, tpl CustomTemplate) error {
	const op = "templates.Repository.Upsert"

	_, err := r.pool.Exec(ctx,
		`INSERT INTO custom_templates (template_type, subject, body, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (template_type)
		 DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body, updated_at = now()`,
		string(tpl.Stage), tpl.Subject, tpl.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, stage domain.Stage) error {
	const op = "templates.Repository.Delete"

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM custom_templates WHERE template_type = $1`, string(stage))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("template override not found")
	}
	return nil
}
