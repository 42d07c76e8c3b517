package accounts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/mailer"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module wires the accounts repository, service and handler.
type Module struct {
	svc     *Service
	repo    Repository
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, transport mailer.Transport, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, transport, log)
	return &Module{
		svc:     svc,
		repo:    repo,
		handler: NewHandler(svc, val),
	}
}

func (m *Module) Name() string { return "accounts" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Service exposes the account service for cross-module wiring.
func (m *Module) Service() *Service { return m.svc }

// Repository exposes the account repository for cross-module wiring.
func (m *Module) Repository() Repository { return m.repo }
