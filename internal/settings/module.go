package settings

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/logger"
)

// Module wires the settings repository, service and handler.
type Module struct {
	svc     *Service
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), log)
	return &Module{svc: svc, handler: NewHandler(svc)}
}

func (m *Module) Name() string { return "settings" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Service exposes the settings service for cross-module wiring.
func (m *Module) Service() *Service { return m.svc }
