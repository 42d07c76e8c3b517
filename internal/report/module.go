package report

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/mailer"
	"outreach_backend/platform/logger"
)

// Module wires the report repository, generator and handler.
type Module struct {
	gen     *Generator
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, source AccountSource, sender mailer.Transport, settingsSource SettingsSource, log *logger.Logger) *Module {
	gen := NewGenerator(NewRepository(pool), source, sender, settingsSource, log)
	return &Module{gen: gen, handler: NewHandler(gen)}
}

func (m *Module) Name() string { return "report" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Generator exposes the report generator for the worker.
func (m *Module) Generator() *Generator { return m.gen }
