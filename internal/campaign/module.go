// Package campaign assembles the campaign bounded context: engine, storage
// and HTTP control surface.
package campaign

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/campaign/handler"
	"outreach_backend/internal/campaign/repository"
	"outreach_backend/internal/campaign/service"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/mailer"
	"outreach_backend/internal/templates"
	"outreach_backend/platform/events"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module wires the campaign repository, engine and handler.
type Module struct {
	engine  *service.Engine
	repo    repository.Repository
	handler *handler.Handler
}

func NewModule(
	pool *pgxpool.Pool,
	picker service.AccountPicker,
	resolver *templates.Resolver,
	sender mailer.Transport,
	settingsSource service.SettingsSource,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	engine := service.NewEngine(repo, picker, resolver, sender, settingsSource, service.NewPacer(), bus, log)
	return &Module{
		engine:  engine,
		repo:    repo,
		handler: handler.New(engine, repo, val),
	}
}

func (m *Module) Name() string { return "campaign" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Engine exposes the engine for the worker.
func (m *Module) Engine() *service.Engine { return m.engine }

// Repository exposes the campaign repository for cross-module wiring.
func (m *Module) Repository() repository.Repository { return m.repo }
