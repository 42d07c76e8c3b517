package templates

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/validator"
)

// Module wires the template repository, resolver and handler.
type Module struct {
	resolver *Resolver
	handler  *Handler
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	return &Module{
		resolver: NewResolver(repo),
		handler:  NewHandler(repo, val),
	}
}

func (m *Module) Name() string { return "templates" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}

// Resolver exposes the template resolver for cross-module wiring.
func (m *Module) Resolver() *Resolver { return m.resolver }
