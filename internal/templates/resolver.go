package templates

import (
	"context"

	"outreach_backend/internal/campaign/domain"
)

// Resolver picks the template for a lead and stage.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the effective template for a stage: the operator override
// when one exists, otherwise the built-in template for the lead's industry.
// A database error during lookup falls back to the built-in set so a send is
// never blocked on the override table.
func (r *Resolver) Resolve(ctx context.Context, industry string, stage domain.Stage) Template {
	if r.repo != nil {
		if custom, err := r.repo.Get(ctx, stage); err == nil {
			return Template{Subject: custom.Subject, Body: custom.Body}
		}
	}
	return Builtin(industry, stage)
}

// ForLead resolves and renders the message for a lead's next stage.
func (r *Resolver) ForLead(ctx context.Context, lead *domain.Lead, stage domain.Stage) Rendered {
	tpl := r.Resolve(ctx, lead.Industry(), stage)
	return Render(tpl.Subject, tpl.Body, LeadVariables(lead))
}

// LeadVariables builds the substitution map for a lead. Missing first_name
// and company get friendly fallbacks; every other imported column passes
// through as-is, keyed by its lowercased column name.
func LeadVariables(lead *domain.Lead) map[string]string {
	vars := make(map[string]string, len(lead.Data)+3)
	for k, v := range lead.Data {
		vars[k] = v
	}
	vars["email"] = lead.Email
	if vars["first_name"] == "" {
		vars["first_name"] = "there"
	}
	if vars["company"] == "" {
		vars["company"] = "your company"
	}
	return vars
}
