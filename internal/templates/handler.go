package templates

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach_backend/internal/campaign/domain"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"
)

// Handler exposes template overrides and placeholder validation.
type Handler struct {
	repo Repository
	val  *validator.Validator
}

func NewHandler(repo Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/templates", h.List)
	rg.GET("/templates/:type", h.Get)
	rg.PUT("/templates/:type", h.Upsert)
	rg.DELETE("/templates/:type", h.Delete)
}

// List returns every effective template: overrides where present, built-in
// defaults otherwise.
// GET /api/v1/templates
func (h *Handler) List(c *gin.Context) {
	overrides, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	custom := make(map[domain.Stage]CustomTemplate, len(overrides))
	for _, o := range overrides {
		custom[o.Stage] = o
	}

	stages := []domain.Stage{domain.StageInitial, domain.StageFollowup1, domain.StageFollowup2, domain.StageReply}
	out := make([]gin.H, 0, len(stages))
	for _, stage := range stages {
		if o, ok := custom[stage]; ok {
			out = append(out, gin.H{
				"template_type": string(stage),
				"subject":       o.Subject,
				"body":          o.Body,
				"custom":        true,
			})
			continue
		}
		tpl := Builtin(DefaultIndustry, stage)
		out = append(out, gin.H{
			"template_type": string(stage),
			"subject":       tpl.Subject,
			"body":          tpl.Body,
			"custom":        false,
		})
	}
	httpkit.OK(c, gin.H{"templates": out})
}

// Get returns the effective template for one stage.
// GET /api/v1/templates/:type
func (h *Handler) Get(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}

	if o, err := h.repo.Get(c.Request.Context(), stage); err == nil {
		httpkit.OK(c, gin.H{
			"template_type": string(stage),
			"subject":       o.Subject,
			"body":          o.Body,
			"custom":        true,
			"variables":     Variables(o.Subject + " " + o.Body),
		})
		return
	}

	tpl := Builtin(DefaultIndustry, stage)
	httpkit.OK(c, gin.H{
		"template_type": string(stage),
		"subject":       tpl.Subject,
		"body":          tpl.Body,
		"custom":        false,
		"variables":     Variables(tpl.Subject + " " + tpl.Body),
	})
}

type upsertTemplateRequest struct {
	Subject string `json:"subject" validate:"required,max=300"`
	Body    string `json:"body" validate:"required"`
}

// Upsert stores an override for a stage.
// PUT /api/v1/templates/:type
func (h *Handler) Upsert(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	var req upsertTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	tpl := CustomTemplate{Stage: stage, Subject: req.Subject, Body: req.Body}
	if err := h.repo.Upsert(c.Request.Context(), tpl); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"template_type": string(stage),
		"subject":       tpl.Subject,
		"body":          tpl.Body,
		"custom":        true,
	})
}

// Delete removes an override, restoring the built-in template.
// DELETE /api/v1/templates/:type
func (h *Handler) Delete(c *gin.Context) {
	stage, ok := stageParam(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), stage); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func stageParam(c *gin.Context) (domain.Stage, bool) {
	stage, err := domain.ParseStage(c.Param("type"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid template type", nil)
		return "", false
	}
	return stage, true
}
