// Package handler exposes the campaign control surface: lifecycle commands,
// lead management, the audit log, and aggregate stats.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"outreach_backend/internal/campaign/domain"
	"outreach_backend/internal/campaign/repository"
	"outreach_backend/internal/campaign/service"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

type Handler struct {
	engine *service.Engine
	repo   repository.Repository
	val    *validator.Validator
}

func New(engine *service.Engine, repo repository.Repository, val *validator.Validator) *Handler {
	return &Handler{engine: engine, repo: repo, val: val}
}

// RegisterRoutes mounts the campaign endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/campaign/start", h.Start)
	rg.POST("/campaign/pause", h.Pause)
	rg.POST("/campaign/stop", h.Stop)
	rg.GET("/campaign/status", h.Status)

	rg.POST("/leads", h.CreateLead)
	rg.POST("/leads/bulk", h.CreateLeads)
	rg.GET("/leads", h.ListLeads)
	rg.GET("/leads/:id", h.GetLead)
	rg.POST("/leads/:id/reset", h.ResetLead)
	rg.DELETE("/leads/:id", h.DeleteLead)

	rg.GET("/logs", h.ListLogs)
	rg.GET("/stats", h.Stats)
}

// Start transitions the campaign to RUNNING.
// POST /api/v1/campaign/start
func (h *Handler) Start(c *gin.Context) {
	if err := h.engine.Start(c.Request.Context()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": string(domain.CampaignRunning)})
}

// Pause transitions the campaign to PAUSED.
// POST /api/v1/campaign/pause
func (h *Handler) Pause(c *gin.Context) {
	if err := h.engine.Pause(c.Request.Context()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": string(domain.CampaignPaused)})
}

// Stop transitions the campaign to STOPPED.
// POST /api/v1/campaign/stop
func (h *Handler) Stop(c *gin.Context) {
	if err := h.engine.Stop(c.Request.Context()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": string(domain.CampaignStopped)})
}

// Status returns the campaign aggregate.
// GET /api/v1/campaign/status
func (h *Handler) Status(c *gin.Context) {
	campaign, err := h.engine.Status(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"status":          string(campaign.Status),
		"sent_today":      campaign.SentToday,
		"last_reset_date": campaign.LastResetDate,
	})
}

type createLeadRequest struct {
	Email string            `json:"email" validate:"required,email"`
	Data  map[string]string `json:"data"`
}

// CreateLead registers one lead.
// POST /api/v1/leads
func (h *Handler) CreateLead(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead := domain.Lead{Email: req.Email, Data: req.Data}
	if err := h.repo.CreateLead(c.Request.Context(), &lead); httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, leadResponse(&lead))
}

type createLeadsRequest struct {
	Leads []createLeadRequest `json:"leads" validate:"required,min=1,dive"`
}

// CreateLeads registers a batch, skipping duplicates.
// POST /api/v1/leads/bulk
func (h *Handler) CreateLeads(c *gin.Context) {
	var req createLeadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leads := make([]domain.Lead, len(req.Leads))
	for i, l := range req.Leads {
		leads[i] = domain.Lead{Email: l.Email, Data: l.Data}
	}

	inserted, err := h.repo.CreateLeads(c.Request.Context(), leads)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{
		"inserted": inserted,
		"skipped":  len(leads) - inserted,
	})
}

// ListLeads lists leads, optionally filtered by status.
// GET /api/v1/leads?status=&limit=&offset=
func (h *Handler) ListLeads(c *gin.Context) {
	var filter repository.LeadFilter

	if raw := c.Query("status"); raw != "" {
		status, err := domain.ParseLeadStatus(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid status filter", nil)
			return
		}
		filter.Status = &status
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	leads, err := h.repo.ListLeads(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]gin.H, len(leads))
	for i := range leads {
		out[i] = leadResponse(&leads[i])
	}
	httpkit.OK(c, gin.H{"leads": out, "count": len(out)})
}

// GetLead returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) GetLead(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	lead, err := h.repo.GetLead(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leadResponse(lead))
}

// ResetLead returns a lead to PENDING for a fresh sequence.
// POST /api/v1/leads/:id/reset
func (h *Handler) ResetLead(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	if err := h.repo.ResetLead(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"status": string(domain.LeadPending)})
}

// DeleteLead removes a lead.
// DELETE /api/v1/leads/:id
func (h *Handler) DeleteLead(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteLead(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListLogs returns the newest audit entries.
// GET /api/v1/logs?limit=
func (h *Handler) ListLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.repo.ListLogs(c.Request.Context(), limit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]gin.H, len(logs))
	for i, entry := range logs {
		out[i] = gin.H{
			"id":        entry.ID,
			"email":     entry.Email,
			"event":     entry.Event,
			"timestamp": entry.CreatedAt,
		}
	}
	httpkit.OK(c, gin.H{"logs": out})
}

// Stats returns lead counts and campaign progress.
// GET /api/v1/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) leadID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return 0, false
	}
	return id, true
}

func leadResponse(lead *domain.Lead) gin.H {
	return gin.H{
		"id":                  lead.ID,
		"email":               lead.Email,
		"data":                lead.Data,
		"status":              string(lead.Status),
		"followup_count":      lead.FollowupCount,
		"last_sent_at":        lead.LastSentAt,
		"assigned_account_id": lead.AssignedAccountID,
		"created_at":          lead.CreatedAt,
	}
}
