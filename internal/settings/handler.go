package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/httpkit"
)

// Handler exposes the runtime settings.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.Get)
	rg.PUT("/settings", h.Update)
}

// Get returns the effective settings snapshot.
// GET /api/v1/settings
func (h *Handler) Get(c *gin.Context) {
	httpkit.OK(c, h.svc.Snapshot(c.Request.Context()))
}

// Update applies a partial settings update and returns the new snapshot.
// PUT /api/v1/settings
func (h *Handler) Update(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if len(req) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "no settings provided", nil)
		return
	}

	if err := h.svc.Update(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, h.svc.Snapshot(c.Request.Context()))
}
