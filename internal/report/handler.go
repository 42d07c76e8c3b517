package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/httpkit"
)

// Handler exposes on-demand report generation.
type Handler struct {
	gen *Generator
}

func NewHandler(gen *Generator) *Handler {
	return &Handler{gen: gen}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/report", h.Get)
	rg.POST("/report/send", h.Send)
}

// Get assembles today's report as JSON.
// GET /api/v1/report
func (h *Handler) Get(c *gin.Context) {
	rep, err := h.gen.Generate(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rep)
}

type sendReportRequest struct {
	To string `json:"to"`
}

// Send emails today's report immediately.
// POST /api/v1/report/send
func (h *Handler) Send(c *gin.Context) {
	var req sendReportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
	}

	if err := h.gen.SendDaily(c.Request.Context(), req.To); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"sent": true})
}
