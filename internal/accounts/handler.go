package accounts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/validator"
)

// Handler exposes account CRUD and connection testing.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/accounts", h.Create)
	rg.GET("/accounts", h.List)
	rg.GET("/accounts/:id", h.Get)
	rg.PUT("/accounts/:id", h.Update)
	rg.DELETE("/accounts/:id", h.Delete)
	rg.POST("/accounts/:id/test", h.TestConnection)
}

// Create adds a sending account.
// POST /api/v1/accounts
func (h *Handler) Create(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	acc, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, acc)
}

// List returns all accounts without passwords.
// GET /api/v1/accounts
func (h *Handler) List(c *gin.Context) {
	accts, err := h.svc.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"accounts": accts})
}

// Get returns one account.
// GET /api/v1/accounts/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	acc, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, acc)
}

// Update applies a partial update.
// PUT /api/v1/accounts/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	acc, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, acc)
}

// Delete removes an account.
// DELETE /api/v1/accounts/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// TestConnection probes the account's SMTP and IMAP endpoints.
// POST /api/v1/accounts/:id/test
func (h *Handler) TestConnection(c *gin.Context) {
	id, ok := accountID(c)
	if !ok {
		return
	}
	report, err := h.svc.TestConnection(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func accountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		httpkit.Error(c, http.StatusBadRequest, "invalid account ID", nil)
		return 0, false
	}
	return id, true
}
