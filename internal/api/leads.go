package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/echocrm/internal/apperr"
	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/projection"
	"go.uber.org/zap"
)

// LeadHandler serves the lead table and its writes. Reads come from the
// session's replica; writes go through the session's controller.
type LeadHandler struct {
	logger *zap.Logger
}

func NewLeadHandler(logger *zap.Logger) *LeadHandler {
	return &LeadHandler{logger: logger}
}

// List handles GET /v1/leads?search=&status=&sort=
func (h *LeadHandler) List(c *gin.Context) {
	var p projection.LeadParams
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	c.JSON(http.StatusOK, controllerFrom(c).Leads(p))
}

// Options handles GET /v1/leads/options, the lead picker of the reminder
// form.
func (h *LeadHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, controllerFrom(c).LeadOptions())
}

// Create handles POST /v1/leads.
func (h *LeadHandler) Create(c *gin.Context) {
	h.submit(c, "", http.StatusCreated)
}

// Update handles PUT /v1/leads/:id.
func (h *LeadHandler) Update(c *gin.Context) {
	h.submit(c, c.Param("id"), http.StatusOK)
}

func (h *LeadHandler) submit(c *gin.Context, id string, status int) {
	var form forms.LeadForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badBody(c)
		return
	}
	newID, flash, err := controllerFrom(c).SubmitLead(c.Request.Context(), id, form)
	if errors.Is(err, apperr.ErrRefresh) {
		// Stored; only the list is behind. Answer as a write so the client
		// does not submit again.
		h.logger.Warn("lead saved but not reloaded", zap.String("lead_id", newID), zap.Error(err))
		c.JSON(status, gin.H{"id": newID, "flash": flash, "stale": true})
		return
	}
	if err != nil {
		h.logger.Debug("lead submit failed", zap.String("lead_id", id), zap.Error(err))
		respondFlash(c, err, flash)
		return
	}
	c.JSON(status, gin.H{"id": newID, "flash": flash})
}

// Delete handles DELETE /v1/leads/:id.
func (h *LeadHandler) Delete(c *gin.Context) {
	flash, err := controllerFrom(c).DeleteLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFlash(c, err, flash)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flash": flash})
}

// LogContact handles POST /v1/leads/:id/contact.
func (h *LeadHandler) LogContact(c *gin.Context) {
	flash, err := controllerFrom(c).LogContact(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFlash(c, err, flash)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flash": flash})
}
