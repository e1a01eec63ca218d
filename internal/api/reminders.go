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

type ReminderHandler struct {
	logger *zap.Logger
}

func NewReminderHandler(logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{logger: logger}
}

// List handles GET /v1/reminders?search=&filter=&sort=
func (h *ReminderHandler) List(c *gin.Context) {
	var p projection.ReminderParams
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	c.JSON(http.StatusOK, controllerFrom(c).Reminders(p))
}

// Create handles POST /v1/reminders.
func (h *ReminderHandler) Create(c *gin.Context) {
	h.submit(c, "", http.StatusCreated)
}

// Update handles PUT /v1/reminders/:id.
func (h *ReminderHandler) Update(c *gin.Context) {
	h.submit(c, c.Param("id"), http.StatusOK)
}

func (h *ReminderHandler) submit(c *gin.Context, id string, status int) {
	var form forms.ReminderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badBody(c)
		return
	}
	newID, flash, err := controllerFrom(c).SubmitReminder(c.Request.Context(), id, form)
	if errors.Is(err, apperr.ErrRefresh) {
		// Stored; only the list is behind. Answer as a write so the client
		// does not submit again.
		h.logger.Warn("reminder saved but not reloaded", zap.String("reminder_id", newID), zap.Error(err))
		c.JSON(status, gin.H{"id": newID, "flash": flash, "stale": true})
		return
	}
	if err != nil {
		h.logger.Debug("reminder submit failed", zap.String("reminder_id", id), zap.Error(err))
		respondFlash(c, err, flash)
		return
	}
	c.JSON(status, gin.H{"id": newID, "flash": flash})
}

// Complete handles POST /v1/reminders/:id/complete.
func (h *ReminderHandler) Complete(c *gin.Context) {
	flash, err := controllerFrom(c).CompleteReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFlash(c, err, flash)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flash": flash})
}

// Delete handles DELETE /v1/reminders/:id.
func (h *ReminderHandler) Delete(c *gin.Context) {
	flash, err := controllerFrom(c).DeleteReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondFlash(c, err, flash)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flash": flash})
}
