package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorkspaceHandler serves the session-wide endpoints: dashboard, export,
// refresh and preferences.
type WorkspaceHandler struct {
	logger *zap.Logger
}

func NewWorkspaceHandler(logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{logger: logger}
}

// Dashboard handles GET /v1/dashboard.
func (h *WorkspaceHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, controllerFrom(c).Dashboard())
}

// Export handles GET /v1/leads/export. Every lead is written, whatever
// the table is filtered to.
func (h *WorkspaceHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	filename, err := controllerFrom(c).ExportCSV(&buf)
	if err != nil {
		h.logger.Error("failed to export leads", zap.Error(err))
		respondError(c, err, "Failed to export leads")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Refresh handles POST /v1/refresh: both replicas are reloaded from the
// store.
func (h *WorkspaceHandler) Refresh(c *gin.Context) {
	if err := controllerFrom(c).Refresh(c.Request.Context()); err != nil {
		h.logger.Warn("refresh failed", zap.Error(err))
		respondError(c, err, "Failed to load your data")
		return
	}
	c.Status(http.StatusNoContent)
}

type darkModeBody struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// GetDarkMode handles GET /v1/prefs/dark-mode.
func (h *WorkspaceHandler) GetDarkMode(c *gin.Context) {
	on, err := controllerFrom(c).DarkMode(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read preference", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": on})
}

// SetDarkMode handles PUT /v1/prefs/dark-mode.
func (h *WorkspaceHandler) SetDarkMode(c *gin.Context) {
	var body darkModeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badBody(c)
		return
	}
	if err := controllerFrom(c).SetDarkMode(c.Request.Context(), *body.Enabled); err != nil {
		h.logger.Error("failed to save preference", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preference"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *body.Enabled})
}
