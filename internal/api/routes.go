package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/echocrm/internal/middleware"
)

// Handlers groups everything Register wires.
type Handlers struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Leads     *LeadHandler
	Reminders *ReminderHandler
	Workspace *WorkspaceHandler
	Sessions  *Sessions
}

// Register mounts the CRM routes on v1. Signup and login are public;
// everything else needs a bearer token, and everything that reads or
// writes leads and reminders also needs the caller's session.
func Register(v1 *gin.RouterGroup, verifier middleware.Verifier, h Handlers) {
	v1.POST("/auth/signup", h.Auth.Signup)
	v1.POST("/auth/login", h.Auth.Login)

	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(verifier))
	authed.POST("/auth/logout", h.Auth.Logout)
	authed.GET("/users/me", h.Users.GetMe)

	crm := authed.Group("")
	crm.Use(h.Sessions.Attach())

	crm.GET("/leads", h.Leads.List)
	crm.POST("/leads", h.Leads.Create)
	crm.GET("/leads/options", h.Leads.Options)
	crm.GET("/leads/export", h.Workspace.Export)
	crm.PUT("/leads/:id", h.Leads.Update)
	crm.DELETE("/leads/:id", h.Leads.Delete)
	crm.POST("/leads/:id/contact", h.Leads.LogContact)

	crm.GET("/reminders", h.Reminders.List)
	crm.POST("/reminders", h.Reminders.Create)
	crm.PUT("/reminders/:id", h.Reminders.Update)
	crm.DELETE("/reminders/:id", h.Reminders.Delete)
	crm.POST("/reminders/:id/complete", h.Reminders.Complete)

	crm.GET("/dashboard", h.Workspace.Dashboard)
	crm.POST("/refresh", h.Workspace.Refresh)
	crm.GET("/prefs/dark-mode", h.Workspace.GetDarkMode)
	crm.PUT("/prefs/dark-mode", h.Workspace.SetDarkMode)
}
