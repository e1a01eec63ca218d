package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/middleware"
	"github.com/lalith-99/echocrm/internal/models"
	"go.uber.org/zap"
)

// AuthHandler handles signup and login, the only public endpoints, plus
// logout.
type AuthHandler struct {
	provider *auth.Provider
	forms    *forms.Validator
	sessions *Sessions
	logger   *zap.Logger
}

func NewAuthHandler(provider *auth.Provider, v *forms.Validator, sessions *Sessions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, forms: v, sessions: sessions, logger: logger}
}

// authResponse is what signup and login return. The client sends the token
// back as "Authorization: Bearer <token>".
type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Signup handles POST /v1/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var form forms.SignUpForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badBody(c)
		return
	}
	if err := h.forms.Validate(form); err != nil {
		respondError(c, err, "signup failed")
		return
	}

	client := auth.NewClient(h.provider)
	if _, err := client.SignUp(c.Request.Context(), form.Email, form.Password); err != nil {
		respondError(c, err, "signup failed")
		return
	}
	h.open(c, client, http.StatusCreated)
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var form forms.SignInForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badBody(c)
		return
	}
	if err := h.forms.Validate(form); err != nil {
		respondError(c, err, "login failed")
		return
	}

	client := auth.NewClient(h.provider)
	if _, err := client.SignIn(c.Request.Context(), form.Email, form.Password); err != nil {
		respondError(c, err, "login failed")
		return
	}
	h.open(c, client, http.StatusOK)
}

func (h *AuthHandler) open(c *gin.Context, client *auth.Client, status int) {
	if _, err := h.sessions.Open(c.Request.Context(), client); err != nil {
		h.logger.Error("failed to open session", zap.Error(err))
		respondError(c, err, "Failed to load your data")
		return
	}
	s := client.Session()
	c.JSON(status, authResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: s.User})
}

// Logout handles POST /v1/auth/logout. The token is revoked and the
// session's replicas are dropped.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if err := h.sessions.Close(c.Request.Context(), claims); err != nil {
		h.logger.Error("failed to sign out", zap.Error(err))
		respondError(c, err, "Failed to sign out")
		return
	}
	c.Status(http.StatusNoContent)
}
