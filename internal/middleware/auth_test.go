package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(v Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": GetUserID(c).String(),
			"email":   GetEmail(c),
			"has_jti": GetClaims(c) != nil && GetClaims(c).ID != "",
			"token":   GetToken(c) != "",
		})
	})
	return r
}

func newProvider() *auth.Provider {
	return auth.NewProvider(
		memory.NewUserStore(time.Now),
		auth.NewMemoryRevoker(time.Now),
		auth.NewAttempts(1, 5),
		auth.ProviderConfig{Secret: "middleware-test", TokenTTL: time.Hour},
		zap.NewNop(),
	)
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_RejectsBadHeaders(t *testing.T) {
	r := newRouter(newProvider())

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"no token":     "Bearer ",
		"garbage":      "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_AcceptsValidToken(t *testing.T) {
	p := newProvider()
	s, err := p.Register(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)

	w := do(newRouter(p), "bearer "+s.Token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"`+s.User.ID.String()+`","email":"ada@example.com","has_jti":true,"token":true}`, w.Body.String())
}

func TestAuthMiddleware_RejectsRevokedToken(t *testing.T) {
	ctx := context.Background()
	p := newProvider()
	s, err := p.Register(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, p.Revoke(ctx, s.Claims()))

	w := do(newRouter(p), "Bearer "+s.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), auth.CodeTokenExpired)
}

func TestGetters_WithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, GetUserID(c))
	assert.Empty(t, GetEmail(c))
	assert.Nil(t, GetClaims(c))
}
