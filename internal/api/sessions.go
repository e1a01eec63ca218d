package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/echocrm/internal/app"
	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/middleware"
	"go.uber.org/zap"
)

const contextKeyController = "controller"

type session struct {
	ctrl      *app.Controller
	expiresAt time.Time
}

// Sessions keeps one page controller per signed-in token, keyed by the
// token's jti. A token that verifies but has no entry (a server restart, or
// a second replica behind the load balancer) gets a fresh controller whose
// replicas are loaded from the store.
type Sessions struct {
	provider *auth.Provider
	deps     app.Deps
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	byID map[string]session
}

func NewSessions(provider *auth.Provider, deps app.Deps, logger *zap.Logger) *Sessions {
	return &Sessions{
		provider: provider,
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		byID:     make(map[string]session),
	}
}

// Open builds and loads the controller for a client that has just signed
// in, and registers it under the session's jti.
func (s *Sessions) Open(ctx context.Context, client *auth.Client) (*app.Controller, error) {
	sess := client.Session()
	if sess == nil || sess.Claims() == nil {
		return nil, app.ErrSignedOut
	}
	ctrl, err := app.New(client, s.deps, s.logger)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Init(ctx); err != nil {
		ctrl.Close()
		return nil, err
	}
	return s.store(sess.Claims().ID, ctrl, sess.ExpiresAt), nil
}

// Get returns the controller for a verified token, resuming it if needed.
func (s *Sessions) Get(ctx context.Context, claims *auth.Claims, token string) (*app.Controller, error) {
	s.mu.Lock()
	entry, ok := s.byID[claims.ID]
	s.mu.Unlock()
	if ok {
		return entry.ctrl, nil
	}

	sess, err := s.provider.Resume(ctx, token)
	if err != nil {
		return nil, err
	}
	client := auth.NewClient(s.provider)
	client.Resume(sess)
	s.logger.Debug("resuming session", zap.String("user_id", sess.User.ID.String()))
	return s.Open(ctx, client)
}

// Close signs the session out and forgets it. A token with no live
// controller is still revoked.
func (s *Sessions) Close(ctx context.Context, claims *auth.Claims) error {
	s.mu.Lock()
	entry, ok := s.byID[claims.ID]
	delete(s.byID, claims.ID)
	s.mu.Unlock()
	if !ok {
		return s.provider.Revoke(ctx, claims)
	}
	defer entry.ctrl.Close()
	return entry.ctrl.SignOut(ctx)
}

// Len is the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// store registers ctrl unless another request got there first, in which
// case the existing controller wins. Expired entries are dropped on the way.
func (s *Sessions) store(jti string, ctrl *app.Controller, expiresAt time.Time) *app.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, entry := range s.byID {
		if now.After(entry.expiresAt) {
			entry.ctrl.Close()
			delete(s.byID, id)
		}
	}

	if existing, ok := s.byID[jti]; ok {
		ctrl.Close()
		return existing.ctrl
	}
	s.byID[jti] = session{ctrl: ctrl, expiresAt: expiresAt}
	return ctrl
}

// Attach resolves the caller's controller. It runs after
// middleware.AuthMiddleware.
func (s *Sessions) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not signed in"})
			return
		}
		ctrl, err := s.Get(c.Request.Context(), claims, middleware.GetToken(c))
		if err != nil {
			s.logger.Warn("failed to open session", zap.Error(err))
			abortWithError(c, fmt.Errorf("open session: %w", err), "Failed to load your data")
			return
		}
		c.Set(contextKeyController, ctrl)
		c.Next()
	}
}

func controllerFrom(c *gin.Context) *app.Controller {
	val, _ := c.Get(contextKeyController)
	ctrl, _ := val.(*app.Controller)
	return ctrl
}
