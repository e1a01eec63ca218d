// Package auth is the identity side of the CRM: a stateless Provider that
// registers, authenticates and verifies users, and a stateful Client that
// holds one signed-in session and tells subscribers when it changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/models"
	"github.com/lalith-99/echocrm/internal/observ"
	"github.com/lalith-99/echocrm/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Session is the result of a successful sign-up or sign-in.
type Session struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	claims    *Claims
}

// Claims returns the verified claims behind the session token.
func (s *Session) Claims() *Claims { return s.claims }

type ProviderConfig struct {
	Secret      string
	TokenTTL    time.Duration
	MinPassword int
}

type Provider struct {
	users    repository.UserRepository
	revoker  Revoker
	attempts *Attempts
	cfg      ProviderConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewProvider(users repository.UserRepository, revoker Revoker, attempts *Attempts, cfg ProviderConfig, logger *zap.Logger) *Provider {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.MinPassword <= 0 {
		cfg.MinPassword = forms.DefaultMinPassword
	}
	return &Provider{
		users:    users,
		revoker:  revoker,
		attempts: attempts,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates an account and signs it in. Errors are *apperr.Error
// with one of the Code* values, or a store error.
func (p *Provider) Register(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if !forms.ValidEmail(email) {
		return nil, p.reject("sign_up", CodeInvalidEmail)
	}
	if !forms.LongEnough(password, p.cfg.MinPassword) {
		return nil, p.reject("sign_up", CodeWeakPassword)
	}

	// bcrypt salts per password; DefaultCost keeps a hash around 100ms.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := p.users.Create(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, p.reject("sign_up", CodeEmailInUse)
		}
		p.logger.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("create user: %w", err)
	}

	p.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	observ.RecordAuth("sign_up", "ok")
	return p.issue(*user)
}

// Authenticate checks an email and password. Failures are counted per
// email; once the budget is spent the provider answers too-many-requests
// without looking at the password.
func (p *Provider) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if !forms.ValidEmail(email) {
		return nil, p.reject("sign_in", CodeInvalidEmail)
	}
	if !p.attempts.Allowed(email) {
		return nil, p.reject("sign_in", CodeTooManyRequests)
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		p.logger.Error("failed to find user", zap.Error(err))
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		p.attempts.Fail(email)
		return nil, p.reject("sign_in", CodeUserNotFound)
	}

	// Constant-time comparison.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		p.attempts.Fail(email)
		return nil, p.reject("sign_in", CodeWrongPassword)
	}

	p.attempts.Reset(email)
	observ.RecordAuth("sign_in", "ok")
	return p.issue(*user)
}

// Verify parses a token and checks it has not been revoked.
func (p *Provider) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := ParseToken(token, p.cfg.Secret)
	if err != nil {
		return nil, authError(CodeTokenExpired)
	}
	revoked, err := p.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, authError(CodeTokenExpired)
	}
	return claims, nil
}

// Revoke ends a session early. The token stays on the revocation list
// until it would have expired.
func (p *Provider) Revoke(ctx context.Context, claims *Claims) error {
	until := p.now().Add(p.cfg.TokenTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := p.revoker.Revoke(ctx, claims.ID, until); err != nil {
		return err
	}
	p.logger.Info("session revoked", zap.String("user_id", claims.UserID.String()))
	return nil
}

// Resume rebuilds a session from a bearer token: the token must verify and
// its user must still exist.
func (p *Provider) Resume(ctx context.Context, token string) (*Session, error) {
	claims, err := p.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := p.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, authError(CodeUserNotFound)
	}
	return &Session{User: *user, Token: token, ExpiresAt: claims.ExpiresAt.Time, claims: claims}, nil
}

func (p *Provider) issue(user models.User) (*Session, error) {
	token, claims, err := GenerateToken(user.ID, user.Email, p.cfg.Secret, p.cfg.TokenTTL, p.now())
	if err != nil {
		p.logger.Error("failed to generate token", zap.Error(err))
		return nil, err
	}
	return &Session{
		User:      user,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		claims:    claims,
	}, nil
}

func (p *Provider) reject(action, code string) error {
	observ.RecordAuth(action, code)
	p.logger.Debug("auth rejected", zap.String("action", action), zap.String("code", code))
	return authError(code)
}
