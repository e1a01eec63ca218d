package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/echocrm/internal/api"
	"github.com/lalith-99/echocrm/internal/app"
	"github.com/lalith-99/echocrm/internal/auth"
	"github.com/lalith-99/echocrm/internal/config"
	"github.com/lalith-99/echocrm/internal/db"
	"github.com/lalith-99/echocrm/internal/forms"
	"github.com/lalith-99/echocrm/internal/kv"
	"github.com/lalith-99/echocrm/internal/observ"
	"github.com/lalith-99/echocrm/internal/prefs"
	"github.com/lalith-99/echocrm/internal/repository"
	"github.com/lalith-99/echocrm/internal/repository/memory"
	"github.com/lalith-99/echocrm/internal/repository/postgres"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// backend is everything that differs between STORE_BACKEND values.
type backend struct {
	users     repository.UserRepository
	leads     repository.LeadRepository
	reminders repository.ReminderRepository
	revoker   auth.Revoker
	prefs     prefs.Store
	health    func(ctx context.Context) error
	close     func()
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 2. Stores
	// ---------------------------------------------------------------
	var be *backend
	switch cfg.StoreBackend {
	case config.BackendMemory:
		be = memoryBackend()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		be, err = postgresBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}
	defer be.close()

	// ---------------------------------------------------------------
	// 3. Auth, sessions, handlers
	// ---------------------------------------------------------------
	validator := forms.New(cfg.MinPassword)
	provider := auth.NewProvider(be.users, be.revoker,
		// Five failed sign-ins per email, then one more try a minute.
		auth.NewAttempts(1.0/60, 5),
		auth.ProviderConfig{
			Secret:      cfg.JWTSecret,
			TokenTTL:    cfg.TokenTTL,
			MinPassword: cfg.MinPassword,
		}, logger)

	sessions := api.NewSessions(provider, app.Deps{
		Leads:     be.leads,
		Reminders: be.reminders,
		Forms:     validator,
		Prefs:     be.prefs,
		Location:  cfg.Location,
	}, logger)

	// ---------------------------------------------------------------
	// 4. HTTP server
	// ---------------------------------------------------------------
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Recovery(), observ.Metrics())

	// Public: load balancers and Prometheus must reach these without a token.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := be.health(c.Request.Context()); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	srv.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.Register(srv.Group("/v1"), provider, api.Handlers{
		Auth:      api.NewAuthHandler(provider, validator, sessions, logger),
		Users:     api.NewUserHandler(be.users, logger),
		Leads:     api.NewLeadHandler(logger),
		Reminders: api.NewReminderHandler(logger),
		Workspace: api.NewWorkspaceHandler(logger),
		Sessions:  sessions,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting EchoCRM",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreBackend),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Int("open_sessions", sessions.Len()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func memoryBackend() *backend {
	return &backend{
		users:     memory.NewUserStore(time.Now),
		leads:     memory.NewLeadStore(time.Now),
		reminders: memory.NewReminderStore(time.Now),
		revoker:   auth.NewMemoryRevoker(time.Now),
		prefs:     prefs.NewMemoryStore(),
		health:    func(context.Context) error { return nil },
		close:     func() {},
	}
}

// postgresBackend connects Postgres for the collections and Redis for
// revocations and preferences.
func postgresBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	cache, err := kv.New(ctx, cfg.RedisURL, logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	pool := database.Pool()
	return &backend{
		users:     postgres.NewUserStore(pool),
		leads:     postgres.NewLeadStore(pool),
		reminders: postgres.NewReminderStore(pool),
		revoker:   auth.NewRedisRevoker(cache.Redis()),
		prefs:     prefs.NewRedisStore(cache.Redis()),
		health: func(ctx context.Context) error {
			if err := database.Health(ctx); err != nil {
				return err
			}
			return cache.Health(ctx)
		},
		close: func() {
			cache.Close()
			database.Close()
		},
	}, nil
}
