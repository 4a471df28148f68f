package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	portsrepo "github.com/SscSPs/saas_starter_auth/internal/core/ports/repositories"
	"github.com/SscSPs/saas_starter_auth/internal/core/services"
	"github.com/SscSPs/saas_starter_auth/internal/handlers"
	"github.com/SscSPs/saas_starter_auth/internal/middleware"
	"github.com/SscSPs/saas_starter_auth/internal/platform/cache"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/SscSPs/saas_starter_auth/internal/platform/mail"
	"github.com/SscSPs/saas_starter_auth/internal/platform/oauth"
	"github.com/SscSPs/saas_starter_auth/internal/repositories/database/pgsql"
	"github.com/SscSPs/saas_starter_auth/internal/repositories/memory"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
	"github.com/SscSPs/saas_starter_auth/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermemory "github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const memoryCacheMaxEntries = 10000

// @title SaaS Starter Auth API
// @version 1.0
// @description Authentication and session lifecycle service.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeRepos, err := setupRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepos()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		logger.Info("Connected to redis")
	}

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, logger)
	defer posthogClient.Close()

	providers, err := oauth.NewRegistry(cfg)
	if err != nil {
		return err
	}

	mailer, err := mail.New(cfg)
	if err != nil {
		return err
	}

	container, err := services.NewServiceContainer(cfg, repos, services.Dependencies{
		SessionCache:   sessionCache(cfg, redisClient, logger),
		Mailer:         mailer,
		Tracker:        middleware.NewPosthogTracker(posthogClient),
		OAuthProviders: providers,
	})
	if err != nil {
		return err
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.MetricsMiddleware(),
		middleware.ClientHints(),
		cors.New(corsConfig(cfg)),
		middleware.PosthogMiddleware(posthogClient),
	)

	if err := handlers.RegisterRoutes(r, cfg, container, limiterStore(redisClient)); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage")
		return memory.NewRepositoryProvider(), func() {}, nil
	}

	logger.Info("Running database migrations...")
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
}

func sessionCache(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) portsrepo.SessionCache {
	switch cfg.SessionCache {
	case config.SessionCacheRedis:
		logger.Info("Session liveness cache: redis", slog.Duration("ttl", cfg.SessionCacheTTL))
		return cache.NewRedisSessionCache(redisClient, cfg.SessionCacheTTL)
	case config.SessionCacheMemory:
		logger.Info("Session liveness cache: memory", slog.Duration("ttl", cfg.SessionCacheTTL))
		return cache.NewMemorySessionCache(cfg.SessionCacheTTL, memoryCacheMaxEntries)
	default:
		return nil
	}
}

// limiterStore shares rate limit counters through redis when it is
// configured, so every replica enforces the same budget.
func limiterStore(redisClient *redis.Client) limiter.Store {
	if redisClient != nil {
		store, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "saas_auth:limiter"})
		if err == nil {
			return store
		}
		slog.Warn("Falling back to in-memory rate limiting", slog.String("error", err.Error()))
	}
	return limitermemory.NewStore()
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = cfg.CORSAllowedOrigins
	c.AllowCredentials = true
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middleware.SessionIDHeader, middleware.RequestIDHeader)
	c.ExposeHeaders = []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
	return c
}
