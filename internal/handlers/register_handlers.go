package handlers

import (
	"log/slog"

	"github.com/SscSPs/saas_starter_auth/cmd/docs"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/middleware"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using
// interfaces. A nil limiterStore disables rate limiting.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterStore limiter.Store,
) error {
	registerValidators()

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limits, err := newAuthLimiters(cfg, limiterStore)
	if err != nil {
		return err
	}

	guard := middleware.NewGuard(services.Token, services.Session)
	v1 := r.Group("/api/v1")

	registerAuthRoutes(v1, services.Auth, guard, limits)
	registerOAuthRoutes(v1, services.OAuthProviders, services.Auth, cfg.FrontendBaseURL)

	guarded := v1.Group("", guard.RequireAuth())
	registerSessionRoutes(guarded, services.Session)
	registerProfileRoutes(guarded, services.Profile)

	setupSwaggerRoutes(r, cfg)
	return nil
}

func newAuthLimiters(cfg *config.Config, store limiter.Store) (authLimiters, error) {
	if store == nil {
		slog.Warn("Rate limiting disabled: no limiter store configured")
		return authLimiters{}, nil
	}
	login, err := middleware.NewLimiter(store, cfg.LoginRateLimit)
	if err != nil {
		return authLimiters{}, err
	}
	signup, err := middleware.NewLimiter(store, cfg.SignupRateLimit)
	if err != nil {
		return authLimiters{}, err
	}
	return authLimiters{login: login, signup: signup}, nil
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
