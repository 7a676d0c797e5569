package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ndmitriev/auth-service/internal/infra/config"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/transport/http/handlers"
	"github.com/ndmitriev/auth-service/internal/transport/http/middleware"
	"github.com/ndmitriev/auth-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	Federation    *usecase.FederatedIdentityService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	TokenIssuer *security.TokenIssuer
	Database    DatabaseChecker
	Cache       CacheChecker
	Metrics     *middleware.HTTPMetrics
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	checks := make(map[string]handlers.DependencyChecker, 2)
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registerHandlers := append(buildRateLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts), registrationHandler.Register)
		authGroup.POST("/register", registerHandlers...)

		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		loginHandlers := append(buildRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts), authHandler.Login)
		authGroup.POST("/login", loginHandlers...)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		resetMiddlewares := buildRateLimit(deps, "password_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts)
		authGroup.POST("/forgot-password", append(resetMiddlewares, passwordHandler.ForgotPassword)...)
		authGroup.POST("/reset-password", append(resetMiddlewares, passwordHandler.ResetPassword)...)

		oauthHandler := handlers.NewOAuthHandler(
			deps.Config.Google.ClientID,
			deps.Config.Google.ClientSecret,
			deps.Config.Google.CallbackURL,
			deps.Config.App.FrontendURL,
			deps.Services.Federation,
			deps.TokenIssuer,
			deps.Logger,
		)
		if oauthHandler.Enabled() {
			authGroup.GET("/google", oauthHandler.Start)
			authGroup.GET("/google/callback", oauthHandler.Callback)
		}
	}

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
