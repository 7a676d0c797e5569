package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ndmitriev/auth-service/internal/core/port"
	"github.com/ndmitriev/auth-service/internal/infra/config"
	"github.com/ndmitriev/auth-service/internal/infra/database"
	"github.com/ndmitriev/auth-service/internal/infra/logger"
	"github.com/ndmitriev/auth-service/internal/infra/mailer"
	redisinfra "github.com/ndmitriev/auth-service/internal/infra/redis"
	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/infra/telemetry"
	postgresrepo "github.com/ndmitriev/auth-service/internal/repository/postgres"
	redisrepo "github.com/ndmitriev/auth-service/internal/repository/redis"
	"github.com/ndmitriev/auth-service/internal/transport/http/middleware"
	"github.com/ndmitriev/auth-service/internal/transport/http/routes"
	"github.com/ndmitriev/auth-service/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	tracer *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if err := security.ConfigureBcrypt(cfg.Bcrypt.Cost); err != nil {
		return nil, fmt.Errorf("configure bcrypt: %w", err)
	}

	issuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.App.Name, cfg.JWT.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "auth:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	notifier, err := buildNotifier(cfg.Mailer, log)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init mailer: %w", err)
	}

	passwordValidator := security.DefaultPasswordValidator()

	authService, err := usecase.NewAuthService(repos.Accounts, issuer)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	registrationService := usecase.NewRegistrationService(repos.Accounts, passwordValidator)
	passwordResetService := usecase.NewPasswordResetService(repos.Accounts, notifier, passwordValidator, cfg.App.FrontendURL, log)
	federationService := usecase.NewFederatedIdentityService(repos.Accounts, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		TokenIssuer: issuer,
		Database:    pool,
		Cache:       redisClient,
		Metrics:     metrics,
		Services: routes.ServiceSet{
			Auth:          authService,
			Registration:  registrationService,
			PasswordReset: passwordResetService,
			Federation:    federationService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		tracer: tracer,
	}, nil
}

func buildNotifier(cfg config.MailerSettings, log *zap.Logger) (port.Notifier, error) {
	switch cfg.Driver {
	case "resend":
		return mailer.NewResendMailer(cfg.ResendAPIKey, cfg.From)
	case "log", "":
		return mailer.NewLoggingMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown mailer driver %q", cfg.Driver)
	}
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = a.tracer.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
