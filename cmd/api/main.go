// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/househelp-api/internal/admin"
	"github.com/carterperez-dev/househelp-api/internal/auth"
	"github.com/carterperez-dev/househelp-api/internal/config"
	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/gate"
	"github.com/carterperez-dev/househelp-api/internal/health"
	"github.com/carterperez-dev/househelp-api/internal/identity"
	"github.com/carterperez-dev/househelp-api/internal/kv"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
	"github.com/carterperez-dev/househelp-api/internal/notify"
	"github.com/carterperez-dev/househelp-api/internal/otp"
	"github.com/carterperez-dev/househelp-api/internal/ratelimit"
	"github.com/carterperez-dev/househelp-api/internal/server"
	"github.com/carterperez-dev/househelp-api/migrations"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		applied, err := db.Migrate(ctx, migrations.Files)
		if err != nil {
			return err
		}
		logger.Info("schema migrations applied", "count", applied)
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	var (
		store     kv.Store
		storeSize func() int
	)
	switch cfg.RateLimit.Store {
	case "redis":
		store = kv.NewRedisStore(redis.Client, cfg.Redis.KeyPrefix)
	default:
		mem := kv.NewMemoryStore(kv.WithMaxEntries(cfg.RateLimit.MaxEntries))
		store = mem
		storeSize = mem.Len
	}
	logger.Info("short-lived state store ready", "store", cfg.RateLimit.Store)

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		return err
	}
	logger.Info("token manager initialized",
		"algorithm", "HS256",
		"lifetime", tokens.Lifetime(),
	)

	var smtpSender *notify.SMTPSender
	if cfg.Notify.Driver == "smtp" {
		smtpSender = notify.NewSMTPSender(cfg.Notify.SMTP)
	}
	notifier := newNotifier(cfg.Notify, smtpSender, cfg.IsDevelopment(), logger)

	identityRepo := identity.NewRepository(db.DB)
	identitySvc := identity.NewService(identityRepo, identity.NewPhoneNormalizer(cfg.Auth.PhoneRegion))
	identityHandler := identity.NewHandler(identitySvc)

	codes := otp.NewService(otp.NewRepository(db.DB), notifier, cfg.App.PublicURL, logger)

	limiter := ratelimit.New(store)
	denylist := auth.NewDenylist(store)
	csrf := middleware.NewCSRF(store, cfg.Auth.CSRFTokenTTL, cfg.IsProduction())

	authSvc := auth.NewService(auth.ServiceConfig{
		Tokens:       tokens,
		Identities:   identitySvc,
		Codes:        codes,
		Limiter:      limiter,
		Denylist:     denylist,
		CodeLimit:    cfg.RateLimit.OTP,
		AttemptLimit: cfg.RateLimit.Attempt,
		AdminAllowed: cfg.Auth.AdminAllowed,
		Logger:       logger,
	})
	authHandler := auth.NewHandler(authSvc, csrf, auth.CookieConfig{
		Name:      cfg.Auth.CookieName,
		AdminName: cfg.Auth.AdminCookieName,
		Domain:    cfg.Auth.CookieDomain,
		Secure:    cfg.IsProduction(),
	})

	deps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis, Optional: cfg.RateLimit.Store != "redis"},
	}
	if smtpSender != nil {
		deps = append(deps, health.Dependency{Name: "smtp", Checker: smtpSender, Optional: true})
	}
	healthHandler := health.NewHandler(deps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		StoreSize:  storeSize,
		Identities: identitySvc,
		Codes:      codes,
	})

	pageGate := gate.New(tokens, gate.Config{
		SessionCookie: cfg.Auth.CookieName,
		AdminCookie:   cfg.Auth.AdminCookieName,
		AdminAllowed:  cfg.Auth.AdminAllowed,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	globalLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerMinute(
			cfg.RateLimit.Requests,
			cfg.RateLimit.Burst,
		),
		FailOpen: true,
		Skip:     middleware.SkipPaths("/healthz", "/livez", "/readyz"),
	})
	defer globalLimiter.Close()

	profileLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerHour(cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: true,
	})
	defer profileLimiter.Close()

	router.Use(globalLimiter.Handler)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.MaxBody(cfg.Server.MaxBodyBytes))

	srv.Wrap(pageGate.Handler)

	healthHandler.RegisterRoutes(router)

	authenticator := middleware.NewAuthenticator(
		tokens,
		cfg.Auth.CookieName,
		cfg.Auth.AdminCookieName,
	)
	rejectRevoked := middleware.RejectRevoked(denylist)
	rejectSuspended := middleware.RejectSuspended(identitySvc)
	adminOnly := middleware.RequireAdmin(cfg.Auth.AdminAllowed)

	window := func(name string, l config.WindowLimit) func(next http.Handler) http.Handler {
		return middleware.FixedWindow(limiter, name, l.Max, l.Window)
	}

	router.Route("/v1", func(r chi.Router) {
		r.Get("/gate", pageGate.Check)

		authHandler.RegisterRoutes(r, auth.Middlewares{
			Authenticate:  authenticator.Require,
			RejectRevoked: rejectRevoked,
			CSRF:          csrf.Handler,
			LoginLimit:    window("login", cfg.RateLimit.Login),
			RegisterLimit: window("register", cfg.RateLimit.Register),
			SendLimit:     window("code-send", cfg.RateLimit.CodeSend),
			VerifyLimit:   window("code-verify", cfg.RateLimit.CodeVerify),
		})

		identityHandler.RegisterRoutes(r,
			authenticator.Require,
			rejectRevoked,
			rejectSuspended,
			profileLimiter.Handler,
			csrf.Handler,
		)
		identityHandler.RegisterAdminRoutes(r,
			authenticator.Require,
			rejectRevoked,
			adminOnly,
			rejectSuspended,
			csrf.Handler,
		)
		adminHandler.RegisterRoutes(r, authenticator.Require, rejectRevoked, adminOnly, rejectSuspended)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		healthHandler.SetReady(false)
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// newNotifier routes email through SMTP and SMS through the HTTP gateway.
// A nil sender, or an unset gateway URL, writes messages to the log, with
// bodies visible only in development.
func newNotifier(
	cfg config.NotifyConfig,
	smtpSender *notify.SMTPSender,
	development bool,
	logger *slog.Logger,
) notify.Notifier {
	logSink := notify.NewLogNotifier(logger, development)

	var email, sms notify.Notifier = logSink, logSink
	if smtpSender != nil {
		email = smtpSender
	}
	if cfg.SMS.URL != "" {
		sms = notify.NewSMSGateway(cfg.SMS)
	}

	return notify.NewDispatcher(email, sms)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
