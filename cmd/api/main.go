// Package main is the entrypoint for the Snipay API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/snipay/snipay/internal/auth"
	"github.com/snipay/snipay/internal/cache"
	"github.com/snipay/snipay/internal/config"
	"github.com/snipay/snipay/internal/handler"
	"github.com/snipay/snipay/internal/middleware"
	"github.com/snipay/snipay/internal/repository"
	"github.com/snipay/snipay/internal/server"
	"github.com/snipay/snipay/internal/service"
)

// clickFlushInterval is how often buffered click counters move from
// Redis into Postgres.
const clickFlushInterval = 30 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	userService := service.NewUserService(repo, tokens)
	paymentService := service.NewPaymentService(repo, service.PaymentConfig{
		UPIID:        cfg.PaymentUPIID,
		MerchantName: cfg.PaymentMerchantName,
		Amount:       cfg.PaymentAmount,
		Currency:     cfg.PaymentCurrency,
		Expiry:       cfg.PaymentExpiry,
	})
	urlService := service.NewURLService(repo, cacheClient, cfg.BaseURL)
	analyticsService := service.NewAnalyticsService(repo)

	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(userService, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)
	urlHandler := handler.NewURLHandler(urlService, logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, logger)
	redirectHandler := handler.NewRedirectHandler(urlService, logger)

	r := setupRouter(routerDeps{
		base:      h,
		health:    healthHandler,
		auth:      authHandler,
		payment:   paymentHandler,
		url:       urlHandler,
		analytics: analyticsHandler,
		redirect:  redirectHandler,
		tokens:    tokens,
		cache:     cacheClient,
		cfg:       cfg,
		logger:    logger,
	})

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Background click flusher. Registered first so it is the last
	// component stopped, after the HTTP server has drained.
	flusherCtx, stopFlusher := context.WithCancel(ctx)
	flusherDone := make(chan struct{})
	go runClickFlusher(flusherCtx, urlService, logger, flusherDone)
	srv.OnShutdown("click flusher", func(ctx context.Context) error {
		stopFlusher()
		select {
		case <-flusherDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// runClickFlusher periodically drains buffered click counters into the
// database. A final flush runs on shutdown so buffered counts survive
// restarts.
func runClickFlusher(ctx context.Context, urls *service.URLService, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(clickFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := urls.FlushClicks(ctx); err != nil {
				logger.Error("click flush failed", "error", err)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := urls.FlushClicks(flushCtx); err != nil {
				logger.Error("final click flush failed", "error", err)
			}
			cancel()
			return
		}
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerDeps struct {
	base      *handler.Handler
	health    *handler.HealthHandler
	auth      *handler.AuthHandler
	payment   *handler.PaymentHandler
	url       *handler.URLHandler
	analytics *handler.AnalyticsHandler
	redirect  *handler.RedirectHandler
	tokens    *auth.TokenIssuer
	cache     *cache.Cache
	cfg       *config.Config
	logger    *slog.Logger
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Recoverer(deps.logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment: deps.cfg.IsDevelopment(),
	}))
	r.Use(middleware.MaxBodySize(deps.cfg.MaxRequestBodySize))

	if origins := deps.cfg.GetCORSAllowedOrigins(); len(origins) > 0 {
		corsCfg := middleware.DefaultCORSConfig()
		corsCfg.AllowedOrigins = origins
		r.Use(middleware.CORS(corsCfg))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", deps.health.Healthz)
	r.Get("/readyz", deps.health.Readyz)

	// Root info endpoint
	r.Get("/", deps.base.Hello)

	authCfg := middleware.AuthConfig{
		Logger: deps.logger,
		Tokens: deps.tokens,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:          deps.logger,
		Cache:           deps.cache,
		APIEnabled:      deps.cfg.RateLimitAPIEnabled,
		UserRPM:         deps.cfg.RateLimitUserRPM,
		UserBurst:       deps.cfg.RateLimitUserBurst,
		RedirectEnabled: deps.cfg.RateLimitRedirectEnabled,
		RedirectRPS:     deps.cfg.RateLimitRedirectRPS,
		RedirectBurst:   deps.cfg.RateLimitRedirectBurst,
	}

	r.Route("/api", func(r chi.Router) {
		// Signup and login are the only unauthenticated API routes
		r.Post("/auth/signup", deps.auth.Signup)
		r.Post("/auth/login", deps.auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitUser(rateLimitCfg))

			r.Route("/payment", func(r chi.Router) {
				r.Post("/generate-qr", deps.payment.GenerateQR)
				r.Post("/confirm", deps.payment.Confirm)
			})

			r.Route("/url", func(r chi.Router) {
				r.Post("/shorten", deps.url.Shorten)
				r.Get("/user", deps.url.ListMine)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/user", deps.analytics.UserSeries)
				r.Get("/{shortCode}", deps.analytics.URLSeries)
			})
		})
	})

	// Redirect handler with IP-based rate limiting (no auth required)
	r.With(middleware.RateLimitIP(rateLimitCfg)).Get("/{shortCode}", deps.redirect.Redirect)

	r.NotFound(deps.base.NotFound)
	r.MethodNotAllowed(deps.base.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
