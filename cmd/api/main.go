package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal-booking/internal/auth"
	"portal-booking/internal/cache"
	"portal-booking/internal/catalog"
	"portal-booking/internal/config"
	"portal-booking/internal/handlers"
	"portal-booking/internal/mentorship"
	"portal-booking/internal/middleware"
	"portal-booking/internal/schedule"
	"portal-booking/internal/sessions"
	"portal-booking/internal/telemetry"
	"portal-booking/internal/validation"
	"portal-booking/internal/wizard"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "portal-booking-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.Setup(ctx, telemetry.ConfigFrom(cfg, serviceName))
	if err != nil {
		logger.Error("telemetry setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	cacheStore, err := cache.Open(connectCtx, cfg.RedisURL, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	cancel()
	if err != nil {
		logger.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if _, ok := cacheStore.(*cache.RedisCache); ok {
		logger.Info("redis connected")
	}

	client := mentorship.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger)
	backend := mentorship.NewCachedBackend(client, cacheStore, cfg.CacheTTL(), logger)
	logger.Info("booking backend configured", slog.String("url", cfg.BackendURL))

	pacing := wizard.Pacing{
		Connecting: cfg.PacingConnecting,
		Processing: cfg.PacingProcessing,
		Verified:   cfg.PacingVerified,
	}
	registry := sessions.NewRegistry(cfg.WizardTTL, func() *wizard.Wizard {
		return wizard.New(backend, wizard.Options{
			Location: cfg.Timezone,
			Pacing:   pacing,
			Logger:   logger,
		})
	}, logger)
	go registry.Run(ctx, time.Minute)

	server := &handlers.Server{
		Catalog:  catalog.Default(),
		Sessions: registry,
		Backend:  backend,
		Resolver: schedule.NewResolver(cfg.Timezone),
		Val:      validation.New(),
		Log:      logger,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	submitLimiter := middleware.NewRateLimiter(cfg.RateLimitSubmit, cfg.RateLimitWindow())

	r.Get("/healthz", server.Health)
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Authenticate(auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), "portal-booking"), logger))
		server.Register(api, submitLimiter.Middleware)
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: otelhttp.NewHandler(r, serviceName),
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	if closer, ok := cacheStore.(*cache.RedisCache); ok {
		_ = closer.Close()
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}
}
