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
	"portal-booking/internal/bookings"
	"portal-booking/internal/cache"
	"portal-booking/internal/catalog"
	"portal-booking/internal/config"
	"portal-booking/internal/db"
	"portal-booking/internal/middleware"
	"portal-booking/internal/notifications"
	"portal-booking/internal/telemetry"
	"portal-booking/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "portal-booking-devbackend"

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
	defer cancel()

	client, cols, err := db.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(connectCtx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cacheStore, err := cache.Open(connectCtx, cfg.RedisURL, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("redis connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var notifier bookings.Notifier
	if mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox); mailer != nil {
		notifier = mailer
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	} else {
		logger.Info("brevo mailer disabled")
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), "portal-booking")
	val := validation.New()

	repo := bookings.NewRepository(cols.Bookings)
	service := bookings.NewService(repo, catalog.Default(), cfg.Timezone, notifier, cacheStore, cfg.CacheTTL())
	handler := bookings.NewHandler(service, val, logger)
	login := bookings.NewLoginHandler(cfg.AdminUser, cfg.AdminPasswordHash, jwtManager, val, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookLimiter := middleware.NewRateLimiter(cfg.RateLimitBook, cfg.RateLimitWindow())

	r.Route("/api", func(api chi.Router) {
		api.Get("/mentorship/availability", handler.Availability)
		api.With(bookLimiter.Middleware).Post("/mentorship/book", handler.Book)

		api.Route("/admin", func(admin chi.Router) {
			admin.Post("/login", login.AdminLogin)
			admin.Group(func(protected chi.Router) {
				protected.Use(middleware.AdminAuth(cfg.AdminAPIKey, jwtManager))
				protected.Get("/bookings", handler.AdminList)
				protected.Patch("/bookings/{id}/status", handler.AdminUpdateStatus)
				protected.Post("/tokens/user", login.IssueUserToken)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.BackendAddr,
		Handler: otelhttp.NewHandler(r, serviceName),
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.BackendAddr))
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
	if err := otelShutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}
}
