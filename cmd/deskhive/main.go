package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/deskhive/deskhive/internal/app"
	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/dashboard"
	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/identity"
	"github.com/deskhive/deskhive/internal/notifications"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/orgs"
	"github.com/deskhive/deskhive/internal/platform/cache"
	"github.com/deskhive/deskhive/internal/platform/db"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
	"github.com/deskhive/deskhive/internal/tickets"
	"github.com/deskhive/deskhive/internal/users"
	"github.com/deskhive/deskhive/internal/view"
	"github.com/deskhive/deskhive/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret, cfg.IsProduction())
	metrics := observability.NewMetrics()

	identityClient := identity.NewClient(cfg.IdentityURL, cfg.IdentityAnonKey, cfg.IdentityTimeout, logger)
	identityAdmin := identity.NewAdmin(cfg.IdentityURL, cfg.IdentityServiceKey, cfg.IdentityTimeout)

	profileRepo := profiles.NewRepository(pool)
	profileService := profiles.NewService(profileRepo)

	accessGuard := guard.Guard{Profiles: profileService, Logger: logger, Metrics: metrics}

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	ticketRepo := tickets.NewRepository(pool)
	ticketService := tickets.NewService(ticketRepo, profileService, jobClient, logger)
	ticketHandler := tickets.NewHandler(logger, ticketService, idempotencyStore)

	orgRepo := orgs.NewRepository(pool)
	orgService := orgs.NewService(orgRepo, auditLogger, logger)
	orgHandler := orgs.NewHandler(logger, orgService)

	userService := users.NewService(identityAdmin, profileService, auditLogger, logger)
	userHandler := users.NewHandler(logger, userService)

	notificationRepo := notifications.NewRepository(pool)
	notificationService := notifications.NewService(notificationRepo)
	notificationHandler := notifications.NewHandler(logger, notificationService)

	loginThrottle := auth.NewThrottle(redisClient, cfg.LoginAttemptLimit, cfg.LoginAttemptWindow)
	authService := auth.NewService(identityClient, loginThrottle, logger)
	authHandler := auth.NewHandler(logger, authService, profileService, templates, csrfManager, cfg.IsProduction())

	dashboardHandler := dashboard.NewHandler(logger, templates, csrfManager,
		ticketService, notificationService, userService, orgService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Templates:   templates,
		Resolver:    identityClient,
		CSRFManager: csrfManager,
		Guard:       accessGuard,

		AuthHandler:         authHandler,
		DashboardHandler:    dashboardHandler,
		TicketHandler:       ticketHandler,
		OrgHandler:          orgHandler,
		UserHandler:         userHandler,
		NotificationHandler: notificationHandler,
		JobHandler:          jobHandler,

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
