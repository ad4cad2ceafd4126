package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/deskhive/deskhive/internal/app"
	jobmetrics "github.com/deskhive/deskhive/internal/jobs"
	"github.com/deskhive/deskhive/internal/notifications"
	"github.com/deskhive/deskhive/internal/platform/db"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/tickets"
	"github.com/deskhive/deskhive/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	profileService := profiles.NewService(profiles.NewRepository(pool))
	ticketRepo := tickets.NewRepository(pool)
	notificationService := notifications.NewService(notifications.NewRepository(pool))

	mailJob := &jobs.SendEmailJob{
		Mailer: &jobs.Mailer{
			Addr: cfg.SMTPHost + ":" + strconv.Itoa(cfg.SMTPPort),
			From: cfg.SMTPFrom,
		},
		Logger:  logger,
		Metrics: metrics,
	}
	assignmentJob := &jobs.NotifyAssignmentJob{
		Tickets:       ticketRepo,
		Profiles:      profileService,
		Notifications: notificationService,
		Mail:          jobClient,
		Logger:        logger,
		Metrics:       metrics,
	}
	staleJob := jobs.NewStaleTicketScanJob(pool, notificationService, logger, metrics)

	staleTask, err := jobs.NewStaleTicketScanTask(time.Now().UTC(), cfg.StaleTicketIdleDays)
	if err != nil {
		logger.Error("build stale scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskTypeNotifyAssignment, Handler: assignmentJob.Handle},
			{Type: jobs.TaskTypeStaleTicketScan, Handler: staleJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: staleTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
