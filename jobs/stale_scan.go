package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/deskhive/deskhive/internal/jobs"
	"github.com/deskhive/deskhive/internal/notifications"
)

// StaleTicketScanJob sweeps for tickets that have not moved in a while and
// nudges whoever holds them. Tickets without an assignee nudge their creator.
type StaleTicketScanJob struct {
	Pool          *pgxpool.Pool
	Notifications NotificationSink
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
	clock         func() time.Time
}

// NewStaleTicketScanJob initialises the sweep handler.
func NewStaleTicketScanJob(pool *pgxpool.Pool, sink NotificationSink, logger *slog.Logger, metrics *jobmetrics.Metrics) *StaleTicketScanJob {
	return &StaleTicketScanJob{
		Pool:          pool,
		Notifications: sink,
		Logger:        logger,
		Metrics:       metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type staleTicket struct {
	ID        string
	Subject   string
	Recipient string
	IdleSince time.Time
}

// Handle executes the sweep.
func (j *StaleTicketScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("stale scan: handler not configured")
	}
	var payload StaleTicketScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.IdleDays <= 0 {
		payload.IdleDays = 7
	}

	tracker := j.metrics().Track(TaskTypeStaleTicketScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("idle_days", payload.IdleDays))
	logger.Info("starting stale ticket sweep")

	stale, err := j.scan(ctx, payload.IdleDays)
	if err != nil {
		resultErr = err
		logger.Error("sweep failed", slog.Any("error", err))
		return resultErr
	}

	var notified int
	for _, s := range stale {
		_, err := j.Notifications.Notify(ctx, s.Recipient, notifications.KindStale,
			"Ticket needs attention",
			"\""+s.Subject+"\" has not moved since "+s.IdleSince.Format("02 Jan 2006")+".",
			&s.ID,
		)
		if err != nil {
			logger.Warn("stale nudge failed", slog.String("ticket", s.ID), slog.Any("error", err))
			continue
		}
		notified++
	}

	logger.Info("completed stale ticket sweep",
		slog.Int("stale", len(stale)),
		slog.Int("notified", notified),
	)
	return resultErr
}

func (j *StaleTicketScanJob) scan(ctx context.Context, idleDays int) ([]staleTicket, error) {
	if j.Pool == nil {
		return nil, errors.New("stale scan: pool not configured")
	}
	cutoff := j.now().AddDate(0, 0, -idleDays)
	rows, err := j.Pool.Query(ctx,
		`SELECT id, subject, COALESCE(assigned_to, created_by), updated_at
		 FROM tickets
		 WHERE status IN ('open', 'in_progress') AND updated_at < $1
		 ORDER BY updated_at`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []staleTicket
	for rows.Next() {
		var s staleTicket
		if err := rows.Scan(&s.ID, &s.Subject, &s.Recipient, &s.IdleSince); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *StaleTicketScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeStaleTicketScan))
	}
	return slog.Default().With(slog.String("job", TaskTypeStaleTicketScan))
}

func (j *StaleTicketScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}

func (j *StaleTicketScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
