package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/deskhive/deskhive/internal/jobs"
	"github.com/deskhive/deskhive/internal/notifications"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/tickets"
)

// TicketSource loads the ticket being announced.
type TicketSource interface {
	GetByID(ctx context.Context, id string) (*tickets.Ticket, error)
}

// ProfileSource resolves the assignee's profile for the email address.
type ProfileSource interface {
	Load(ctx context.Context, principalID string) (*profiles.Profile, error)
}

// NotificationSink writes the in-app notification row.
type NotificationSink interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, ticketID *string) (*notifications.Notification, error)
}

// MailEnqueuer schedules the email counterpart of the notification.
type MailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// NotifyAssignmentJob fans one assignment event out to the assignee's
// notification feed and, when an address is known, their inbox.
type NotifyAssignmentJob struct {
	Tickets       TicketSource
	Profiles      ProfileSource
	Notifications NotificationSink
	Mail          MailEnqueuer
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// Handle executes the fan-out.
func (j *NotifyAssignmentJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("notify assignment: handler not configured")
	}
	var payload NotifyAssignmentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.TicketID == "" || payload.AssigneeID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeNotifyAssignment)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	ticket, err := j.Tickets.GetByID(ctx, payload.TicketID)
	if err != nil {
		// The ticket may have been deleted between enqueue and execution.
		j.logger().Info("ticket gone, dropping notification", slog.String("ticket", payload.TicketID))
		return nil
	}

	title := "Ticket assigned to you"
	body := fmt.Sprintf("%q is now assigned to you.", ticket.Subject)
	if _, err := j.Notifications.Notify(ctx, payload.AssigneeID, notifications.KindAssignment, title, body, &ticket.ID); err != nil {
		resultErr = fmt.Errorf("notify assignment: %w", err)
		return resultErr
	}

	if j.Mail == nil {
		return nil
	}
	assignee, err := j.Profiles.Load(ctx, payload.AssigneeID)
	if err != nil || assignee.Email == "" {
		// In-app notification already landed; mail is best effort.
		return nil
	}
	if _, err := j.Mail.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      assignee.Email,
		Subject: "[DeskHive] " + title,
		Body:    body,
	}); err != nil {
		j.logger().Warn("enqueue assignment email", slog.Any("error", err))
	}
	return nil
}

func (j *NotifyAssignmentJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeNotifyAssignment))
	}
	return slog.Default().With(slog.String("job", TaskTypeNotifyAssignment))
}

func (j *NotifyAssignmentJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
