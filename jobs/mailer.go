package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/deskhive/deskhive/internal/jobs"
)

// Mailer delivers transactional mail over SMTP.
type Mailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

// Send delivers one message. The body is plain text.
func (m *Mailer) Send(to, subject, body string) error {
	if m == nil || m.Addr == "" {
		return errors.New("mailer: not configured")
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg))
}

// SendEmailJob processes mail:send tasks.
type SendEmailJob struct {
	Mailer  *Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle executes the send.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskTypeSendEmail)
	err := j.Mailer.Send(payload.To, payload.Subject, payload.Body)
	if err = tracker.End(err); err != nil {
		j.logger().Warn("send email failed", slog.String("to", payload.To), slog.Any("error", err))
		return fmt.Errorf("send email: %w", err)
	}
	j.logger().Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

func (j *SendEmailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
