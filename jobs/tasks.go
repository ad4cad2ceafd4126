package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeNotifyAssignment fans a ticket assignment out to the assignee's
	// notification feed and inbox.
	TaskTypeNotifyAssignment = "notify:assignment"
	// TaskTypeStaleTicketScan nudges assignees about tickets that stopped
	// moving. Registered on the cron scheduler.
	TaskTypeStaleTicketScan = "tickets:stale_scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.Queue(QueueDefault)), nil
}

// NotifyAssignmentPayload identifies the assignment to announce.
type NotifyAssignmentPayload struct {
	TicketID   string `json:"ticket_id"`
	AssigneeID string `json:"assignee_id"`
	ActorID    string `json:"actor_id"`
}

// NewNotifyAssignmentTask constructs an Asynq task for an assignment event.
func NewNotifyAssignmentTask(payload NotifyAssignmentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyAssignment, data, asynq.Queue(QueueDefault)), nil
}

// StaleTicketScanPayload carries scheduling metadata for the cron sweep.
type StaleTicketScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
	IdleDays     int       `json:"idle_days"`
}

// NewStaleTicketScanTask constructs an Asynq task for the stale ticket sweep.
func NewStaleTicketScanTask(at time.Time, idleDays int) (*asynq.Task, error) {
	data, err := json.Marshal(StaleTicketScanPayload{ScheduledFor: at, IdleDays: idleDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeStaleTicketScan, data, asynq.Queue(QueueDefault)), nil
}
