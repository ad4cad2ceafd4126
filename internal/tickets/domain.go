package tickets

import (
	"time"

	"github.com/deskhive/deskhive/internal/authz"
)

// Status is the ticket lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Valid reports whether the status is a recognized lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}

// Priority orders the support queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is recognized.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Ticket is a helpdesk request owned by an organization.
type Ticket struct {
	ID             string
	OrganizationID *string
	CreatedBy      string
	AssignedTo     *string
	Subject        string
	Body           string
	Status         Status
	Priority       Priority
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OwnerOrganizationID implements authz.OwnedResource.
func (t *Ticket) OwnerOrganizationID() *string { return t.OrganizationID }

// OwnerUserID implements authz.OwnedResource.
func (t *Ticket) OwnerUserID() string { return t.CreatedBy }

var _ authz.OwnedResource = (*Ticket)(nil)

// Comment is a reply on a ticket. It inherits the ticket's tenant for
// authorization purposes.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}
