package notifications

import (
	"time"

	"github.com/deskhive/deskhive/internal/authz"
)

// Kind classifies a notification row.
type Kind string

const (
	KindAssignment Kind = "ticket_assigned"
	KindComment    Kind = "ticket_comment"
	KindStale      Kind = "ticket_stale"
)

// Notification is a per-user record. It carries no organization; access is
// decided purely by ownership, so only the recipient and administrators can
// see it.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      Kind       `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	TicketID  *string    `json:"ticket_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// OwnerOrganizationID implements authz.OwnedResource.
func (n *Notification) OwnerOrganizationID() *string { return nil }

// OwnerUserID implements authz.OwnedResource.
func (n *Notification) OwnerUserID() string { return n.UserID }

var _ authz.OwnedResource = (*Notification)(nil)
