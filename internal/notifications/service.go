package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Service wraps the notification feed with ownership checks. Notifications
// are per-user data: only the recipient may read or acknowledge them, admins
// included for support purposes.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the caller's own feed. The recipient filter is structural, not
// a permission check, so there is nothing to deny here.
func (s *Service) List(ctx context.Context, caller *profiles.Profile, unreadOnly bool, page, perPage int) ([]Notification, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.ListForUser(ctx, caller.ID, unreadOnly, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// MarkRead acknowledges one notification after the ownership check.
func (s *Service) MarkRead(ctx context.Context, caller *profiles.Profile, id string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CheckResource(caller.Role, caller.OrganizationID, caller.ID, n).CanWrite {
		return shared.ErrCrossTenantDenied
	}
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead acknowledges the caller's whole feed.
func (s *Service) MarkAllRead(ctx context.Context, caller *profiles.Profile) error {
	return s.repo.MarkAllRead(ctx, caller.ID)
}

// Notify inserts a notification for the recipient. Called by the worker, not
// by request handlers.
func (s *Service) Notify(ctx context.Context, userID string, kind Kind, title, body string, ticketID *string) (*Notification, error) {
	if userID == "" || title == "" {
		return nil, shared.ErrValidation
	}
	n := &Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     kind,
		Title:    title,
		Body:     body,
		TicketID: ticketID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
