package tickets

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// ProfileLoader resolves assignee profiles during assignment.
type ProfileLoader interface {
	Load(ctx context.Context, principalID string) (*profiles.Profile, error)
}

// Enqueuer schedules the assignment notification job. The worker fans the
// notification out to rows and email.
type Enqueuer interface {
	EnqueueAssignment(ctx context.Context, ticketID, assigneeID, actorID string) error
}

// Service applies the per-resource authorization rules around ticket
// persistence. The route guard has already enforced the coarse role gate; this
// layer decides against the concrete ticket's organization and owner.
type Service struct {
	repo     RepositoryPort
	profiles ProfileLoader
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, loader ProfileLoader, enqueuer Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, profiles: loader, enqueuer: enqueuer, logger: logger}
}

// CreateInput carries validated ticket creation fields.
type CreateInput struct {
	Subject        string
	Body           string
	Priority       Priority
	OrganizationID *string
}

// UpdateInput carries optional ticket mutations.
type UpdateInput struct {
	Subject  *string
	Body     *string
	Status   *Status
	Priority *Priority
}

// List returns the tickets visible to the caller.
func (s *Service) List(ctx context.Context, caller *profiles.Profile, page, perPage int) ([]Ticket, shared.Pagination, error) {
	scope := authz.AccessibleOrganizations(caller.Role, caller.OrganizationID)
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, scope, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Get loads one ticket after the tenant check.
func (s *Service) Get(ctx context.Context, caller *profiles.Profile, id string) (*Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CheckResource(caller.Role, caller.OrganizationID, caller.ID, ticket).CanRead {
		return nil, shared.ErrCrossTenantDenied
	}
	return ticket, nil
}

// Create opens a ticket in the caller's organization. Only admins may file
// tickets into a different organization.
func (s *Service) Create(ctx context.Context, caller *profiles.Profile, in CreateInput) (*Ticket, error) {
	org := caller.OrganizationID
	if in.OrganizationID != nil {
		if !authz.CanAccessOrganizationData(caller.Role, caller.OrganizationID, in.OrganizationID) {
			return nil, shared.ErrCrossTenantDenied
		}
		org = in.OrganizationID
	}
	if !authz.Permissions(caller.Role, caller.OrganizationID, org).CanWrite {
		return nil, shared.ErrInsufficientRole
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	ticket := &Ticket{
		ID:             uuid.NewString(),
		OrganizationID: org,
		CreatedBy:      caller.ID,
		Subject:        in.Subject,
		Body:           in.Body,
		Status:         StatusOpen,
		Priority:       priority,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Update mutates a ticket the caller may manage.
func (s *Service) Update(ctx context.Context, caller *profiles.Profile, id string, in UpdateInput) (*Ticket, error) {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanManageTickets(caller.Role, caller.OrganizationID, ticket.OrganizationID) {
		return nil, shared.ErrCrossTenantDenied
	}

	if in.Subject != nil {
		ticket.Subject = *in.Subject
	}
	if in.Body != nil {
		ticket.Body = *in.Body
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, shared.ErrValidation
		}
		ticket.Status = *in.Status
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, shared.ErrValidation
		}
		ticket.Priority = *in.Priority
	}
	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes a ticket. Delete capability is reserved to admins; a manager
// in the ticket's own organization is still refused.
func (s *Service) Delete(ctx context.Context, caller *profiles.Profile, id string) error {
	ticket, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.Permissions(caller.Role, caller.OrganizationID, ticket.OrganizationID).CanDelete {
		return shared.ErrInsufficientRole
	}
	return s.repo.Delete(ctx, id)
}

// Assign sets the ticket's assignee and schedules the notification job.
func (s *Service) Assign(ctx context.Context, caller *profiles.Profile, ticketID, assigneeID string) error {
	if !authz.CanAssignTickets(caller.Role) {
		return shared.ErrInsufficientRole
	}
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !authz.CanManageTickets(caller.Role, caller.OrganizationID, ticket.OrganizationID) {
		return shared.ErrCrossTenantDenied
	}

	assignee, err := s.profiles.Load(ctx, assigneeID)
	if err != nil {
		return shared.ErrValidation
	}
	// The assignee has to be able to see the ticket afterwards.
	if !authz.CanAccessOrganizationData(assignee.Role, assignee.OrganizationID, ticket.OrganizationID) {
		return shared.ErrCrossTenantDenied
	}

	if err := s.repo.Assign(ctx, ticketID, assigneeID, caller.ID); err != nil {
		return err
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueAssignment(ctx, ticketID, assigneeID, caller.ID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue assignment notification", slog.String("ticket", ticketID), slog.Any("error", err))
		}
	}
	return nil
}

// Comments returns a ticket's thread after the read check.
func (s *Service) Comments(ctx context.Context, caller *profiles.Profile, ticketID string) ([]Comment, error) {
	if _, err := s.Get(ctx, caller, ticketID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, ticketID)
}

// AddComment appends to a ticket's thread after the write check.
func (s *Service) AddComment(ctx context.Context, caller *profiles.Profile, ticketID, body string) (*Comment, error) {
	ticket, err := s.repo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CheckResource(caller.Role, caller.OrganizationID, caller.ID, ticket).CanWrite {
		return nil, shared.ErrCrossTenantDenied
	}
	comment := &Comment{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		AuthorID: caller.ID,
		Body:     body,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}
