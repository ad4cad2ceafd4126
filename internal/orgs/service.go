package orgs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Auditor records sensitive tenant mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service enforces the tenant management rule: organization records themselves
// can only be touched by administrators, regardless of which organization the
// caller belongs to.
type Service struct {
	repo    RepositoryPort
	auditor Auditor
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, logger: logger}
}

// List returns organizations visible to the caller. Non-admins only see their
// own tenant.
func (s *Service) List(ctx context.Context, caller *profiles.Profile, page, perPage int) ([]Organization, shared.Pagination, error) {
	scope := authz.AccessibleOrganizations(caller.Role, caller.OrganizationID)
	if scope.All {
		p := shared.NewPagination(page, perPage, 0)
		items, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		return items, shared.NewPagination(p.Page, p.PerPage, total), nil
	}
	if len(scope.IDs) == 0 {
		return nil, shared.NewPagination(page, perPage, 0), nil
	}
	org, err := s.repo.GetByID(ctx, scope.IDs[0])
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return []Organization{*org}, shared.NewPagination(1, perPage, 1), nil
}

// Get loads one organization after the tenant check.
func (s *Service) Get(ctx context.Context, caller *profiles.Profile, id string) (*Organization, error) {
	if !authz.CanAccessOrganizationData(caller.Role, caller.OrganizationID, &id) {
		return nil, shared.ErrCrossTenantDenied
	}
	return s.repo.GetByID(ctx, id)
}

// Create registers a new tenant. Admin only, whatever organization the admin
// itself sits in.
func (s *Service) Create(ctx context.Context, caller *profiles.Profile, name, slug string) (*Organization, error) {
	if !authz.CanManageOrganization(caller.Role, caller.OrganizationID, nil) {
		return nil, shared.ErrInsufficientRole
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.ErrValidation
	}
	if slug == "" {
		slug = slugify(name)
	}
	org := &Organization{ID: uuid.NewString(), Name: name, Slug: slug}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}
	s.audit(ctx, caller.ID, "organization.create", org.ID, map[string]any{"name": name})
	return org, nil
}

// Update renames a tenant. Admin only.
func (s *Service) Update(ctx context.Context, caller *profiles.Profile, id, name, slug string) (*Organization, error) {
	if !authz.CanManageOrganization(caller.Role, caller.OrganizationID, &id) {
		return nil, shared.ErrInsufficientRole
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name != "" {
		org.Name = name
	}
	if slug != "" {
		org.Slug = slug
	}
	if err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}
	s.audit(ctx, caller.ID, "organization.update", id, map[string]any{"name": org.Name})
	return org, nil
}

// Delete removes an empty tenant. Admin only; a tenant that still has members
// is refused to avoid orphaning their profiles.
func (s *Service) Delete(ctx context.Context, caller *profiles.Profile, id string) error {
	if !authz.CanManageOrganization(caller.Role, caller.OrganizationID, &id) {
		return shared.ErrInsufficientRole
	}
	members, err := s.repo.CountMembers(ctx, id)
	if err != nil {
		return err
	}
	if members > 0 {
		return shared.ErrValidation
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, caller.ID, "organization.delete", id, nil)
	return nil
}

func (s *Service) audit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "organization",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
