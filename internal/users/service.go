package users

import (
	"context"
	"log/slog"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/identity"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// DirectoryAdmin is the slice of the identity provider's admin surface this
// service needs. It is backed by the service-role client and therefore only
// reachable through management-gated routes.
type DirectoryAdmin interface {
	CreateUser(ctx context.Context, email, password string) (string, error)
	ResetPassword(ctx context.Context, userID, newPassword string) error
}

// ProfileStore is the slice of the profile service used for user management.
type ProfileStore interface {
	Load(ctx context.Context, principalID string) (*profiles.Profile, error)
	List(ctx context.Context, scope authz.OrgScope, limit, offset int) ([]profiles.Profile, int, error)
	Provision(ctx context.Context, p *profiles.Profile) error
	ChangeRole(ctx context.Context, id string, role authz.Role) error
	UpdateDisplay(ctx context.Context, id, fullName, avatarURL string) error
}

// Auditor records sensitive account mutations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements member directory management: listing, provisioning
// accounts, role changes, and password resets.
type Service struct {
	directory DirectoryAdmin
	profiles  ProfileStore
	auditor   Auditor
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(directory DirectoryAdmin, store ProfileStore, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{directory: directory, profiles: store, auditor: auditor, logger: logger}
}

// List returns member profiles inside the caller's organization scope.
func (s *Service) List(ctx context.Context, caller *profiles.Profile, page, perPage int) ([]profiles.Profile, shared.Pagination, error) {
	scope := authz.AccessibleOrganizations(caller.Role, caller.OrganizationID)
	p := shared.NewPagination(page, perPage, 0)
	items, total, err := s.profiles.List(ctx, scope, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// Get loads one member profile after the tenant check.
func (s *Service) Get(ctx context.Context, caller *profiles.Profile, id string) (*profiles.Profile, error) {
	target, err := s.profiles.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAccessOrganizationData(caller.Role, caller.OrganizationID, target.OrganizationID) {
		return nil, shared.ErrCrossTenantDenied
	}
	return target, nil
}

// CreateInput carries a new account request.
type CreateInput struct {
	Email          string
	Password       string
	FullName       string
	Role           authz.Role
	OrganizationID *string
}

// Create provisions a provider account plus its application profile. Admins
// may create any role in any organization; managers may only create plain
// users inside their own organization.
func (s *Service) Create(ctx context.Context, caller *profiles.Profile, in CreateInput) (*profiles.Profile, error) {
	if !authz.CanManageUsers(caller.Role) {
		return nil, shared.ErrInsufficientRole
	}
	if !authz.CanCreateUserWithRole(caller.Role, in.Role) {
		return nil, shared.ErrInsufficientRole
	}

	org := in.OrganizationID
	if org == nil {
		org = caller.OrganizationID
	}
	if !authz.CanAccessOrganizationData(caller.Role, caller.OrganizationID, org) {
		return nil, shared.ErrCrossTenantDenied
	}

	email, err := identity.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < 8 {
		return nil, shared.ErrValidation
	}

	id, err := s.directory.CreateUser(ctx, email, in.Password)
	if err != nil {
		return nil, err
	}
	profile := &profiles.Profile{
		ID:             id,
		Email:          email,
		Role:           in.Role,
		OrganizationID: org,
		FullName:       in.FullName,
	}
	if err := s.profiles.Provision(ctx, profile); err != nil {
		return nil, err
	}
	s.audit(ctx, caller.ID, "user.create", id, map[string]any{"role": string(in.Role)})
	return profile, nil
}

// ChangeRole updates a member's privilege tier. Admin only.
func (s *Service) ChangeRole(ctx context.Context, caller *profiles.Profile, targetID string, role authz.Role) error {
	if caller.Role != authz.RoleAdmin {
		return shared.ErrInsufficientRole
	}
	if !role.Valid() {
		return shared.ErrValidation
	}
	if targetID == caller.ID {
		// An admin demoting itself locks everyone out of role management.
		return shared.ErrValidation
	}
	if _, err := s.profiles.Load(ctx, targetID); err != nil {
		return err
	}
	if err := s.profiles.ChangeRole(ctx, targetID, role); err != nil {
		return err
	}
	s.audit(ctx, caller.ID, "user.change_role", targetID, map[string]any{"role": string(role)})
	return nil
}

// ResetPassword sets a new provider password for the target account. Admin
// only.
func (s *Service) ResetPassword(ctx context.Context, caller *profiles.Profile, targetID, newPassword string) error {
	if caller.Role != authz.RoleAdmin {
		return shared.ErrInsufficientRole
	}
	if len(newPassword) < 8 {
		return shared.ErrValidation
	}
	if _, err := s.profiles.Load(ctx, targetID); err != nil {
		return err
	}
	if err := s.directory.ResetPassword(ctx, targetID, newPassword); err != nil {
		return err
	}
	s.audit(ctx, caller.ID, "user.reset_password", targetID, nil)
	return nil
}

// UpdateProfile lets a member edit their own display fields.
func (s *Service) UpdateProfile(ctx context.Context, caller *profiles.Profile, fullName, avatarURL string) error {
	return s.profiles.UpdateDisplay(ctx, caller.ID, fullName, avatarURL)
}

func (s *Service) audit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: entityID,
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.Any("error", err))
	}
}
