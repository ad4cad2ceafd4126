package profiles

import (
	"context"

	"github.com/deskhive/deskhive/internal/authz"
)

// Service handles profile loading and mutation rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Load fetches the profile for a resolved principal.
func (s *Service) Load(ctx context.Context, principalID string) (*Profile, error) {
	return s.repo.GetByID(ctx, principalID)
}

// List returns profiles within the caller's organization scope.
func (s *Service) List(ctx context.Context, scope authz.OrgScope, limit, offset int) ([]Profile, int, error) {
	return s.repo.List(ctx, scope, limit, offset)
}

// Provision creates the application profile for a freshly created account.
func (s *Service) Provision(ctx context.Context, p *Profile) error {
	return s.repo.Create(ctx, p)
}

// UpdateDisplay mutates display metadata.
func (s *Service) UpdateDisplay(ctx context.Context, id, fullName, avatarURL string) error {
	return s.repo.Update(ctx, id, fullName, avatarURL)
}

// ChangeRole updates the privilege tier.
func (s *Service) ChangeRole(ctx context.Context, id string, role authz.Role) error {
	return s.repo.UpdateRole(ctx, id, role)
}
