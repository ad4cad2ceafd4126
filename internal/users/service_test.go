package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"

	_ "github.com/deskhive/deskhive/testing"
)

type stubDirectory struct {
	nextID    string
	created   []string
	resets    []string
	createErr error
}

func (d *stubDirectory) CreateUser(_ context.Context, email, _ string) (string, error) {
	if d.createErr != nil {
		return "", d.createErr
	}
	d.created = append(d.created, email)
	if d.nextID == "" {
		return "generated-id", nil
	}
	return d.nextID, nil
}

func (d *stubDirectory) ResetPassword(_ context.Context, userID, _ string) error {
	d.resets = append(d.resets, userID)
	return nil
}

type stubStore struct {
	byID        map[string]*profiles.Profile
	provisioned []*profiles.Profile
	roleChanges map[string]authz.Role
}

func newStubStore(ps ...*profiles.Profile) *stubStore {
	s := &stubStore{byID: map[string]*profiles.Profile{}, roleChanges: map[string]authz.Role{}}
	for _, p := range ps {
		s.byID[p.ID] = p
	}
	return s
}

func (s *stubStore) Load(_ context.Context, id string) (*profiles.Profile, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrProfileMissing
	}
	return p, nil
}

func (s *stubStore) List(_ context.Context, scope authz.OrgScope, _, _ int) ([]profiles.Profile, int, error) {
	var out []profiles.Profile
	for _, p := range s.byID {
		if scope.All {
			out = append(out, *p)
			continue
		}
		for _, id := range scope.IDs {
			if p.OrganizationID != nil && *p.OrganizationID == id {
				out = append(out, *p)
			}
		}
	}
	return out, len(out), nil
}

func (s *stubStore) Provision(_ context.Context, p *profiles.Profile) error {
	s.byID[p.ID] = p
	s.provisioned = append(s.provisioned, p)
	return nil
}

func (s *stubStore) ChangeRole(_ context.Context, id string, role authz.Role) error {
	s.roleChanges[id] = role
	return nil
}

func (s *stubStore) UpdateDisplay(_ context.Context, id, fullName, avatarURL string) error {
	if p, ok := s.byID[id]; ok {
		p.FullName = fullName
		p.AvatarURL = avatarURL
	}
	return nil
}

func org(id string) *string { return &id }

func caller(role authz.Role, orgID *string) *profiles.Profile {
	return &profiles.Profile{ID: "actor", Role: role, OrganizationID: orgID}
}

func newService(dir *stubDirectory, store *stubStore) *Service {
	return NewService(dir, store, nil, nil)
}

func TestManagerCreatesPlainUserInOwnOrg(t *testing.T) {
	dir := &stubDirectory{nextID: "new-user"}
	store := newStubStore()
	svc := newService(dir, store)

	created, err := svc.Create(context.Background(), caller(authz.RoleManager, org("org-1")), CreateInput{
		Email:    "Agent@Example.COM",
		Password: "hunter2hunter2",
		Role:     authz.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-user", created.ID)
	assert.Equal(t, authz.RoleUser, created.Role)
	require.NotNil(t, created.OrganizationID)
	assert.Equal(t, "org-1", *created.OrganizationID)
	require.Len(t, dir.created, 1)
	assert.Equal(t, "agent@example.com", dir.created[0], "email must be normalized before it reaches the provider")
}

func TestManagerCannotCreateManagerOrAdmin(t *testing.T) {
	svc := newService(&stubDirectory{}, newStubStore())
	mgr := caller(authz.RoleManager, org("org-1"))

	for _, role := range []authz.Role{authz.RoleManager, authz.RoleAdmin} {
		_, err := svc.Create(context.Background(), mgr, CreateInput{
			Email: "a@b.test", Password: "hunter2hunter2", Role: role,
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientRole, "role %s", role)
	}
}

func TestManagerCannotCreateIntoForeignOrg(t *testing.T) {
	dir := &stubDirectory{}
	svc := newService(dir, newStubStore())

	_, err := svc.Create(context.Background(), caller(authz.RoleManager, org("org-1")), CreateInput{
		Email: "a@b.test", Password: "hunter2hunter2", Role: authz.RoleUser, OrganizationID: org("org-2"),
	})
	assert.ErrorIs(t, err, shared.ErrCrossTenantDenied)
	assert.Empty(t, dir.created, "no provider account for a refused request")
}

func TestPlainUserCannotCreateAccounts(t *testing.T) {
	svc := newService(&stubDirectory{}, newStubStore())

	_, err := svc.Create(context.Background(), caller(authz.RoleUser, org("org-1")), CreateInput{
		Email: "a@b.test", Password: "hunter2hunter2", Role: authz.RoleUser,
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientRole)
}

func TestAdminCreatesAnyRoleAnywhere(t *testing.T) {
	dir := &stubDirectory{}
	store := newStubStore()
	svc := newService(dir, store)
	admin := caller(authz.RoleAdmin, org("org-1"))

	for _, role := range []authz.Role{authz.RoleUser, authz.RoleManager, authz.RoleAdmin} {
		created, err := svc.Create(context.Background(), admin, CreateInput{
			Email: string(role) + "@b.test", Password: "hunter2hunter2", Role: role, OrganizationID: org("org-2"),
		})
		require.NoError(t, err, "role %s", role)
		assert.Equal(t, "org-2", *created.OrganizationID)
	}
	assert.Len(t, store.provisioned, 3)
}

func TestChangeRoleAdminOnly(t *testing.T) {
	store := newStubStore(&profiles.Profile{ID: "target", Role: authz.RoleUser, OrganizationID: org("org-1")})
	svc := newService(&stubDirectory{}, store)

	err := svc.ChangeRole(context.Background(), caller(authz.RoleManager, org("org-1")), "target", authz.RoleManager)
	assert.ErrorIs(t, err, shared.ErrInsufficientRole)

	require.NoError(t, svc.ChangeRole(context.Background(), caller(authz.RoleAdmin, nil), "target", authz.RoleManager))
	assert.Equal(t, authz.RoleManager, store.roleChanges["target"])
}

func TestChangeRoleRefusesSelf(t *testing.T) {
	store := newStubStore(&profiles.Profile{ID: "actor", Role: authz.RoleAdmin})
	svc := newService(&stubDirectory{}, store)

	err := svc.ChangeRole(context.Background(), caller(authz.RoleAdmin, nil), "actor", authz.RoleUser)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestResetPasswordAdminOnly(t *testing.T) {
	dir := &stubDirectory{}
	store := newStubStore(&profiles.Profile{ID: "target", Role: authz.RoleUser, OrganizationID: org("org-1")})
	svc := newService(dir, store)

	err := svc.ResetPassword(context.Background(), caller(authz.RoleManager, org("org-1")), "target", "newpassword1")
	assert.ErrorIs(t, err, shared.ErrInsufficientRole)
	assert.Empty(t, dir.resets)

	require.NoError(t, svc.ResetPassword(context.Background(), caller(authz.RoleAdmin, nil), "target", "newpassword1"))
	assert.Equal(t, []string{"target"}, dir.resets)
}

func TestResetPasswordRejectsShortPassword(t *testing.T) {
	svc := newService(&stubDirectory{}, newStubStore(&profiles.Profile{ID: "target"}))

	err := svc.ResetPassword(context.Background(), caller(authz.RoleAdmin, nil), "target", "short")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestListScopesToCallerOrg(t *testing.T) {
	store := newStubStore(
		&profiles.Profile{ID: "p1", Role: authz.RoleUser, OrganizationID: org("org-1")},
		&profiles.Profile{ID: "p2", Role: authz.RoleUser, OrganizationID: org("org-2")},
	)
	svc := newService(&stubDirectory{}, store)

	items, _, err := svc.List(context.Background(), caller(authz.RoleManager, org("org-1")), 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
}

func TestGetHonorsTenantBoundary(t *testing.T) {
	store := newStubStore(&profiles.Profile{ID: "p2", Role: authz.RoleUser, OrganizationID: org("org-2")})
	svc := newService(&stubDirectory{}, store)

	_, err := svc.Get(context.Background(), caller(authz.RoleManager, org("org-1")), "p2")
	assert.ErrorIs(t, err, shared.ErrCrossTenantDenied)
}
