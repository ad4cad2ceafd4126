package tickets

import (
	"context"
	"errors"
	"testing"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"

	_ "github.com/deskhive/deskhive/testing"
)

type stubRepo struct {
	tickets  map[string]*Ticket
	comments map[string][]Comment
	assigned []string
	deleted  []string
}

func newStubRepo(ts ...*Ticket) *stubRepo {
	r := &stubRepo{tickets: map[string]*Ticket{}, comments: map[string][]Comment{}}
	for _, t := range ts {
		r.tickets[t.ID] = t
	}
	return r
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*Ticket, error) {
	t, ok := r.tickets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *stubRepo) List(_ context.Context, scope authz.OrgScope, limit, offset int) ([]Ticket, int, error) {
	var out []Ticket
	for _, t := range r.tickets {
		if scope.All {
			out = append(out, *t)
			continue
		}
		for _, id := range scope.IDs {
			if t.OrganizationID != nil && *t.OrganizationID == id {
				out = append(out, *t)
			}
		}
	}
	return out, len(out), nil
}

func (r *stubRepo) Create(_ context.Context, t *Ticket) error {
	r.tickets[t.ID] = t
	return nil
}

func (r *stubRepo) Update(_ context.Context, t *Ticket) error {
	if _, ok := r.tickets[t.ID]; !ok {
		return shared.ErrNotFound
	}
	r.tickets[t.ID] = t
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tickets[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.tickets, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubRepo) Assign(_ context.Context, ticketID, assigneeID, _ string) error {
	t, ok := r.tickets[ticketID]
	if !ok {
		return shared.ErrNotFound
	}
	t.AssignedTo = &assigneeID
	r.assigned = append(r.assigned, ticketID)
	return nil
}

func (r *stubRepo) ListComments(_ context.Context, ticketID string) ([]Comment, error) {
	return r.comments[ticketID], nil
}

func (r *stubRepo) CreateComment(_ context.Context, c *Comment) error {
	r.comments[c.TicketID] = append(r.comments[c.TicketID], *c)
	return nil
}

var _ RepositoryPort = (*stubRepo)(nil)

type stubProfiles struct {
	byID map[string]*profiles.Profile
}

func (s *stubProfiles) Load(_ context.Context, id string) (*profiles.Profile, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, shared.ErrProfileMissing
	}
	return p, nil
}

type recordingEnqueuer struct {
	calls int
	err   error
}

func (e *recordingEnqueuer) EnqueueAssignment(context.Context, string, string, string) error {
	e.calls++
	return e.err
}

func org(id string) *string { return &id }

func profileOf(role authz.Role, orgID *string) *profiles.Profile {
	return &profiles.Profile{ID: "caller", Role: role, OrganizationID: orgID}
}

func TestUserManagesOwnOrgTicketOnly(t *testing.T) {
	own := &Ticket{ID: "t1", OrganizationID: org("org-1"), CreatedBy: "other", Status: StatusOpen, Priority: PriorityNormal}
	foreign := &Ticket{ID: "t2", OrganizationID: org("org-2"), CreatedBy: "other", Status: StatusOpen, Priority: PriorityNormal}
	svc := NewService(newStubRepo(own, foreign), &stubProfiles{}, nil, nil)
	caller := profileOf(authz.RoleUser, org("org-1"))

	if _, err := svc.Get(context.Background(), caller, "t1"); err != nil {
		t.Fatalf("own-org read: %v", err)
	}
	subject := "updated"
	if _, err := svc.Update(context.Background(), caller, "t1", UpdateInput{Subject: &subject}); err != nil {
		t.Fatalf("own-org update: %v", err)
	}

	if _, err := svc.Get(context.Background(), caller, "t2"); !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("cross-org read err = %v, want ErrCrossTenantDenied", err)
	}
	if _, err := svc.Update(context.Background(), caller, "t2", UpdateInput{Subject: &subject}); !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("cross-org update err = %v, want ErrCrossTenantDenied", err)
	}
}

func TestManagerCannotDeleteEvenInOwnOrg(t *testing.T) {
	repo := newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-1"), CreatedBy: "other"})
	svc := NewService(repo, &stubProfiles{}, nil, nil)

	err := svc.Delete(context.Background(), profileOf(authz.RoleManager, org("org-1")), "t1")
	if !errors.Is(err, shared.ErrInsufficientRole) {
		t.Fatalf("err = %v, want ErrInsufficientRole", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("ticket must survive a manager delete attempt")
	}
}

func TestAdminDeletesAnywhere(t *testing.T) {
	repo := newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-2"), CreatedBy: "other"})
	svc := NewService(repo, &stubProfiles{}, nil, nil)

	if err := svc.Delete(context.Background(), profileOf(authz.RoleAdmin, org("org-1")), "t1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("expected deletion")
	}
}

func TestCreateDefaultsToCallerOrg(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &stubProfiles{}, nil, nil)

	ticket, err := svc.Create(context.Background(), profileOf(authz.RoleUser, org("org-1")), CreateInput{Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.OrganizationID == nil || *ticket.OrganizationID != "org-1" {
		t.Fatalf("organization = %v, want org-1", ticket.OrganizationID)
	}
	if ticket.Status != StatusOpen || ticket.Priority != PriorityNormal {
		t.Fatalf("defaults = %s/%s", ticket.Status, ticket.Priority)
	}
	if ticket.ID == "" {
		t.Fatal("id must be generated")
	}
}

func TestCreateRejectsForeignOrgForNonAdmin(t *testing.T) {
	svc := NewService(newStubRepo(), &stubProfiles{}, nil, nil)

	_, err := svc.Create(context.Background(), profileOf(authz.RoleManager, org("org-1")), CreateInput{
		Subject: "s", Body: "b", OrganizationID: org("org-2"),
	})
	if !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("err = %v, want ErrCrossTenantDenied", err)
	}
}

func TestAdminCreatesIntoAnyOrg(t *testing.T) {
	svc := NewService(newStubRepo(), &stubProfiles{}, nil, nil)

	ticket, err := svc.Create(context.Background(), profileOf(authz.RoleAdmin, nil), CreateInput{
		Subject: "s", Body: "b", OrganizationID: org("org-2"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if *ticket.OrganizationID != "org-2" {
		t.Fatalf("organization = %v", ticket.OrganizationID)
	}
}

func TestAssignRequiresManagementTier(t *testing.T) {
	svc := NewService(newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-1")}), &stubProfiles{}, nil, nil)

	err := svc.Assign(context.Background(), profileOf(authz.RoleUser, org("org-1")), "t1", "assignee")
	if !errors.Is(err, shared.ErrInsufficientRole) {
		t.Fatalf("err = %v, want ErrInsufficientRole", err)
	}
}

func TestAssignChecksAssigneeTenant(t *testing.T) {
	repo := newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-1")})
	loader := &stubProfiles{byID: map[string]*profiles.Profile{
		"outsider": {ID: "outsider", Role: authz.RoleUser, OrganizationID: org("org-2")},
		"insider":  {ID: "insider", Role: authz.RoleUser, OrganizationID: org("org-1")},
	}}
	enq := &recordingEnqueuer{}
	svc := NewService(repo, loader, enq, nil)
	caller := profileOf(authz.RoleManager, org("org-1"))

	if err := svc.Assign(context.Background(), caller, "t1", "outsider"); !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("err = %v, want ErrCrossTenantDenied", err)
	}
	if enq.calls != 0 {
		t.Fatal("no notification for a refused assignment")
	}

	if err := svc.Assign(context.Background(), caller, "t1", "insider"); err != nil {
		t.Fatalf("assign insider: %v", err)
	}
	if enq.calls != 1 {
		t.Fatalf("enqueue calls = %d, want 1", enq.calls)
	}
}

// A failed enqueue is logged, not surfaced. The assignment itself stands.
func TestAssignSurvivesEnqueueFailure(t *testing.T) {
	repo := newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-1")})
	loader := &stubProfiles{byID: map[string]*profiles.Profile{
		"insider": {ID: "insider", Role: authz.RoleUser, OrganizationID: org("org-1")},
	}}
	svc := NewService(repo, loader, &recordingEnqueuer{err: errors.New("queue down")}, nil)

	if err := svc.Assign(context.Background(), profileOf(authz.RoleManager, org("org-1")), "t1", "insider"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(repo.assigned) != 1 {
		t.Fatal("assignment must be persisted")
	}
}

func TestListScopesToCallerOrg(t *testing.T) {
	repo := newStubRepo(
		&Ticket{ID: "t1", OrganizationID: org("org-1")},
		&Ticket{ID: "t2", OrganizationID: org("org-2")},
	)
	svc := NewService(repo, &stubProfiles{}, nil, nil)

	items, _, err := svc.List(context.Background(), profileOf(authz.RoleUser, org("org-1")), 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || *items[0].OrganizationID != "org-1" {
		t.Fatalf("items = %+v", items)
	}

	all, _, err := svc.List(context.Background(), profileOf(authz.RoleAdmin, nil), 1, 20)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d tickets, want 2", len(all))
	}
}

func TestCommentsFollowTicketTenant(t *testing.T) {
	repo := newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-2"), CreatedBy: "other"})
	svc := NewService(repo, &stubProfiles{}, nil, nil)
	caller := profileOf(authz.RoleUser, org("org-1"))

	if _, err := svc.Comments(context.Background(), caller, "t1"); !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("err = %v, want ErrCrossTenantDenied", err)
	}
	if _, err := svc.AddComment(context.Background(), caller, "t1", "hi"); !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("err = %v, want ErrCrossTenantDenied", err)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	repo := newStubRepo(&Ticket{ID: "t1", OrganizationID: org("org-1")})
	svc := NewService(repo, &stubProfiles{}, nil, nil)
	bad := Status("archived")

	_, err := svc.Update(context.Background(), profileOf(authz.RoleManager, org("org-1")), "t1", UpdateInput{Status: &bad})
	if !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
