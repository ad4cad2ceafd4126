package notifications

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
	byID map[string]*Notification
	read []string
}

func newStubRepo(ns ...*Notification) *stubRepo {
	r := &stubRepo{byID: map[string]*Notification{}}
	for _, n := range ns {
		r.byID[n.ID] = n
	}
	return r
}

func (r *stubRepo) GetByID(_ context.Context, id string) (*Notification, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return n, nil
}

func (r *stubRepo) ListForUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]Notification, int, error) {
	var out []Notification
	for _, n := range r.byID {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (r *stubRepo) Create(_ context.Context, n *Notification) error {
	r.byID[n.ID] = n
	return nil
}

func (r *stubRepo) MarkRead(_ context.Context, id string) error {
	r.read = append(r.read, id)
	return nil
}

func (r *stubRepo) MarkAllRead(_ context.Context, userID string) error {
	for _, n := range r.byID {
		if n.UserID == userID {
			r.read = append(r.read, n.ID)
		}
	}
	return nil
}

func (r *stubRepo) DeleteOlderThan(_ context.Context, _ string, _ int) error { return nil }

var _ RepositoryPort = (*stubRepo)(nil)

func org(id string) *string { return &id }

func TestListReturnsOwnFeedOnly(t *testing.T) {
	repo := newStubRepo(
		&Notification{ID: "n1", UserID: "alice"},
		&Notification{ID: "n2", UserID: "bob"},
	)
	svc := NewService(repo)

	items, _, err := svc.List(context.Background(), &profiles.Profile{ID: "alice", Role: authz.RoleUser}, false, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != "n1" {
		t.Fatalf("items = %+v", items)
	}
}

// Same-organization colleagues cannot acknowledge each other's notifications.
// The record carries no organization, so ownership is the only thing that
// grants access.
func TestMarkReadRefusesNonOwner(t *testing.T) {
	repo := newStubRepo(&Notification{ID: "n1", UserID: "bob"})
	svc := NewService(repo)

	caller := &profiles.Profile{ID: "alice", Role: authz.RoleManager, OrganizationID: org("org-1")}
	if err := svc.MarkRead(context.Background(), caller, "n1"); !errors.Is(err, shared.ErrCrossTenantDenied) {
		t.Fatalf("err = %v, want ErrCrossTenantDenied", err)
	}
	if len(repo.read) != 0 {
		t.Fatal("notification must stay unread")
	}
}

func TestMarkReadAllowsOwnerAndAdmin(t *testing.T) {
	repo := newStubRepo(&Notification{ID: "n1", UserID: "bob"}, &Notification{ID: "n2", UserID: "bob"})
	svc := NewService(repo)

	owner := &profiles.Profile{ID: "bob", Role: authz.RoleUser, OrganizationID: org("org-1")}
	if err := svc.MarkRead(context.Background(), owner, "n1"); err != nil {
		t.Fatalf("owner mark read: %v", err)
	}

	admin := &profiles.Profile{ID: "root", Role: authz.RoleAdmin}
	if err := svc.MarkRead(context.Background(), admin, "n2"); err != nil {
		t.Fatalf("admin mark read: %v", err)
	}
}

func TestNotifyValidatesRecipient(t *testing.T) {
	svc := NewService(newStubRepo())

	if _, err := svc.Notify(context.Background(), "", KindAssignment, "title", "", nil); !errors.Is(err, shared.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	n, err := svc.Notify(context.Background(), "bob", KindAssignment, "Ticket assigned", "body", nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.ID == "" {
		t.Fatal("id must be generated")
	}
}
