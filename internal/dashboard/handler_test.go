package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/dashboard"
	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/notifications"
	"github.com/deskhive/deskhive/internal/orgs"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
	"github.com/deskhive/deskhive/internal/tickets"
	"github.com/deskhive/deskhive/internal/view"
	_ "github.com/deskhive/deskhive/testing"
)

type stubSources struct {
	tickets       []tickets.Ticket
	notifications []notifications.Notification
	members       []profiles.Profile
	orgs          []orgs.Organization
}

func (s *stubSources) List(_ context.Context, _ *profiles.Profile, _, _ int) ([]tickets.Ticket, shared.Pagination, error) {
	return s.tickets, shared.NewPagination(1, 20, len(s.tickets)), nil
}

type notifSource stubSources

func (s *notifSource) List(_ context.Context, _ *profiles.Profile, _ bool, _, _ int) ([]notifications.Notification, shared.Pagination, error) {
	return s.notifications, shared.NewPagination(1, 20, len(s.notifications)), nil
}

type memberSource stubSources

func (s *memberSource) List(_ context.Context, _ *profiles.Profile, _, _ int) ([]profiles.Profile, shared.Pagination, error) {
	return s.members, shared.NewPagination(1, 20, len(s.members)), nil
}

type orgSource stubSources

func (s *orgSource) List(_ context.Context, _ *profiles.Profile, _, _ int) ([]orgs.Organization, shared.Pagination, error) {
	return s.orgs, shared.NewPagination(1, 20, len(s.orgs)), nil
}

type stubLoader struct {
	profile *profiles.Profile
}

func (s *stubLoader) Load(context.Context, string) (*profiles.Profile, error) {
	if s.profile == nil {
		return nil, shared.ErrProfileMissing
	}
	return s.profile, nil
}

func newRouter(t *testing.T, profile *profiles.Profile, sources *stubSources) chi.Router {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	csrf := shared.NewCSRFManager("csrfsecret", false)
	h := dashboard.NewHandler(logger, templates, csrf, sources, (*notifSource)(sources), (*memberSource)(sources), (*orgSource)(sources))

	g := guard.Guard{Profiles: &stubLoader{profile: profile}, Logger: logger}
	r := chi.NewRouter()
	h.MountRoutes(r, g)
	return r
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(shared.ContextWithPrincipal(req.Context(), &shared.Principal{ID: "user-1"}))
}

func orgID(id string) *string { return &id }

func TestDashboardRendersStats(t *testing.T) {
	me := "user-1"
	profile := &profiles.Profile{ID: "user-1", Role: authz.RoleUser, OrganizationID: orgID("org-1")}
	sources := &stubSources{
		tickets: []tickets.Ticket{
			{ID: "t1", Subject: "Printer on fire", Status: tickets.StatusOpen, Priority: tickets.PriorityHigh},
			{ID: "t2", Subject: "Password reset", Status: tickets.StatusResolved, Priority: tickets.PriorityNormal, AssignedTo: &me},
		},
		notifications: []notifications.Notification{{ID: "n1", UserID: "user-1"}},
	}
	router := newRouter(t, profile, sources)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authed(httptest.NewRequest(http.MethodGet, "/dashboard", nil)))

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, "Printer on fire") {
		t.Fatal("expected recent ticket in body")
	}
	if !strings.Contains(body, "Unread notifications") {
		t.Fatal("expected notification stat in body")
	}
}

func TestOrganizationsPageAdminOnly(t *testing.T) {
	profile := &profiles.Profile{ID: "user-1", Role: authz.RoleManager, OrganizationID: orgID("org-1")}
	router := newRouter(t, profile, &stubSources{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authed(httptest.NewRequest(http.MethodGet, "/organizations", nil)))

	if res.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 redirect", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("location = %q, want /dashboard", loc)
	}
}

func TestMembersPageRefusesPlainUser(t *testing.T) {
	profile := &profiles.Profile{ID: "user-1", Role: authz.RoleUser, OrganizationID: orgID("org-1")}
	router := newRouter(t, profile, &stubSources{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, authed(httptest.NewRequest(http.MethodGet, "/members", nil)))

	if res.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 redirect", res.Code)
	}
}

func TestTicketsPageRedirectsAnonymous(t *testing.T) {
	router := newRouter(t, nil, &stubSources{})

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/tickets", nil))

	if res.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/login" {
		t.Fatalf("location = %q, want /login", loc)
	}
}
