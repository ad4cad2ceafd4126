package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/notifications"
	"github.com/deskhive/deskhive/internal/orgs"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
	"github.com/deskhive/deskhive/internal/tickets"
	"github.com/deskhive/deskhive/internal/view"
)

// TicketSource is the slice of the ticket service the pages need.
type TicketSource interface {
	List(ctx context.Context, caller *profiles.Profile, page, perPage int) ([]tickets.Ticket, shared.Pagination, error)
}

// NotificationSource is the slice of the notification service the pages need.
type NotificationSource interface {
	List(ctx context.Context, caller *profiles.Profile, unreadOnly bool, page, perPage int) ([]notifications.Notification, shared.Pagination, error)
}

// MemberSource is the slice of the user service the pages need.
type MemberSource interface {
	List(ctx context.Context, caller *profiles.Profile, page, perPage int) ([]profiles.Profile, shared.Pagination, error)
}

// OrgSource is the slice of the organization service the pages need.
type OrgSource interface {
	List(ctx context.Context, caller *profiles.Profile, page, perPage int) ([]orgs.Organization, shared.Pagination, error)
}

// Handler renders the authenticated HTML pages.
type Handler struct {
	logger        *slog.Logger
	templates     *view.Engine
	csrf          *shared.CSRFManager
	tickets       TicketSource
	notifications NotificationSource
	members       MemberSource
	orgs          OrgSource
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, ticketSource TicketSource, notificationSource NotificationSource, memberSource MemberSource, orgSource OrgSource) *Handler {
	return &Handler{
		logger:        logger,
		templates:     templates,
		csrf:          csrf,
		tickets:       ticketSource,
		notifications: notificationSource,
		members:       memberSource,
		orgs:          orgSource,
	}
}

// MountRoutes registers the page routes behind the page guard.
func (h *Handler) MountRoutes(r chi.Router, g guard.Guard) {
	r.With(g.RequirePage(guard.AnyAuthenticated)).Get("/dashboard", h.showDashboard)
	r.With(g.RequirePage(guard.AnyAuthenticated)).Get("/tickets", h.showTickets)
	r.With(g.RequirePage(guard.AdminOrManager)).Get("/members", h.showMembers)
	r.With(g.RequirePage(guard.AdminOnly)).Get("/organizations", h.showOrganizations)
}

type dashboardData struct {
	OpenTickets         int
	AssignedToMe        int
	UnreadNotifications int
	RecentTickets       []tickets.Ticket
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var (
		recent []tickets.Ticket
		unread int
	)
	// Both sources sit behind independent pools; fetch them concurrently.
	grp, ctx := errgroup.WithContext(r.Context())
	grp.Go(func() error {
		items, _, err := h.tickets.List(ctx, caller, 1, 10)
		if err != nil {
			return err
		}
		recent = items
		return nil
	})
	grp.Go(func() error {
		_, pagination, err := h.notifications.List(ctx, caller, true, 1, 1)
		if err != nil {
			return err
		}
		unread = pagination.Total
		return nil
	})
	if err := grp.Wait(); err != nil {
		h.logger.Error("load dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := dashboardData{UnreadNotifications: unread, RecentTickets: recent}
	for _, t := range recent {
		if t.Status == tickets.StatusOpen || t.Status == tickets.StatusInProgress {
			data.OpenTickets++
		}
		if t.AssignedTo != nil && *t.AssignedTo == caller.ID {
			data.AssignedToMe++
		}
	}
	h.render(w, r, "pages/dashboard.html", "Dashboard", caller, data)
}

func (h *Handler) showTickets(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	items, pagination, err := h.tickets.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.logger.Error("load tickets page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/tickets.html", "Tickets", caller, map[string]any{
		"Tickets":    items,
		"Pagination": pagination,
	})
}

func (h *Handler) showMembers(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	items, pagination, err := h.members.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.logger.Error("load members page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/members.html", "Members", caller, map[string]any{
		"Members":    items,
		"Pagination": pagination,
	})
}

func (h *Handler) showOrganizations(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	items, pagination, err := h.orgs.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.logger.Error("load organizations page", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/organizations.html", "Organizations", caller, map[string]any{
		"Organizations": items,
		"Pagination":    pagination,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, caller *profiles.Profile, data any) {
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   h.csrf.EnsureToken(w, r),
		CurrentPath: r.URL.Path,
		Profile:     caller,
		Data:        data,
	}
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
	}
}
