package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/dashboard"
	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/identity"
	"github.com/deskhive/deskhive/internal/notifications"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/orgs"
	"github.com/deskhive/deskhive/internal/shared"
	"github.com/deskhive/deskhive/internal/tickets"
	"github.com/deskhive/deskhive/internal/users"
	"github.com/deskhive/deskhive/internal/view"
	"github.com/deskhive/deskhive/jobs"
	"github.com/deskhive/deskhive/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Templates   *view.Engine
	Resolver    identity.Resolver
	CSRFManager *shared.CSRFManager
	Guard       guard.Guard

	AuthHandler         *auth.Handler
	DashboardHandler    *dashboard.Handler
	TicketHandler       *tickets.Handler
	OrgHandler          *orgs.Handler
	UserHandler         *users.Handler
	NotificationHandler *notifications.Handler
	JobHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with DeskHive defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		Resolver:    params.Resolver,
		CSRFManager: params.CSRFManager,
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Anonymous visitors land on the login form; everyone else on the
	// dashboard. The session gate has already sorted out which one applies.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) != nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	// Self-service registration stays off; accounts come from the member
	// management flow.
	r.Get("/register", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/registration-disabled", http.StatusFound)
	})
	r.Get("/registration-disabled", func(w http.ResponseWriter, r *http.Request) {
		data := view.TemplateData{Title: "Registration disabled", CurrentPath: r.URL.Path}
		if err := params.Templates.Render(w, "pages/registration_disabled.html", data); err != nil {
			params.Logger.Error("render registration disabled", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	params.AuthHandler.MountRoutes(r)
	params.DashboardHandler.MountRoutes(r, params.Guard)
	params.TicketHandler.MountRoutes(r, params.Guard)
	params.OrgHandler.MountRoutes(r, params.Guard)
	params.UserHandler.MountRoutes(r, params.Guard)
	params.NotificationHandler.MountRoutes(r, params.Guard)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
