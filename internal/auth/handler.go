package auth

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/deskhive/deskhive/internal/identity"
	"github.com/deskhive/deskhive/internal/platform/httpx"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
	"github.com/deskhive/deskhive/internal/view"
)

// ProfileLoader resolves the caller's application profile for /api/me.
type ProfileLoader interface {
	Load(ctx context.Context, principalID string) (*profiles.Profile, error)
}

// Handler wires HTTP endpoints for the login and logout flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	profiles  ProfileLoader
	templates *view.Engine
	csrf      *shared.CSRFManager
	secure    bool
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, loader ProfileLoader, templates *view.Engine, csrf *shared.CSRFManager, secure bool) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		profiles:  loader,
		templates: templates,
		csrf:      csrf,
		secure:    secure,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes. The session gate has already sent
// authenticated visitors away from /login, so the handlers only see anonymous
// traffic plus logout.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/api/me", h.me)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, loginPageData{}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		formErrors["general"] = "Enter your email address and password"
	}

	if len(formErrors) == 0 {
		_, pair, err := h.service.Login(r.Context(), form.Email, form.Password, clientIP(r))
		switch {
		case err == nil:
			identity.WriteTokenPair(w, pair, h.secure)
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrTooManyAttempts):
			form.Password = ""
			h.renderLogin(w, r, loginPageData{Form: form, Errors: map[string]string{
				"general": "Too many attempts, try again later",
			}}, http.StatusTooManyRequests)
			return
		case errors.Is(err, shared.ErrUpstreamUnavailable):
			h.logger.Error("login upstream", slog.Any("error", err))
			formErrors["general"] = "Sign-in is temporarily unavailable"
		default:
			formErrors["general"] = "Invalid email or password"
		}
	}

	form.Password = ""
	h.renderLogin(w, r, loginPageData{Form: form, Errors: formErrors}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	creds := identity.ReadCredentials(r)
	if creds.AccessToken != "" {
		h.service.Logout(r.Context(), creds.AccessToken)
	}
	identity.ClearCredentials(w, h.secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// me reports the caller's identity. A principal without a profile row still
// gets its identity back; the profile section is simply null.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Error(w, http.StatusUnauthorized, httpx.MsgUnauthenticated)
		return
	}
	body := map[string]any{
		"id":      principal.ID,
		"email":   principal.Email,
		"profile": nil,
	}
	profile, err := h.profiles.Load(r.Context(), principal.ID)
	if err == nil {
		body["profile"] = map[string]any{
			"role":            profile.Role.String(),
			"organization_id": profile.OrganizationID,
			"full_name":       profile.FullName,
		}
	} else if !errors.Is(err, shared.ErrProfileMissing) {
		httpx.RespondError(w, shared.ErrUpstreamUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	token := h.csrf.EnsureToken(w, r)
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   token,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
