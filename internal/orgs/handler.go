package orgs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/platform/httpx"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Handler wires the organization API endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers organization routes. Reads admit any authenticated
// member; writes are restricted to administrators at the route level, and the
// service applies the same rule again.
func (h *Handler) MountRoutes(r chi.Router, g guard.Guard) {
	r.Route("/api/organizations", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(g.Require(guard.AnyAuthenticated))
			r.Get("/", h.list)
			r.Get("/{id}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(g.Require(guard.AdminOnly))
			r.Post("/", h.create)
			r.Patch("/{id}", h.update)
			r.Delete("/{id}", h.remove)
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	items, pagination, err := h.service.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.fail(w, "list organizations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"organizations": items,
		"pagination":    pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	org, err := h.service.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get organization", err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

type orgRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=120"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req orgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	org, err := h.service.Create(r.Context(), caller, req.Name, req.Slug)
	if err != nil {
		h.fail(w, "create organization", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

type orgUpdateRequest struct {
	Name string `json:"name" validate:"omitempty,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=120"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req orgUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	org, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "id"), req.Name, req.Slug)
	if err != nil {
		h.fail(w, "update organization", err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	if err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete organization", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
