package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/deskhive/deskhive/internal/authz"
	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/platform/httpx"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Handler wires the member management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers user routes. Listing admits managers and admins;
// role changes and password resets are admin only.
func (h *Handler) MountRoutes(r chi.Router, g guard.Guard) {
	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(g.Require(guard.AdminOrManager))
			r.Get("/", h.list)
			r.Get("/{id}", h.get)
			r.Post("/", h.create)
		})
		r.Group(func(r chi.Router) {
			r.Use(g.Require(guard.AdminOnly))
			r.Patch("/{id}/role", h.changeRole)
			r.Post("/{id}/reset-password", h.resetPassword)
		})
	})
	r.With(g.Require(guard.AnyAuthenticated)).Patch("/api/profile", h.updateProfile)
}

type profileResponse struct {
	ID             string  `json:"id"`
	Role           string  `json:"role"`
	OrganizationID *string `json:"organization_id"`
	FullName       string  `json:"full_name"`
	AvatarURL      string  `json:"avatar_url,omitempty"`
}

func toResponse(p *profiles.Profile) profileResponse {
	return profileResponse{
		ID:             p.ID,
		Role:           p.Role.String(),
		OrganizationID: p.OrganizationID,
		FullName:       p.FullName,
		AvatarURL:      p.AvatarURL,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	items, pagination, err := h.service.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	responses := make([]profileResponse, len(items))
	for i := range items {
		responses[i] = toResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      responses,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	target, err := h.service.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(target))
}

type createUserRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8,max=128"`
	FullName       string  `json:"full_name" validate:"omitempty,max=200"`
	Role           string  `json:"role" validate:"required,oneof=admin manager user"`
	OrganizationID *string `json:"organization_id" validate:"omitempty,max=64"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	role := authz.ParseRole(req.Role)
	if !role.Valid() {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	profile, err := h.service.Create(r.Context(), caller, CreateInput{
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Role:           role,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(profile))
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin manager user"`
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	role := authz.ParseRole(req.Role)
	if !role.Valid() {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	if err := h.service.ChangeRole(r.Context(), caller, chi.URLParam(r, "id"), role); err != nil {
		h.fail(w, "change role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	if err := h.service.ResetPassword(r.Context(), caller, chi.URLParam(r, "id"), req.Password); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateProfileRequest struct {
	FullName  string `json:"full_name" validate:"omitempty,max=200"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=500"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	if err := h.service.UpdateProfile(r.Context(), caller, req.FullName, req.AvatarURL); err != nil {
		h.fail(w, "update profile", err)
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
