package tickets

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/platform/httpx"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Handler wires the ticket API endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		validator:   validator.New(),
	}
}

// MountRoutes registers ticket routes behind the authenticated guard.
func (h *Handler) MountRoutes(r chi.Router, g guard.Guard) {
	r.Route("/api/tickets", func(r chi.Router) {
		r.Use(g.Require(guard.AnyAuthenticated))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
		r.Post("/{id}/assign", h.assign)
		r.Get("/{id}/comments", h.listComments)
		r.Post("/{id}/comments", h.addComment)
	})
}

type ticketResponse struct {
	ID             string  `json:"id"`
	OrganizationID *string `json:"organization_id"`
	CreatedBy      string  `json:"created_by"`
	AssignedTo     *string `json:"assigned_to"`
	Subject        string  `json:"subject"`
	Body           string  `json:"body"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toResponse(t *Ticket) ticketResponse {
	return ticketResponse{
		ID:             t.ID,
		OrganizationID: t.OrganizationID,
		CreatedBy:      t.CreatedBy,
		AssignedTo:     t.AssignedTo,
		Subject:        t.Subject,
		Body:           t.Body,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		CreatedAt:      t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:      t.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	items, pagination, err := h.service.List(r.Context(), caller, page, perPage)
	if err != nil {
		h.fail(w, r, "list tickets", err)
		return
	}
	responses := make([]ticketResponse, len(items))
	for i := range items {
		responses[i] = toResponse(&items[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"tickets":    responses,
		"pagination": pagination,
	})
}

type createRequest struct {
	Subject        string  `json:"subject" validate:"required,max=200"`
	Body           string  `json:"body" validate:"required,max=20000"`
	Priority       string  `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	OrganizationID *string `json:"organization_id" validate:"omitempty,max=64"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	key := r.Header.Get("X-Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "tickets"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, shared.ErrDuplicate)
				return
			}
			h.fail(w, r, "idempotency check", err)
			return
		}
	}

	ticket, err := h.service.Create(r.Context(), caller, CreateInput{
		Subject:        req.Subject,
		Body:           req.Body,
		Priority:       Priority(req.Priority),
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		// Release the key so a corrected retry is not mistaken for a replay.
		if key != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), key); delErr != nil {
				h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", delErr))
			}
		}
		h.fail(w, r, "create ticket", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(ticket))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	ticket, err := h.service.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ticket))
}

type updateRequest struct {
	Subject  *string `json:"subject" validate:"omitempty,max=200"`
	Body     *string `json:"body" validate:"omitempty,max=20000"`
	Status   *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority *string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	in := UpdateInput{Subject: req.Subject, Body: req.Body}
	if req.Status != nil {
		status := Status(*req.Status)
		in.Status = &status
	}
	if req.Priority != nil {
		priority := Priority(*req.Priority)
		in.Priority = &priority
	}

	ticket, err := h.service.Update(r.Context(), caller, chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "update ticket", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ticket))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	if err := h.service.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete ticket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required,max=64"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	if err := h.service.Assign(r.Context(), caller, chi.URLParam(r, "id"), req.AssigneeID); err != nil {
		h.fail(w, r, "assign ticket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	comments, err := h.service.Comments(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "list comments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"comments": comments})
}

type commentRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())

	var req commentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}

	comment, err := h.service.AddComment(r.Context(), caller, chi.URLParam(r, "id"), req.Body)
	if err != nil {
		h.fail(w, r, "add comment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if h.logger != nil {
		switch {
		case errors.Is(err, shared.ErrCrossTenantDenied):
			h.logger.Warn(op, slog.String("rule", "cross_tenant_denied"), slog.String("path", r.URL.Path))
		case errors.Is(err, shared.ErrInsufficientRole):
			h.logger.Warn(op, slog.String("rule", "insufficient_role"), slog.String("path", r.URL.Path))
		case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrValidation):
			// Client-side noise, not worth a log line.
		default:
			h.logger.Error(op, slog.Any("error", err))
		}
	}
	httpx.RespondError(w, err)
}
