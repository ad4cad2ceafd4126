package notifications

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deskhive/deskhive/internal/guard"
	"github.com/deskhive/deskhive/internal/platform/httpx"
	"github.com/deskhive/deskhive/internal/profiles"
	"github.com/deskhive/deskhive/internal/shared"
)

// Handler wires the notification feed endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router, g guard.Guard) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(g.Require(guard.AnyAuthenticated))
		r.Get("/", h.list)
		r.Post("/{id}/read", h.markRead)
		r.Post("/read-all", h.markAllRead)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	page, perPage := shared.PageFromRequest(r)
	unreadOnly := r.URL.Query().Get("unread") == "true"

	items, pagination, err := h.service.List(r.Context(), caller, unreadOnly, page, perPage)
	if err != nil {
		h.fail(w, "list notifications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"pagination":    pagination,
	})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	if err := h.service.MarkRead(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	caller := profiles.FromContext(r.Context())
	if err := h.service.MarkAllRead(r.Context(), caller); err != nil {
		h.fail(w, "mark all notifications read", err)
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
