package auth_test

import (
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/deskhive/deskhive/internal/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRouter(h *auth.Handler) chi.Router {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}
