package httpx

import (
	"errors"
	"net/http"

	"github.com/deskhive/deskhive/internal/shared"
)

// Messages returned to API clients. Role and tenant failures share one body so
// a probe cannot distinguish "exists in another tenant" from "not allowed".
const (
	MsgUnauthenticated = "User not authenticated"
	MsgAccessDenied    = "Access denied"
	MsgInsufficient    = "Insufficient permissions"
)

// RespondError maps the domain error taxonomy to API responses. Upstream
// failures surface as a generic 401: the caller cannot act on the difference
// and the raw error must never reach the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrUpstreamUnavailable):
		Error(w, http.StatusUnauthorized, MsgUnauthenticated)
	case errors.Is(err, shared.ErrProfileMissing):
		Error(w, http.StatusForbidden, MsgAccessDenied)
	case errors.Is(err, shared.ErrInsufficientRole), errors.Is(err, shared.ErrCrossTenantDenied):
		Error(w, http.StatusForbidden, MsgInsufficient)
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, shared.ErrDuplicate):
		Error(w, http.StatusConflict, "Duplicate entry")
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, "Validation failed")
	case errors.Is(err, shared.ErrTooManyAttempts):
		Error(w, http.StatusTooManyRequests, "Too many attempts")
	default:
		Error(w, http.StatusInternalServerError, "Internal error")
	}
}
