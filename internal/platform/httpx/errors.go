package httpx

import (
	"errors"
	"net/http"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP responses. Messages
// for validation and conflict errors pass through verbatim so the caller
// sees the violated rule, never a generic failure.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
