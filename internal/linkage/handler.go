package linkage

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorbridge/vendorbridge/internal/platform/httpx"
)

// Handler exposes the linkage status and manual repair endpoints.
type Handler struct {
	logger      *slog.Logger
	coordinator *Coordinator
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, coordinator *Coordinator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, coordinator: coordinator}
}

// MountRoutes registers linkage routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/status", h.status)
	r.Post("/repair", h.repair)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	overview, err := h.coordinator.Inspect(r.Context())
	if err != nil {
		h.logger.Error("linkage inspect", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) repair(w http.ResponseWriter, r *http.Request) {
	report, err := h.coordinator.Repair(r.Context())
	if err != nil {
		h.logger.Error("linkage repair", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
