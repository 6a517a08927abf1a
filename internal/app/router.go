package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vendorbridge/vendorbridge/internal/audit"
	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/linkage"
	"github.com/vendorbridge/vendorbridge/internal/observability"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
	"github.com/vendorbridge/vendorbridge/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	VendorHandler     *vendors.Handler
	PurchasingHandler *purchasing.Handler
	BillingHandler    *billing.Handler
	LinkageHandler    *linkage.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with VendorBridge defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Metrics.Middleware)

	r.Handle("/metrics", params.Metrics.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/vendors", params.VendorHandler.MountRoutes)
		r.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
		r.Route("/bills", params.BillingHandler.MountRoutes)
		r.Route("/linkage", params.LinkageHandler.MountRoutes)
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
