package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/shared"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
	"github.com/vendorbridge/vendorbridge/report"
)

// BillSource loads bills and records their rendered artifact.
type BillSource interface {
	Get(ctx context.Context, id int64) (billing.Bill, error)
	SetDocumentPath(ctx context.Context, id int64, path string) error
}

// PurchaseOrderSource loads purchase orders and records their rendered
// artifact.
type PurchaseOrderSource interface {
	Get(ctx context.Context, id int64) (purchasing.PurchaseOrder, error)
	SetDocumentPath(ctx context.Context, id int64, path string) error
}

// VendorSource resolves vendor display data.
type VendorSource interface {
	Get(ctx context.Context, id int64) (vendors.Vendor, error)
}

// Renderer converts HTML into a PDF document.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// ArtifactStore persists rendered documents and returns their path.
type ArtifactStore interface {
	Save(name string, data []byte) (string, error)
}

// NewRenderDocumentHandler builds the document:render task handler. The
// render is best effort from the lifecycle's point of view; here a failed
// render is retried by the queue, while a missing record skips retries.
func NewRenderDocumentHandler(bills BillSource, orders PurchaseOrderSource, vendorSrc VendorSource, renderer Renderer, store ArtifactStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RenderDocumentPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		var html, name string
		var record func(path string) error
		switch payload.Entity {
		case "bill":
			bill, err := bills.Get(ctx, payload.ID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return asynq.SkipRetry
				}
				return err
			}
			vendor, err := vendorSrc.Get(ctx, bill.VendorID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			html = report.BillHTML(bill, vendor)
			name = fmt.Sprintf("bill-%d.pdf", bill.ID)
			record = func(path string) error { return bills.SetDocumentPath(ctx, bill.ID, path) }
		case "purchase_order":
			po, err := orders.Get(ctx, payload.ID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return asynq.SkipRetry
				}
				return err
			}
			vendor, err := vendorSrc.Get(ctx, po.VendorID)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			html = report.PurchaseOrderHTML(po, vendor)
			name = fmt.Sprintf("po-%d.pdf", po.ID)
			record = func(path string) error { return orders.SetDocumentPath(ctx, po.ID, path) }
		default:
			return asynq.SkipRetry
		}

		pdf, err := renderer.RenderHTML(ctx, html)
		if err != nil {
			logger.Warn("render document", slog.Any("error", err),
				slog.String("entity", payload.Entity), slog.Int64("id", payload.ID))
			return err
		}
		path, err := store.Save(name, pdf)
		if err != nil {
			return err
		}
		return record(path)
	}
}
