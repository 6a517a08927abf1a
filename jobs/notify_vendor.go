package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// NewNotifyVendorHandler builds the vendor:notify task handler. Delivery is
// a structured log line for now; the payload carries everything an SMTP or
// webhook channel would need.
func NewNotifyVendorHandler(vendorSrc VendorSource, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyVendorPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		vendor, err := vendorSrc.Get(ctx, payload.VendorID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				logger.Warn("notify vendor: vendor missing", slog.Int64("vendor_id", payload.VendorID))
				return asynq.SkipRetry
			}
			return err
		}
		logger.Info("vendor notification",
			slog.Int64("vendor_id", vendor.ID),
			slog.String("email", vendor.Email),
			slog.String("entity", payload.Entity),
			slog.Int64("entity_id", payload.EntityID),
			slog.String("message", payload.Message),
		)
		return nil
	}
}
