package notify

import (
	"context"
	"log/slog"

	"github.com/vendorbridge/vendorbridge/jobs"
)

// QueueClient enqueues vendor notification tasks.
type QueueClient interface {
	EnqueueNotifyVendor(ctx context.Context, payload jobs.NotifyVendorPayload) error
}

// Dispatcher deduplicates and enqueues vendor notifications. It satisfies
// the purchasing service's notifier port.
type Dispatcher struct {
	queue  QueueClient
	dedup  *Dedup
	logger *slog.Logger
}

func NewDispatcher(queue QueueClient, dedup *Dedup, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{queue: queue, dedup: dedup, logger: logger}
}

// NotifyVendor enqueues a notification unless an identical one was sent to
// the same vendor within the dedup window. Dedup failures fall open so a
// Redis hiccup never swallows a notification.
func (d *Dispatcher) NotifyVendor(ctx context.Context, vendorID int64, message, entity string, entityID int64) error {
	send, err := d.dedup.ShouldSend(ctx, Key(vendorID, message))
	if err != nil {
		d.logger.Warn("notification dedup check", slog.Any("error", err))
		send = true
	}
	if !send {
		d.logger.Debug("notification suppressed",
			slog.Int64("vendor_id", vendorID), slog.String("message", message))
		return nil
	}
	return d.queue.EnqueueNotifyVendor(ctx, jobs.NotifyVendorPayload{
		VendorID: vendorID,
		Message:  message,
		Entity:   entity,
		EntityID: entityID,
	})
}
