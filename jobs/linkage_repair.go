package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vendorbridge/vendorbridge/internal/linkage"
)

// Repairer runs a full linkage consistency sweep.
type Repairer interface {
	Repair(ctx context.Context) (linkage.RepairReport, error)
}

// NewLinkageRepairHandler builds the linkage:repair task handler used by the
// periodic scheduler entry.
func NewLinkageRepairHandler(repairer Repairer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		report, err := repairer.Repair(ctx)
		if err != nil {
			return err
		}
		logger.Info("linkage repair",
			slog.Int("relinked", report.Relinked),
			slog.Int("cleared", report.Cleared),
			slog.Int("conflicts", report.Conflicts),
		)
		return nil
	}
}
