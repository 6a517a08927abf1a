package vendors

import (
	"fmt"
	"time"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// Status enumerates vendor onboarding states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a vendor status value.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusApproved, StatusSuspended:
		return Status(value), nil
	}
	return "", fmt.Errorf("%w: unknown vendor status %q", shared.ErrValidation, value)
}

// Vendor domain model.
type Vendor struct {
	ID        int64
	Name      string
	Email     string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
