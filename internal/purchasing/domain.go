package purchasing

import (
	"fmt"
	"time"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// Status enumerates purchase order lifecycle states. The string values are
// the persisted wire format and must not change.
type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusCompleted    Status = "completed"
	StatusBilled       Status = "billed"
	StatusVendorEdited Status = "vendor_edited"
	StatusAdminEdited  Status = "admin_edited"
	StatusCancelled    Status = "cancelled"
)

// ParseStatus validates a purchase order status value.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted,
		StatusBilled, StatusVendorEdited, StatusAdminEdited, StatusCancelled:
		return Status(value), nil
	}
	return "", fmt.Errorf("%w: unknown purchase order status %q", shared.ErrValidation, value)
}

// IsFinal reports whether the status refuses cancellation.
func (s Status) IsFinal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCompleted, StatusBilled:
		return true
	}
	return false
}

// Actor identifies who performed a field edit; it drives the provenance
// status stamped on a plain update.
type Actor string

const (
	ActorAdmin  Actor = "admin"
	ActorVendor Actor = "vendor"
)

// ParseActor validates an actor value. Empty defaults to admin.
func ParseActor(value string) (Actor, error) {
	switch Actor(value) {
	case ActorAdmin, ActorVendor:
		return Actor(value), nil
	case "":
		return ActorAdmin, nil
	}
	return "", fmt.Errorf("%w: unknown actor %q", shared.ErrValidation, value)
}

// EditedStatus returns the provenance marker for this actor.
func (a Actor) EditedStatus() Status {
	if a == ActorVendor {
		return StatusVendorEdited
	}
	return StatusAdminEdited
}

// Item is a purchase order line.
type Item struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// PurchaseOrder domain model. BillID is the denormalized back-reference to
// the single bill generated from this PO; at most one bill references a PO
// at a time.
type PurchaseOrder struct {
	ID           int64
	OrderNumber  string
	VendorID     int64
	Items        []Item
	TotalAmount  float64
	Status       Status
	BillID       *int64
	IssueDate    time.Time
	DeliveryDate time.Time
	DocumentPath string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateItems checks item shape: quantity strictly positive, unit price
// non-negative.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", shared.ErrValidation)
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", shared.ErrValidation, i+1)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d unit price must not be negative", shared.ErrValidation, i+1)
		}
	}
	return nil
}

// ItemsTotal sums quantity times unit price across items.
func ItemsTotal(items []Item) float64 {
	var total float64
	for _, item := range items {
		total += item.Quantity * item.UnitPrice
	}
	return total
}
