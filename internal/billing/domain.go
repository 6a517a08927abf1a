package billing

import (
	"fmt"
	"time"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// Status enumerates bill workflow states: the document's position in its
// processing pipeline. The string values are the persisted wire format.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusSent      Status = "sent"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a workflow status value.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusDraft, StatusIssued, StatusSent, StatusOverdue, StatusCancelled, StatusCompleted:
		return Status(value), nil
	}
	return "", fmt.Errorf("%w: unknown bill status %q", shared.ErrValidation, value)
}

// PaymentStatus enumerates financial settlement states. Payment status is
// the single source of financial truth: when it changes, the workflow
// status is derived from it, never the other way around.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentRefunded      PaymentStatus = "refunded"
)

// ParsePaymentStatus validates a payment status value.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	switch PaymentStatus(value) {
	case PaymentUnpaid, PaymentPartiallyPaid, PaymentPaid, PaymentRefunded:
		return PaymentStatus(value), nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", shared.ErrValidation, value)
}

// Item is a bill line.
type Item struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// Bill domain model. PurchaseOrderID is optional; at most one bill
// references a given purchase order at a time.
type Bill struct {
	ID              int64
	BillNumber      string
	VendorID        int64
	PurchaseOrderID *int64
	Items           []Item
	TotalAmount     float64
	Status          Status
	PaymentStatus   PaymentStatus
	IssueDate       time.Time
	DueDate         time.Time
	DocumentPath    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
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
