package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// defaultPaymentTerm is added to the issue date when no valid due date is
// supplied.
const defaultPaymentTerm = 30 * 24 * time.Hour

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Bill, error)
	List(ctx context.Context, filters ListFilters, limit, offset int) ([]Bill, int, error)
}

// PORef is the linkage-relevant view of a purchase order.
type PORef struct {
	ID     int64
	BillID *int64
}

// LinkPort maintains the PO side of the PO-Bill linkage. All writes through
// this port happen strictly after the bill itself is durable; failures are
// reported but never undo the bill.
type LinkPort interface {
	PurchaseOrder(ctx context.Context, id int64) (PORef, error)
	Attach(ctx context.Context, poID, billID int64) error
	Relink(ctx context.Context, billID int64, oldPO, newPO *int64) error
	Detach(ctx context.Context, poID, billID int64) error
}

// RenderPort schedules a best-effort document render.
type RenderPort interface {
	EnqueueRender(ctx context.Context, entity string, id int64) error
}

// ArtifactPort removes stored rendered-document artifacts.
type ArtifactPort interface {
	Remove(path string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilters narrows bill listings.
type ListFilters struct {
	Status        string
	PaymentStatus string
	VendorID      int64
}

// Service orchestrates the bill lifecycle.
type Service struct {
	repo      RepositoryPort
	links     LinkPort
	renderer  RenderPort
	artifacts ArtifactPort
	audit     AuditPort
	logger    *slog.Logger
}

// NewService constructs a billing service.
func NewService(repo RepositoryPort, links LinkPort, renderer RenderPort, artifacts ArtifactPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, links: links, renderer: renderer, artifacts: artifacts, audit: audit, logger: logger}
}

// CreateInput describes bill creation.
type CreateInput struct {
	VendorID        int64
	Items           []Item
	IssueDate       time.Time
	DueDate         time.Time
	PurchaseOrderID *int64
	TotalAmount     *float64
}

// UpdateInput is a partial update. SetPurchaseOrder distinguishes "leave
// the reference alone" from "set it to PurchaseOrderID (possibly nil)".
type UpdateInput struct {
	Items            []Item
	TotalAmount      *float64
	DueDate          *time.Time
	Status           *Status
	PaymentStatus    *PaymentStatus
	SetPurchaseOrder bool
	PurchaseOrderID  *int64
}

// Create issues a bill, optionally against an existing purchase order. A
// purchase order that already carries a bill is refused.
func (s *Service) Create(ctx context.Context, input CreateInput) (Bill, error) {
	if err := ValidateItems(input.Items); err != nil {
		return Bill{}, err
	}
	if input.PurchaseOrderID != nil {
		ref, err := s.links.PurchaseOrder(ctx, *input.PurchaseOrderID)
		if err != nil {
			return Bill{}, err
		}
		if ref.BillID != nil {
			return Bill{}, fmt.Errorf("%w: a bill already exists for this purchase order", shared.ErrConflict)
		}
	}

	bill := Bill{
		BillNumber:      shared.DocumentNumber("BILL"),
		VendorID:        input.VendorID,
		PurchaseOrderID: input.PurchaseOrderID,
		Items:           input.Items,
		TotalAmount:     ItemsTotal(input.Items),
		Status:          StatusIssued,
		PaymentStatus:   PaymentUnpaid,
		IssueDate:       input.IssueDate,
		DueDate:         input.DueDate,
	}
	if input.TotalAmount != nil {
		bill.TotalAmount = *input.TotalAmount
	}
	if bill.IssueDate.IsZero() {
		bill.IssueDate = time.Now()
	}
	if bill.DueDate.IsZero() {
		bill.DueDate = bill.IssueDate.Add(defaultPaymentTerm)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Create(ctx, bill)
		if err != nil {
			return err
		}
		bill.ID = id
		return tx.ReplaceItems(ctx, id, bill.Items)
	})
	if err != nil {
		return Bill{}, err
	}

	// The bill is durable from here on; the PO side is best effort and
	// repairable.
	if bill.PurchaseOrderID != nil {
		if err := s.links.Attach(ctx, *bill.PurchaseOrderID, bill.ID); err != nil {
			s.logger.Error("attach purchase order", slog.Any("error", err),
				slog.Int64("bill_id", bill.ID), slog.Int64("po_id", *bill.PurchaseOrderID))
		}
	}

	s.recordAudit(ctx, "BILL_CREATE", bill.ID, map[string]any{"number": bill.BillNumber, "vendor_id": bill.VendorID})
	s.enqueueRender(ctx, bill.ID)
	return bill, nil
}

// Update reconciles the proposed status pair first and rejects the whole
// update on a contradiction. The purchase order reference, when changed, is
// relinked strictly after the bill write is durable.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Bill, error) {
	bill, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}

	current := BillState{Status: bill.Status, PaymentStatus: bill.PaymentStatus, DueDate: bill.DueDate}
	next, err := Reconcile(current, StatusPatch{Status: input.Status, PaymentStatus: input.PaymentStatus}, time.Now())
	if err != nil {
		return Bill{}, err
	}

	oldPO := bill.PurchaseOrderID
	newPO := oldPO
	if input.SetPurchaseOrder {
		newPO = input.PurchaseOrderID
	}
	poChanged := !eqRef(oldPO, newPO)
	if poChanged && newPO != nil {
		ref, err := s.links.PurchaseOrder(ctx, *newPO)
		if err != nil {
			return Bill{}, err
		}
		if ref.BillID != nil && *ref.BillID != bill.ID {
			return Bill{}, fmt.Errorf("%w: a bill already exists for this purchase order", shared.ErrConflict)
		}
	}

	itemsChanged := false
	if input.Items != nil {
		if err := ValidateItems(input.Items); err != nil {
			return Bill{}, err
		}
		bill.Items = input.Items
		itemsChanged = true
	}
	switch {
	case input.TotalAmount != nil:
		bill.TotalAmount = *input.TotalAmount
	case itemsChanged:
		bill.TotalAmount = ItemsTotal(bill.Items)
	}
	if input.DueDate != nil {
		bill.DueDate = *input.DueDate
		if bill.DueDate.IsZero() {
			bill.DueDate = bill.IssueDate.Add(defaultPaymentTerm)
		}
	}
	bill.Status = next.Status
	bill.PaymentStatus = next.PaymentStatus
	bill.PurchaseOrderID = newPO

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Update(ctx, bill); err != nil {
			return err
		}
		if itemsChanged {
			return tx.ReplaceItems(ctx, bill.ID, bill.Items)
		}
		return nil
	})
	if err != nil {
		return Bill{}, err
	}

	if poChanged {
		if err := s.links.Relink(ctx, bill.ID, oldPO, newPO); err != nil {
			s.logger.Error("relink purchase order", slog.Any("error", err), slog.Int64("bill_id", bill.ID))
		}
	}

	s.recordAudit(ctx, "BILL_UPDATE", bill.ID, map[string]any{
		"status":         string(bill.Status),
		"payment_status": string(bill.PaymentStatus),
	})
	s.enqueueRender(ctx, bill.ID)
	return bill, nil
}

// Delete unlinks the referenced purchase order, removes the rendered
// artifact best effort, then deletes the bill record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	bill, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if bill.PurchaseOrderID != nil {
		ref, err := s.links.PurchaseOrder(ctx, *bill.PurchaseOrderID)
		if err == nil && ref.BillID != nil && *ref.BillID == bill.ID {
			if err := s.links.Detach(ctx, ref.ID, bill.ID); err != nil {
				s.logger.Error("detach purchase order", slog.Any("error", err), slog.Int64("bill_id", bill.ID))
			}
		}
	}

	if bill.DocumentPath != "" && s.artifacts != nil {
		if err := s.artifacts.Remove(bill.DocumentPath); err != nil {
			s.logger.Warn("remove document artifact", slog.Any("error", err), slog.String("path", bill.DocumentPath))
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "BILL_DELETE", id, map[string]any{"number": bill.BillNumber})
	return nil
}

// Get returns a bill with items.
func (s *Service) Get(ctx context.Context, id int64) (Bill, error) {
	return s.repo.Get(ctx, id)
}

// List returns bills matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters, limit, offset int) ([]Bill, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, filters, limit, offset)
}

func eqRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "bill", EntityID: fmt.Sprintf("%d", entityID), Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.Any("error", err), slog.String("action", action))
	}
}

func (s *Service) enqueueRender(ctx context.Context, billID int64) {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.EnqueueRender(ctx, "bill", billID); err != nil && s.logger != nil {
		s.logger.Warn("enqueue render", slog.Any("error", err), slog.Int64("bill_id", billID))
	}
}
