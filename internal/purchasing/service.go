package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vendorbridge/vendorbridge/internal/shared"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, filters ListFilters, limit, offset int) ([]PurchaseOrder, int, error)
}

// VendorPort exposes the vendor approval gate.
type VendorPort interface {
	RequireApproved(ctx context.Context, id int64) (vendors.Vendor, error)
}

// NotifierPort sends a best-effort message to the vendor user.
type NotifierPort interface {
	NotifyVendor(ctx context.Context, vendorID int64, message, entity string, entityID int64) error
}

// RenderPort schedules a best-effort document render.
type RenderPort interface {
	EnqueueRender(ctx context.Context, entity string, id int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ListFilters narrows purchase order listings.
type ListFilters struct {
	Status   string
	VendorID int64
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo     RepositoryPort
	vendors  VendorPort
	notifier NotifierPort
	renderer RenderPort
	audit    AuditPort
	logger   *slog.Logger
}

// NewService constructs a purchasing service.
func NewService(repo RepositoryPort, vendorGate VendorPort, notifier NotifierPort, renderer RenderPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, vendors: vendorGate, notifier: notifier, renderer: renderer, audit: audit, logger: logger}
}

// CreateInput describes purchase order creation.
type CreateInput struct {
	VendorID     int64
	Items        []Item
	IssueDate    time.Time
	DeliveryDate time.Time
	TotalAmount  *float64
}

// UpdateInput is a partial update. Nil fields are left untouched. Status,
// when present, is applied verbatim and suppresses the provenance marker.
type UpdateInput struct {
	VendorID     *int64
	Items        []Item
	DeliveryDate *time.Time
	TotalAmount  *float64
	Status       *Status
	Actor        Actor
}

// Create issues a purchase order against an approved vendor.
func (s *Service) Create(ctx context.Context, input CreateInput) (PurchaseOrder, error) {
	if _, err := s.vendors.RequireApproved(ctx, input.VendorID); err != nil {
		return PurchaseOrder{}, err
	}
	if err := ValidateItems(input.Items); err != nil {
		return PurchaseOrder{}, err
	}

	po := PurchaseOrder{
		OrderNumber:  shared.DocumentNumber("PO"),
		VendorID:     input.VendorID,
		Items:        input.Items,
		TotalAmount:  ItemsTotal(input.Items),
		Status:       StatusPending,
		IssueDate:    input.IssueDate,
		DeliveryDate: input.DeliveryDate,
	}
	if input.TotalAmount != nil {
		po.TotalAmount = *input.TotalAmount
	}
	if po.IssueDate.IsZero() {
		po.IssueDate = time.Now()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Create(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		return tx.ReplaceItems(ctx, id, po.Items)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.recordAudit(ctx, "PO_CREATE", po.ID, map[string]any{"number": po.OrderNumber, "vendor_id": po.VendorID})
	s.enqueueRender(ctx, po.ID)
	return po, nil
}

// UpdateFields applies item, vendor, and date changes. A plain field update
// without an explicit status stamps the actor's provenance marker on a
// non-final, non-cancelled purchase order.
func (s *Service) UpdateFields(ctx context.Context, id int64, input UpdateInput) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}

	if input.VendorID != nil && *input.VendorID != po.VendorID {
		if po.BillID != nil {
			return PurchaseOrder{}, fmt.Errorf("%w: vendor cannot change once the purchase order is billed", shared.ErrConflict)
		}
		if _, err := s.vendors.RequireApproved(ctx, *input.VendorID); err != nil {
			return PurchaseOrder{}, err
		}
		po.VendorID = *input.VendorID
	}

	itemsChanged := false
	if input.Items != nil {
		if err := ValidateItems(input.Items); err != nil {
			return PurchaseOrder{}, err
		}
		po.Items = input.Items
		itemsChanged = true
	}
	if input.DeliveryDate != nil {
		po.DeliveryDate = *input.DeliveryDate
	}
	switch {
	case input.TotalAmount != nil:
		po.TotalAmount = *input.TotalAmount
	case itemsChanged:
		po.TotalAmount = ItemsTotal(po.Items)
	}

	switch {
	case input.Status != nil:
		po.Status = *input.Status
	case !po.Status.IsFinal() && po.Status != StatusCancelled:
		po.Status = input.Actor.EditedStatus()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Update(ctx, po); err != nil {
			return err
		}
		if itemsChanged {
			return tx.ReplaceItems(ctx, po.ID, po.Items)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.recordAudit(ctx, "PO_UPDATE", po.ID, map[string]any{"status": string(po.Status)})
	s.enqueueRender(ctx, po.ID)
	return po, nil
}

// SetStatus assigns a status directly. Transition legality for cancel,
// restore and delete is enforced by their dedicated operations.
func (s *Service) SetStatus(ctx context.Context, id int64, status Status) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, status)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_STATUS", id, map[string]any{"status": string(status)})
	return po, nil
}

// Cancel moves a purchase order to cancelled. Final states refuse
// cancellation.
func (s *Service) Cancel(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status.IsFinal() {
		return PurchaseOrder{}, fmt.Errorf("%w: cannot cancel a purchase order with status %q", shared.ErrConflict, po.Status)
	}
	po.Status = StatusCancelled
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, StatusCancelled)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_CANCEL", id, map[string]any{"number": po.OrderNumber})
	s.notify(ctx, po.VendorID, fmt.Sprintf("Purchase order %s was cancelled", po.OrderNumber), id)
	return po, nil
}

// Restore moves a cancelled purchase order back to pending.
func (s *Service) Restore(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusCancelled {
		return PurchaseOrder{}, fmt.Errorf("%w: only a cancelled purchase order can be restored, current status is %q", shared.ErrConflict, po.Status)
	}
	po.Status = StatusPending
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, id, StatusPending)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "PO_RESTORE", id, map[string]any{"number": po.OrderNumber})
	s.notify(ctx, po.VendorID, fmt.Sprintf("Purchase order %s was restored", po.OrderNumber), id)
	return po, nil
}

// PermanentDelete removes a cancelled purchase order irrevocably.
func (s *Service) PermanentDelete(ctx context.Context, id int64) error {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if po.Status != StatusCancelled {
		return fmt.Errorf("%w: only a cancelled purchase order can be permanently deleted, current status is %q", shared.ErrConflict, po.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PO_DELETE", id, map[string]any{"number": po.OrderNumber})
	return nil
}

// Get returns a purchase order with items.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns purchase orders matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters, limit, offset int) ([]PurchaseOrder, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, filters, limit, offset)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.Any("error", err), slog.String("action", action))
	}
}

func (s *Service) notify(ctx context.Context, vendorID int64, message string, poID int64) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyVendor(ctx, vendorID, message, "purchase_order", poID); err != nil && s.logger != nil {
		s.logger.Warn("notify vendor", slog.Any("error", err), slog.Int64("po_id", poID))
	}
}

func (s *Service) enqueueRender(ctx context.Context, poID int64) {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.EnqueueRender(ctx, "purchase_order", poID); err != nil && s.logger != nil {
		s.logger.Warn("enqueue render", slog.Any("error", err), slog.Int64("po_id", poID))
	}
}
