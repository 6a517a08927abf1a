// Package linkage keeps the denormalized PO-Bill cross-references
// consistent: at most one bill references a purchase order, and a purchase
// order's bill pointer always names the bill that references it.
package linkage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
)

// PurchaseOrderStore is the PO-side persistence consumed by the coordinator.
type PurchaseOrderStore interface {
	Get(ctx context.Context, id int64) (purchasing.PurchaseOrder, error)
	SetBillRef(ctx context.Context, id int64, billID *int64, status purchasing.Status) error
	ClearBillRef(ctx context.Context, id int64) error
	ListLinked(ctx context.Context) ([]purchasing.PurchaseOrder, error)
}

// BillStore is the bill-side persistence consumed by the repair pass.
type BillStore interface {
	ListLinked(ctx context.Context) ([]billing.Bill, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// Coordinator implements the bill lifecycle's link port and the corrective
// repair pass.
type Coordinator struct {
	pos    PurchaseOrderStore
	bills  BillStore
	logger *slog.Logger
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(pos PurchaseOrderStore, bills BillStore, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{pos: pos, bills: bills, logger: logger}
}

// PurchaseOrder returns the linkage-relevant view of a purchase order.
func (c *Coordinator) PurchaseOrder(ctx context.Context, id int64) (billing.PORef, error) {
	po, err := c.pos.Get(ctx, id)
	if err != nil {
		return billing.PORef{}, err
	}
	return billing.PORef{ID: po.ID, BillID: po.BillID}, nil
}

// Attach points a purchase order at the bill generated from it and marks it
// billed.
func (c *Coordinator) Attach(ctx context.Context, poID, billID int64) error {
	return c.pos.SetBillRef(ctx, poID, &billID, purchasing.StatusBilled)
}

// Detach clears the purchase order's bill pointer without touching its
// status, used when the bill is deleted.
func (c *Coordinator) Detach(ctx context.Context, poID, billID int64) error {
	po, err := c.pos.Get(ctx, poID)
	if err != nil {
		return err
	}
	if po.BillID == nil || *po.BillID != billID {
		return nil
	}
	return c.pos.ClearBillRef(ctx, poID)
}

// Relink moves a bill's purchase order reference from oldPO to newPO. The
// old side is released back to pending, never cancelled; the new side is
// marked billed. Both steps are attempted even if one fails, and any
// failure is returned for logging while the bill state stands.
func (c *Coordinator) Relink(ctx context.Context, billID int64, oldPO, newPO *int64) error {
	var errs []error

	if oldPO != nil && (newPO == nil || *newPO != *oldPO) {
		po, err := c.pos.Get(ctx, *oldPO)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("unlink po %d: %w", *oldPO, err))
		case po.BillID != nil && *po.BillID == billID:
			if err := c.pos.SetBillRef(ctx, *oldPO, nil, purchasing.StatusPending); err != nil {
				errs = append(errs, fmt.Errorf("unlink po %d: %w", *oldPO, err))
			}
		}
	}

	if newPO != nil && (oldPO == nil || *oldPO != *newPO) {
		if err := c.pos.SetBillRef(ctx, *newPO, &billID, purchasing.StatusBilled); err != nil {
			errs = append(errs, fmt.Errorf("link po %d: %w", *newPO, err))
		}
	}

	return errors.Join(errs...)
}

// Overview is a read-only snapshot of cross-reference health.
type Overview struct {
	LinkedBills  int `json:"linked_bills"`
	LinkedOrders int `json:"linked_orders"`
	Dangling     int `json:"dangling"`
}

// Inspect loads both sides of the linkage and counts references that do not
// point back at each other. Unlike Repair it writes nothing, so it is safe
// to poll.
func (c *Coordinator) Inspect(ctx context.Context) (Overview, error) {
	var (
		bills  []billing.Bill
		orders []purchasing.PurchaseOrder
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bills, err = c.bills.ListLinked(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = c.pos.ListLinked(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	backRef := make(map[int64]int64, len(orders))
	for _, po := range orders {
		if po.BillID != nil {
			backRef[po.ID] = *po.BillID
		}
	}
	referenced := make(map[int64]int64, len(bills))
	for _, bill := range bills {
		referenced[*bill.PurchaseOrderID] = bill.ID
	}

	overview := Overview{LinkedBills: len(bills), LinkedOrders: len(orders)}
	for _, bill := range bills {
		if billID, ok := backRef[*bill.PurchaseOrderID]; !ok || billID != bill.ID {
			overview.Dangling++
		}
	}
	for _, po := range orders {
		if po.BillID == nil {
			continue
		}
		if billID, ok := referenced[po.ID]; !ok || billID != *po.BillID {
			overview.Dangling++
		}
	}
	return overview, nil
}

// RepairReport summarises a repair pass.
type RepairReport struct {
	Relinked  int `json:"relinked"`
	Cleared   int `json:"cleared"`
	Conflicts int `json:"conflicts"`
}

// Repair re-derives every purchase order's bill pointer and billed status
// from the bills that actually reference it. It is idempotent: a second
// pass over a consistent store changes nothing. Drift accumulates when a
// crash lands between the bill write and the purchase order write; this
// pass is the recovery.
func (c *Coordinator) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	linked, err := c.bills.ListLinked(ctx)
	if err != nil {
		return report, err
	}

	// Bill side: every linked bill's PO should point back at it.
	byPO := make(map[int64]int64, len(linked))
	for _, bill := range linked {
		poID := *bill.PurchaseOrderID
		if other, dup := byPO[poID]; dup {
			report.Conflicts++
			c.logger.Warn("two bills reference one purchase order",
				slog.Int64("po_id", poID), slog.Int64("bill_id", bill.ID), slog.Int64("other_bill_id", other))
			continue
		}
		byPO[poID] = bill.ID

		po, err := c.pos.Get(ctx, poID)
		if err != nil {
			c.logger.Warn("bill references missing purchase order",
				slog.Any("error", err), slog.Int64("bill_id", bill.ID), slog.Int64("po_id", poID))
			report.Conflicts++
			continue
		}
		if po.BillID == nil || *po.BillID != bill.ID {
			if err := c.pos.SetBillRef(ctx, poID, &bill.ID, purchasing.StatusBilled); err != nil {
				return report, err
			}
			report.Relinked++
		}
	}

	// PO side: a bill pointer with no bill referencing back is stale.
	orders, err := c.pos.ListLinked(ctx)
	if err != nil {
		return report, err
	}
	for _, po := range orders {
		if billID, ok := byPO[po.ID]; ok && po.BillID != nil && *po.BillID == billID {
			continue
		}
		status := po.Status
		if status == purchasing.StatusBilled {
			status = purchasing.StatusPending
		}
		if err := c.pos.SetBillRef(ctx, po.ID, nil, status); err != nil {
			return report, err
		}
		report.Cleared++
	}

	return report, nil
}
