package linkage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/shared"
)

type memoryPOStore struct {
	pos map[int64]purchasing.PurchaseOrder
}

func newMemoryPOStore(pos ...purchasing.PurchaseOrder) *memoryPOStore {
	store := &memoryPOStore{pos: make(map[int64]purchasing.PurchaseOrder)}
	for _, po := range pos {
		store.pos[po.ID] = po
	}
	return store
}

func (s *memoryPOStore) Get(ctx context.Context, id int64) (purchasing.PurchaseOrder, error) {
	po, ok := s.pos[id]
	if !ok {
		return purchasing.PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	return po, nil
}

func (s *memoryPOStore) SetBillRef(ctx context.Context, id int64, billID *int64, status purchasing.Status) error {
	po, ok := s.pos[id]
	if !ok {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	po.BillID = billID
	po.Status = status
	s.pos[id] = po
	return nil
}

func (s *memoryPOStore) ClearBillRef(ctx context.Context, id int64) error {
	po, ok := s.pos[id]
	if !ok {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	po.BillID = nil
	s.pos[id] = po
	return nil
}

func (s *memoryPOStore) ListLinked(ctx context.Context) ([]purchasing.PurchaseOrder, error) {
	var out []purchasing.PurchaseOrder
	for _, po := range s.pos {
		if po.BillID != nil {
			out = append(out, po)
		}
	}
	return out, nil
}

type memoryBillStore struct {
	bills map[int64]billing.Bill
}

func newMemoryBillStore(bills ...billing.Bill) *memoryBillStore {
	store := &memoryBillStore{bills: make(map[int64]billing.Bill)}
	for _, bill := range bills {
		store.bills[bill.ID] = bill
	}
	return store
}

func (s *memoryBillStore) ListLinked(ctx context.Context) ([]billing.Bill, error) {
	var out []billing.Bill
	for _, bill := range s.bills {
		if bill.PurchaseOrderID != nil {
			out = append(out, bill)
		}
	}
	return out, nil
}

func (s *memoryBillStore) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := s.bills[id]
	return ok, nil
}

func ref(v int64) *int64 { return &v }

func poRecord(id int64, status purchasing.Status, billID *int64) purchasing.PurchaseOrder {
	return purchasing.PurchaseOrder{ID: id, VendorID: 1, Status: status, BillID: billID}
}

func billRecord(id int64, poID *int64) billing.Bill {
	return billing.Bill{ID: id, VendorID: 1, PurchaseOrderID: poID, Status: billing.StatusIssued}
}

func TestAttachMarksBilled(t *testing.T) {
	pos := newMemoryPOStore(poRecord(1, purchasing.StatusApproved, nil))
	c := NewCoordinator(pos, newMemoryBillStore(), nil)

	require.NoError(t, c.Attach(context.Background(), 1, 10))
	po := pos.pos[1]
	require.NotNil(t, po.BillID)
	require.Equal(t, int64(10), *po.BillID)
	require.Equal(t, purchasing.StatusBilled, po.Status)
}

func TestDetachOnlyClearsMatchingRef(t *testing.T) {
	pos := newMemoryPOStore(poRecord(1, purchasing.StatusBilled, ref(10)))
	c := NewCoordinator(pos, newMemoryBillStore(), nil)

	// A different bill's detach leaves the pointer alone.
	require.NoError(t, c.Detach(context.Background(), 1, 99))
	require.NotNil(t, pos.pos[1].BillID)

	require.NoError(t, c.Detach(context.Background(), 1, 10))
	require.Nil(t, pos.pos[1].BillID)
	// Detach never rewrites the status.
	require.Equal(t, purchasing.StatusBilled, pos.pos[1].Status)
}

func TestRelinkMovesBothSides(t *testing.T) {
	pos := newMemoryPOStore(
		poRecord(1, purchasing.StatusBilled, ref(10)),
		poRecord(2, purchasing.StatusApproved, nil),
	)
	c := NewCoordinator(pos, newMemoryBillStore(), nil)

	require.NoError(t, c.Relink(context.Background(), 10, ref(1), ref(2)))

	old := pos.pos[1]
	require.Nil(t, old.BillID)
	require.Equal(t, purchasing.StatusPending, old.Status)

	now := pos.pos[2]
	require.NotNil(t, now.BillID)
	require.Equal(t, int64(10), *now.BillID)
	require.Equal(t, purchasing.StatusBilled, now.Status)
}

func TestRelinkSkipsForeignPointer(t *testing.T) {
	// The old PO already points at another bill; releasing it would clobber
	// that link, so only the new side is written.
	pos := newMemoryPOStore(
		poRecord(1, purchasing.StatusBilled, ref(77)),
		poRecord(2, purchasing.StatusApproved, nil),
	)
	c := NewCoordinator(pos, newMemoryBillStore(), nil)

	require.NoError(t, c.Relink(context.Background(), 10, ref(1), ref(2)))
	require.Equal(t, int64(77), *pos.pos[1].BillID)
	require.Equal(t, int64(10), *pos.pos[2].BillID)
}

func TestRelinkLinkOnlyAndUnlinkOnly(t *testing.T) {
	pos := newMemoryPOStore(
		poRecord(1, purchasing.StatusBilled, ref(10)),
		poRecord(2, purchasing.StatusApproved, nil),
	)
	c := NewCoordinator(pos, newMemoryBillStore(), nil)

	// nil -> PO 2: link only.
	require.NoError(t, c.Relink(context.Background(), 10, nil, ref(2)))
	require.Equal(t, int64(10), *pos.pos[2].BillID)

	// PO 1 -> nil: unlink only.
	require.NoError(t, c.Relink(context.Background(), 10, ref(1), nil))
	require.Nil(t, pos.pos[1].BillID)
	require.Equal(t, purchasing.StatusPending, pos.pos[1].Status)
}

func TestRelinkReportsMissingOldPO(t *testing.T) {
	pos := newMemoryPOStore(poRecord(2, purchasing.StatusApproved, nil))
	c := NewCoordinator(pos, newMemoryBillStore(), nil)

	err := c.Relink(context.Background(), 10, ref(404), ref(2))
	require.Error(t, err)
	// The new side is linked even though the old side failed.
	require.NotNil(t, pos.pos[2].BillID)
	require.Equal(t, int64(10), *pos.pos[2].BillID)
}

func TestRepairFixesDanglingPOPointer(t *testing.T) {
	// Bill 10 references PO 1, but the PO write was lost.
	pos := newMemoryPOStore(poRecord(1, purchasing.StatusApproved, nil))
	bills := newMemoryBillStore(billRecord(10, ref(1)))
	c := NewCoordinator(pos, bills, nil)

	report, err := c.Repair(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Relinked)
	require.Equal(t, 0, report.Cleared)

	po := pos.pos[1]
	require.NotNil(t, po.BillID)
	require.Equal(t, int64(10), *po.BillID)
	require.Equal(t, purchasing.StatusBilled, po.Status)
}

func TestRepairClearsStalePointer(t *testing.T) {
	// PO 1 points at bill 10, but no bill references it back.
	pos := newMemoryPOStore(poRecord(1, purchasing.StatusBilled, ref(10)))
	bills := newMemoryBillStore()
	c := NewCoordinator(pos, bills, nil)

	report, err := c.Repair(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Cleared)

	po := pos.pos[1]
	require.Nil(t, po.BillID)
	require.Equal(t, purchasing.StatusPending, po.Status)
}

func TestRepairCountsDuplicateBills(t *testing.T) {
	pos := newMemoryPOStore(poRecord(1, purchasing.StatusBilled, ref(10)))
	bills := newMemoryBillStore(
		billRecord(10, ref(1)),
		billRecord(11, ref(1)),
	)
	c := NewCoordinator(pos, bills, nil)

	report, err := c.Repair(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Conflicts)
	// The surviving link is one of the two bills; the pointer stays set.
	require.NotNil(t, pos.pos[1].BillID)
}

func TestRepairIsIdempotent(t *testing.T) {
	pos := newMemoryPOStore(
		poRecord(1, purchasing.StatusApproved, nil),
		poRecord(2, purchasing.StatusBilled, ref(99)),
	)
	bills := newMemoryBillStore(billRecord(10, ref(1)))
	c := NewCoordinator(pos, bills, nil)

	first, err := c.Repair(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Relinked)
	require.Equal(t, 1, first.Cleared)

	second, err := c.Repair(context.Background())
	require.NoError(t, err)
	require.Zero(t, second.Relinked)
	require.Zero(t, second.Cleared)
	require.Zero(t, second.Conflicts)
}

func TestRepairCountsMissingPO(t *testing.T) {
	pos := newMemoryPOStore()
	bills := newMemoryBillStore(billRecord(10, ref(1)))
	c := NewCoordinator(pos, bills, nil)

	report, err := c.Repair(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Conflicts)
}

func TestInspectReportsConsistentStore(t *testing.T) {
	pos := newMemoryPOStore(
		poRecord(1, purchasing.StatusBilled, ref(10)),
		poRecord(2, purchasing.StatusApproved, nil),
	)
	bills := newMemoryBillStore(billRecord(10, ref(1)))
	c := NewCoordinator(pos, bills, nil)

	overview, err := c.Inspect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, overview.LinkedBills)
	require.Equal(t, 1, overview.LinkedOrders)
	require.Zero(t, overview.Dangling)
}

func TestInspectCountsDriftWithoutWriting(t *testing.T) {
	pos := newMemoryPOStore(
		poRecord(1, purchasing.StatusApproved, nil),
		poRecord(2, purchasing.StatusBilled, ref(99)),
	)
	bills := newMemoryBillStore(billRecord(10, ref(1)))
	c := NewCoordinator(pos, bills, nil)

	overview, err := c.Inspect(context.Background())
	require.NoError(t, err)
	// Bill 10's order does not point back, and order 2's bill is gone.
	require.Equal(t, 2, overview.Dangling)

	// Nothing was repaired.
	require.Nil(t, pos.pos[1].BillID)
	require.NotNil(t, pos.pos[2].BillID)
}
