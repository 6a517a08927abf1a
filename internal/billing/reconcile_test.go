package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

func statusPtr(s Status) *Status                { return &s }
func paymentPtr(p PaymentStatus) *PaymentStatus { return &p }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh int) time.Time {
	return time.Date(y, m, d, hh, 0, 0, 0, time.UTC)
}

func TestReconcileNoChangeIsIdentity(t *testing.T) {
	current := BillState{Status: StatusSent, PaymentStatus: PaymentPartiallyPaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{}, time.Now())
	require.NoError(t, err)
	require.Equal(t, current, next)

	// Proposing the values already in place is also a no-op.
	next, err = Reconcile(current, StatusPatch{
		Status:        statusPtr(StatusSent),
		PaymentStatus: paymentPtr(PaymentPartiallyPaid),
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, current, next)
}

func TestReconcilePaidForcesCompleted(t *testing.T) {
	current := BillState{Status: StatusIssued, PaymentStatus: PaymentUnpaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentPaid)}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, next.Status)
	require.Equal(t, PaymentPaid, next.PaymentStatus)
}

func TestReconcilePaidIgnoresProposedStatus(t *testing.T) {
	current := BillState{Status: StatusIssued, PaymentStatus: PaymentUnpaid, DueDate: day(2026, 3, 1)}

	// The payment change wins over any simultaneously-proposed status.
	next, err := Reconcile(current, StatusPatch{
		Status:        statusPtr(StatusDraft),
		PaymentStatus: paymentPtr(PaymentPaid),
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, next.Status)
}

func TestReconcileRefundedForcesCancelled(t *testing.T) {
	current := BillState{Status: StatusCompleted, PaymentStatus: PaymentPaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentRefunded)}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, next.Status)
	require.Equal(t, PaymentRefunded, next.PaymentStatus)
}

func TestReconcilePartiallyPaidResetsToIssued(t *testing.T) {
	current := BillState{Status: StatusOverdue, PaymentStatus: PaymentUnpaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentPartiallyPaid)}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusIssued, next.Status)
}

func TestReconcilePartiallyPaidKeepsStickyStatus(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusDraft} {
		current := BillState{Status: status, PaymentStatus: PaymentPaid, DueDate: day(2026, 3, 1)}

		next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentPartiallyPaid)}, time.Now())
		require.NoError(t, err)
		require.Equal(t, status, next.Status, "status %s must survive", status)
	}
}

func TestReconcileUnpaidPastDueBecomesOverdue(t *testing.T) {
	current := BillState{Status: StatusCompleted, PaymentStatus: PaymentPaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentUnpaid)}, at(2026, 3, 2, 9))
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, next.Status)
	require.Equal(t, PaymentUnpaid, next.PaymentStatus)
}

func TestReconcileUnpaidDueDateIsDayGranular(t *testing.T) {
	// Due at any time on March 1st, checked late on March 1st: not yet
	// overdue. The comparison is by calendar day, not instant.
	current := BillState{Status: StatusSent, PaymentStatus: PaymentPartiallyPaid, DueDate: at(2026, 3, 1, 8)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentUnpaid)}, at(2026, 3, 1, 23))
	require.NoError(t, err)
	require.Equal(t, StatusIssued, next.Status)
}

func TestReconcileUnpaidNotDueKeepsStickyStatus(t *testing.T) {
	current := BillState{Status: StatusDraft, PaymentStatus: PaymentPartiallyPaid, DueDate: day(2026, 3, 10)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentUnpaid)}, day(2026, 3, 1))
	require.NoError(t, err)
	require.Equal(t, StatusDraft, next.Status)
}

func TestReconcileUnpaidPastDueOverridesSticky(t *testing.T) {
	// Overdue wins even over a sticky status when the due date has passed.
	current := BillState{Status: StatusDraft, PaymentStatus: PaymentPartiallyPaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{PaymentStatus: paymentPtr(PaymentUnpaid)}, day(2026, 3, 5))
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, next.Status)
}

func TestReconcileManualOverrideAgainstPaid(t *testing.T) {
	current := BillState{Status: StatusCompleted, PaymentStatus: PaymentPaid, DueDate: day(2026, 3, 1)}

	_, err := Reconcile(current, StatusPatch{Status: statusPtr(StatusDraft)}, time.Now())
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Contains(t, err.Error(), "completed")
}

func TestReconcileManualOverrideAgainstPartiallyPaid(t *testing.T) {
	current := BillState{Status: StatusIssued, PaymentStatus: PaymentPartiallyPaid, DueDate: day(2026, 3, 1)}

	for _, forbidden := range []Status{StatusCompleted, StatusDraft} {
		_, err := Reconcile(current, StatusPatch{Status: statusPtr(forbidden)}, time.Now())
		require.ErrorIs(t, err, shared.ErrConflict, "status %s must be rejected", forbidden)
	}

	next, err := Reconcile(current, StatusPatch{Status: statusPtr(StatusSent)}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusSent, next.Status)
	require.Equal(t, PaymentPartiallyPaid, next.PaymentStatus)
}

func TestReconcileManualOverrideAgainstUnpaid(t *testing.T) {
	current := BillState{Status: StatusIssued, PaymentStatus: PaymentUnpaid, DueDate: day(2026, 3, 1)}

	_, err := Reconcile(current, StatusPatch{Status: statusPtr(StatusCompleted)}, time.Now())
	require.ErrorIs(t, err, shared.ErrConflict)

	next, err := Reconcile(current, StatusPatch{Status: statusPtr(StatusCancelled)}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, next.Status)
}

func TestReconcileManualOverrideAgainstRefunded(t *testing.T) {
	// Refunded constrains nothing; the proposal passes through.
	current := BillState{Status: StatusCancelled, PaymentStatus: PaymentRefunded, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{Status: statusPtr(StatusSent)}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusSent, next.Status)
}

func TestReconcileScenarioSentWhileUnpaid(t *testing.T) {
	// Re-proposing the current payment status is not a financial change, so
	// the manual status stands even past the due date.
	current := BillState{Status: StatusIssued, PaymentStatus: PaymentUnpaid, DueDate: day(2026, 3, 1)}

	next, err := Reconcile(current, StatusPatch{
		Status:        statusPtr(StatusSent),
		PaymentStatus: paymentPtr(PaymentUnpaid),
	}, day(2026, 3, 2))
	require.NoError(t, err)
	require.Equal(t, StatusSent, next.Status)
	require.Equal(t, PaymentUnpaid, next.PaymentStatus)
}
