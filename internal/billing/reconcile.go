package billing

import (
	"fmt"
	"time"

	"github.com/vendorbridge/vendorbridge/internal/shared"
)

// BillState is the reconciliation-relevant slice of a bill.
type BillState struct {
	Status        Status
	PaymentStatus PaymentStatus
	DueDate       time.Time
}

// StatusPatch carries a proposed change. Nil fields propose nothing.
type StatusPatch struct {
	Status        *Status
	PaymentStatus *PaymentStatus
}

// changeKind tags the proposed computation: a financial change drives the
// workflow status, a manual override is validated against the unchanged
// payment status.
type changeKind int

const (
	changeNone changeKind = iota
	changeFinancial
	changeManualOverride
)

func classify(current BillState, patch StatusPatch) changeKind {
	if patch.PaymentStatus != nil && *patch.PaymentStatus != current.PaymentStatus {
		return changeFinancial
	}
	if patch.Status != nil && *patch.Status != current.Status {
		return changeManualOverride
	}
	return changeNone
}

// sticky reports whether a workflow status survives a financial change to
// partially_paid or unpaid instead of being reset to issued.
func sticky(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDraft
}

// beforeDay reports whether a falls on an earlier calendar day than b;
// time of day is ignored.
func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).
		Before(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}

// Reconcile computes the enforced workflow and payment status pair for a
// proposed change. A changed payment status is authoritative and the
// workflow status is derived from it; a manual workflow change is accepted
// only when it does not contradict the unchanged payment status. It is
// pure: no I/O, no side effects, and reconciling a no-op patch returns the
// current state unchanged.
func Reconcile(current BillState, patch StatusPatch, now time.Time) (BillState, error) {
	next := current

	switch classify(current, patch) {
	case changeFinancial:
		next.PaymentStatus = *patch.PaymentStatus
		switch next.PaymentStatus {
		case PaymentPaid:
			next.Status = StatusCompleted
		case PaymentRefunded:
			next.Status = StatusCancelled
		case PaymentPartiallyPaid:
			if !sticky(current.Status) {
				next.Status = StatusIssued
			}
		case PaymentUnpaid:
			switch {
			case beforeDay(current.DueDate, now):
				next.Status = StatusOverdue
			case !sticky(current.Status):
				next.Status = StatusIssued
			}
		}

	case changeManualOverride:
		proposed := *patch.Status
		switch current.PaymentStatus {
		case PaymentPaid:
			if proposed != StatusCompleted {
				return BillState{}, fmt.Errorf("%w: status must be %q while payment status is %q, got %q",
					shared.ErrConflict, StatusCompleted, PaymentPaid, proposed)
			}
		case PaymentPartiallyPaid:
			if proposed == StatusCompleted || proposed == StatusDraft {
				return BillState{}, fmt.Errorf("%w: status %q is not allowed while payment status is %q",
					shared.ErrConflict, proposed, PaymentPartiallyPaid)
			}
		case PaymentUnpaid:
			if proposed == StatusCompleted {
				return BillState{}, fmt.Errorf("%w: status %q is not allowed while payment status is %q",
					shared.ErrConflict, proposed, PaymentUnpaid)
			}
		}
		next.Status = proposed
	}

	return next, nil
}
