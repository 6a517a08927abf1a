package shared

import "errors"

var (
	// ErrValidation indicates malformed input: bad id format, missing
	// required field, invalid enum value, invalid date.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced PO, Bill or vendor is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates an illegal state transition, a duplicate
	// PO-Bill link, or a reconciliation rejection.
	ErrConflict = errors.New("conflict")
)
