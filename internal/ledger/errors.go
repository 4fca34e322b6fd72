package ledger

import "errors"

var (
	// ErrNotAuthenticated indicates the caller supplied no owner identity.
	// Owner ids are threaded explicitly through every call; there is no
	// ambient session fallback.
	ErrNotAuthenticated = errors.New("ledger: caller identity required")

	// ErrInvalidState indicates the operation is not legal for the current
	// state of the entity, e.g. paying an installment that is already paid
	// or out of range.
	ErrInvalidState = errors.New("ledger: invalid state for operation")
)
