/*
errors.go - Centralized error types for the inventory core

PURPOSE:
  All error types in one place. The coordinator and stores return these;
  the API layer maps them to HTTP statuses and plain-language messages.

ERROR CATEGORIES:
  1. Validation errors - bad input shape/range, rejected before any mutation
  2. Not-found errors  - item / borrow / user absent
  3. Business-rule errors - insufficient stock, over-settlement; carry the
     actual available quantity so the caller can retry with a corrected value
  4. Persistence errors - storage write failed AFTER the in-memory append
     succeeded; in-memory state may be ahead of durable state

USAGE:
  errors.Is(err, inventory.ErrInsufficientStock)

  var insufficientErr *inventory.InsufficientStockError
  if errors.As(err, &insufficientErr) {
      fmt.Println("only", insufficientErr.Available, "available")
  }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the category sentinel for malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrItemNotFound is returned when a referenced item doesn't exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrBorrowNotFound is returned when a settlement references a borrow
	// entry that is missing, is not a Borrowed action, or names another item.
	ErrBorrowNotFound = errors.New("original borrow record not found")

	// ErrUserNotFound is returned when no user matches the given passcode.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientStock is returned when a borrow exceeds QtyRemaining.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOverSettlement is returned when a settlement exceeds the
	// outstanding (unsettled) quantity of the borrow.
	ErrOverSettlement = errors.New("settlement exceeds outstanding quantity")

	// ErrPersistence is returned when a storage write failed. The
	// in-memory append is NOT rolled back: durability-at-best-effort.
	ErrPersistence = errors.New("persistence failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InsufficientStockError reports how many units are actually available
// so the caller can adjust the request.
type InsufficientStockError struct {
	ItemID    int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cannot borrow %d of item %d: only %d currently available",
		e.Requested, e.ItemID, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// OverSettlementError reports how many units of the borrow are still
// pending action across Returned, Used and Lost combined.
type OverSettlementError struct {
	BorrowActivityID int
	Requested        int
	Remaining        int
}

func (e *OverSettlementError) Error() string {
	return fmt.Sprintf("cannot process %d items: only %d are pending action from borrow %d",
		e.Requested, e.Remaining, e.BorrowActivityID)
}

func (e *OverSettlementError) Unwrap() error { return ErrOverSettlement }

// PersistenceError wraps a storage failure. The operation's in-memory
// effect stands; only durability is in question.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business-rule rejection (HTTP 4xx territory).
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrOverSettlement)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrBorrowNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
