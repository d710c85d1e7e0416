/*
errors.go - Error taxonomy for the case ledger

PURPOSE:
  All error types in one place. Business-rule failures are returned as
  sentinel or structured errors so callers can branch with errors.Is and
  errors.As; nothing in the checked paths panics.

ERROR CATEGORIES:
  1. Input errors     - invalid quantity, UPC, category, sale fields
  2. Stock errors     - insufficient quantity, itemized per batch line
  3. Registry errors  - unknown or inactive case/location, reserved codes
  4. Invariant errors - ledger and audit log out of step (programming bug)
  5. Store errors     - transient transaction failures, eligible for retry

USAGE:
  var batch *inventory.BatchError
  if errors.As(err, &batch) {
      for _, s := range batch.Shortfalls { ... }
  }

SEE ALSO:
  - session.go:    Raises InvariantViolationError
  - operations.go: Raises BatchError
  - api/handlers.go: Maps errors to HTTP status codes
*/
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned for a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrQuantityOverflow is returned when an increase would push a row
	// or a summed line past the largest representable quantity.
	ErrQuantityOverflow = errors.New("quantity overflow")

	// ErrInsufficientQuantity is returned when a decrease exceeds stock.
	ErrInsufficientQuantity = errors.New("insufficient quantity")

	// ErrUnknownCase is returned when a case does not exist or is inactive.
	ErrUnknownCase = errors.New("unknown case")

	// ErrUnknownLocation is returned when a location does not exist or is inactive.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrInvariantViolation marks a programming error. Never user-recoverable.
	ErrInvariantViolation = errors.New("ledger invariant violation")

	// ErrConcurrentModification is returned when a conditional write lost a race.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrTransient wraps store-level failures (busy, locked, constraint).
	ErrTransient = errors.New("transient store failure")

	ErrInvalidUPC         = errors.New("invalid upc")
	ErrInvalidCaseCode    = errors.New("invalid case code")
	ErrInvalidCategory    = errors.New("invalid item category")
	ErrInvalidSubLocation = errors.New("invalid sub-location")
	ErrInvalidSale        = errors.New("invalid sale details")
	ErrInvalidCount       = errors.New("invalid count")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidAction      = errors.New("invalid action")
	ErrMissingActor       = errors.New("actor is required")
	ErrEmptyBatch         = errors.New("at least one upc is required")
	ErrSameCase           = errors.New("source and destination are the same")
	ErrDuplicateCase      = errors.New("case code already exists at location")
	ErrReservedCase       = errors.New("case is system-managed")
	ErrCaseNotEmpty       = errors.New("case still holds inventory")
	ErrLocationNotEmpty   = errors.New("location still holds inventory")
	ErrNoChange           = errors.New("nothing to change")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientQuantityError describes one short line item.
type InsufficientQuantityError struct {
	Case CaseRef
	UPC  UPC
	Sub  SubLocation
	Have int
	Need int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("%s: need %d, have %d", e.UPC, e.Need, e.Have)
}

func (e *InsufficientQuantityError) Unwrap() error {
	return ErrInsufficientQuantity
}

// BatchError lists every short line of a rejected batch. No line of the
// batch was applied.
type BatchError struct {
	Case       CaseRef
	Shortfalls []InsufficientQuantityError
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i := range e.Shortfalls {
		parts[i] = e.Shortfalls[i].Error()
	}
	return fmt.Sprintf("not enough quantity in %s for: %s", e.Case, strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() error {
	return ErrInsufficientQuantity
}

// As exposes the first shortfall to errors.As callers that only handle a
// single *InsufficientQuantityError.
func (e *BatchError) As(target any) bool {
	t, ok := target.(**InsufficientQuantityError)
	if !ok || len(e.Shortfalls) == 0 {
		return false
	}
	*t = &e.Shortfalls[0]
	return true
}

// UnknownCaseError names the case or location that could not be resolved.
type UnknownCaseError struct {
	Case     CaseRef
	Inactive bool
}

func (e *UnknownCaseError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("case %s is not active", e.Case)
	}
	return fmt.Sprintf("case %s not found", e.Case)
}

func (e *UnknownCaseError) Unwrap() error {
	return ErrUnknownCase
}

// InvariantViolationError describes a ledger/audit mismatch detected before
// commit. The transaction is always rolled back.
type InvariantViolationError struct {
	Key    RowKey
	Delta  int
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation at %s (delta %d): %s", e.Key, e.Delta, e.Reason)
}

func (e *InvariantViolationError) Unwrap() error {
	return ErrInvariantViolation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry. Callers
// should re-validate intent before replaying a batch.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrTransient)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity, ErrQuantityOverflow, ErrInsufficientQuantity, ErrInvalidUPC,
		ErrInvalidCaseCode, ErrInvalidCategory, ErrInvalidSubLocation,
		ErrInvalidSale, ErrInvalidCount, ErrInvalidDate, ErrInvalidName,
		ErrInvalidAction, ErrMissingActor, ErrEmptyBatch, ErrSameCase,
		ErrDuplicateCase, ErrReservedCase, ErrCaseNotEmpty,
		ErrLocationNotEmpty, ErrNoChange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error indicates a missing case or location.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownCase) || errors.Is(err, ErrUnknownLocation)
}
