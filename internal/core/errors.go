package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for invalid input. The HTTP layer maps these to
// 400/422 responses.
var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("concurrent modification")
)

// InsufficientHeadroomError rejects a deposit that exceeds the amount the
// account can still commit to the goal. Max carries the computed cap so the
// caller can present a corrective message.
type InsufficientHeadroomError struct {
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (e *InsufficientHeadroomError) Error() string {
	return fmt.Sprintf("cannot add %s: at most %s can still be saved", FormatAmount(e.Requested), FormatAmount(e.Max))
}

// InsufficientSavedError rejects a withdrawal larger than the amount saved
// so far.
type InsufficientSavedError struct {
	Requested decimal.Decimal
	Saved     decimal.Decimal
}

func (e *InsufficientSavedError) Error() string {
	return fmt.Sprintf("cannot remove %s: only %s is saved", FormatAmount(e.Requested), FormatAmount(e.Saved))
}

// NotFoundError reports a missing goal, account or repetition. A goal with
// no repetition covering the reference date is a broken precondition, not a
// recoverable state, but it still surfaces as a 404 rather than a crash.
type NotFoundError struct {
	Kind string // "goal", "account", "repetition", "export job"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Kind, e.ID, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConcurrencyConflictError reports a failed optimistic version check: the
// repetition changed between read and write. The operation left no trace;
// the caller may retry with fresh state.
type ConcurrencyConflictError struct {
	RepetitionID int64
	Version      int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("repetition %d version %d: %s", e.RepetitionID, e.Version, ErrConflict)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConflict }
