/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Component packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. State errors - Invalid tracking transitions (caller bugs or races)
  2. Lookup errors - Edits referencing records that no longer exist
  3. Guard errors - Writes against locked payroll periods

Legal-compliance findings are NOT errors. They are advisory results
returned from a query (see calc.Finding) and are never raised here.

USAGE:
  Callers discriminate with errors.Is():

    if errors.Is(err, engine.ErrInvalidStateTransition) {
        // surface to the user, this indicates a double action or a race
    }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidStateTransition is returned when a tracking operation is not
	// valid from the current status (e.g., checking in while already working).
	// Always surfaced to the caller, never silently absorbed.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNotFound is returned for lookups of records that do not exist.
	// Edit paths recover locally by treating the edit as a no-op.
	ErrNotFound = errors.New("record not found")

	// ErrDayLocked is returned for edits against a WorkDay frozen by a
	// closed payroll period.
	ErrDayLocked = errors.New("work day is locked")

	// ErrNoActiveSession is returned when an operation needs an open
	// check-in and none exists.
	ErrNoActiveSession = errors.New("no active session")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError reports which action was attempted from which state.
type InvalidTransitionError struct {
	From   Status
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidStateTransition }

// LockedDayError identifies the locked day an edit targeted.
type LockedDayError struct {
	Date Date
}

func (e *LockedDayError) Error() string {
	return fmt.Sprintf("work day %s is locked", e.Date)
}

func (e *LockedDayError) Unwrap() error { return ErrDayLocked }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than a persistence failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition) ||
		errors.Is(err, ErrDayLocked) ||
		errors.Is(err, ErrNoActiveSession)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
