/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. Host packages wrap these with
  HTTP or domain context.

NOTABLE NON-ERRORS:
  Several conditions are deliberately not errors (see the reconciler):
  a vanished binding, a missing store, a retraction that underflows, and
  an unparseable quantity all degrade silently so plan entries stay
  editable and deletable no matter what happened around them.
*/
package list

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrLineNotFound is returned when a referenced list line doesn't exist.
	ErrLineNotFound = errors.New("shopping-list line not found")

	// ErrInvalidDate is returned for malformed ISO date input.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidMeal is returned for a meal slot outside morning/lunch/dinner.
	ErrInvalidMeal = errors.New("invalid meal slot")
)

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLineNotFound)
}

// =============================================================================
// STRUCTURED ERRORS - Per-item reconciliation failures
// =============================================================================

// ItemError reports a persistence failure for one contributed item.
// The other items of the same reconciliation remain applied; the host
// decides whether to retry or wrap the operation in a transaction.
type ItemError struct {
	Name string
	Err  error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %q: %v", e.Name, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ReconcileError collects the per-item failures of one reconciliation.
type ReconcileError struct {
	Items []*ItemError
}

func (e *ReconcileError) Error() string {
	msgs := make([]string, len(e.Items))
	for i, ie := range e.Items {
		msgs[i] = ie.Error()
	}
	return fmt.Sprintf("reconciliation failed for %d item(s): %s",
		len(e.Items), strings.Join(msgs, "; "))
}

// orNil returns the collected error, or nil when nothing failed.
func (e *ReconcileError) orNil() error {
	if len(e.Items) == 0 {
		return nil
	}
	return e
}
