/*
errors.go - Centralized error types for the tiffin engine

PURPOSE:
  All engine error types in one place. Two categories matter:

  1. Absent collaborators (order lookup returning nothing) - hard
     failures surfaced to the caller.
  2. Malformed-but-present input (unparsable day names, odd unit-count
     formatting) - NOT errors. The parse degrades and the engine
     computes a business-policy outcome instead of failing.

  ErrMissingSchedule is the explicit sentinel for "nothing to schedule":
  an order without a start date, preferred days or a positive unit count
  computes to zero remaining units. Callers must not conflate it with
  "plan completed".
*/
package tiffin

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when the order repository has no
	// record for the requested id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrMissingSchedule is returned when an order carries no usable
	// scheduling metadata. Treated as "nothing to schedule", not a
	// failure: the remaining count for such an order is 0.
	ErrMissingSchedule = errors.New("order has no scheduling metadata")

	// ErrSnapshotExists is returned when appending a history entry for
	// a date that already has one. The history is append-only with at
	// most one entry per calendar date.
	ErrSnapshotExists = errors.New("snapshot already recorded for date")

	// ErrHistoryCorrupt is returned when the persisted count history
	// cannot be decoded. The daily job skips the order and logs it
	// rather than overwrite an unreadable audit trail.
	ErrHistoryCorrupt = errors.New("count history is not decodable")
)

// SnapshotExistsError carries the conflicting date.
type SnapshotExistsError struct {
	OrderID OrderID
	Date    string
}

func (e *SnapshotExistsError) Error() string {
	return fmt.Sprintf("snapshot for order %s already recorded on %s", e.OrderID, e.Date)
}

func (e *SnapshotExistsError) Unwrap() error { return ErrSnapshotExists }
