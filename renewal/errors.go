// errors.go - sentinels for offer gating. These are outcomes, not
// faults: a scan treats all three as "nothing to do for this order".
package renewal

import "errors"

var (
	// ErrNotAtThreshold is returned while the remaining count is still
	// above the configured reminder threshold.
	ErrNotAtThreshold = errors.New("remaining count above reminder threshold")

	// ErrReminderAlreadySent is returned once an order's reminder flag
	// is set. A reminder fires at most once per order.
	ErrReminderAlreadySent = errors.New("renewal reminder already sent")

	// ErrExcluded is returned for orders the reminder policy excludes
	// (trial meals, explicitly excluded products).
	ErrExcluded = errors.New("order excluded from renewal reminders")

	// ErrNoProjectableEnd is returned when the plan has no qualifying
	// delivery day within the projection horizon.
	ErrNoProjectableEnd = errors.New("no projectable completion date")

	// ErrOfferNotFound is returned when a token resolves to no stored
	// offer (unknown or pruned).
	ErrOfferNotFound = errors.New("renewal offer not found")
)
