/*
Package tiffin implements the tiffin consumption and scheduling engine.

PURPOSE:
  Converts an order's plan metadata (total units, preferred weekdays,
  start date) plus the business configuration (delivery window, daily
  cutoff, timezone) into a remaining-unit count, a per-date box count,
  and an append-only per-date snapshot history. The daily snapshot job
  persists that state so the count is idempotent and auditable.

KEY CONCEPTS IN THIS FILE (order.go):
  - Order: the external order record as seen by the engine
  - Status: the order system's open string enum; only processing,
    paused, completed and cancelled are semantically meaningful here
  - OrderRepository / StatusEventLog: the external collaborators

DESIGN PRINCIPLES:
  1. The engine never owns orders; it reads them and writes back exactly
     two things: history metadata and the completed transition.
  2. Metadata precedence is explicit: the item-level copy of a field
     wins over the order-level copy, except tiffin_count_history which
     lives only at order level.
  3. Every entry point takes "now" as a parameter - no ambient clocks.

SEE ALSO:
  - schedule.go: boundary parse of raw metadata into a typed Schedule
  - engine.go: from-scratch and incremental remaining-unit computation
  - job.go: the idempotent daily snapshot batch
*/
package tiffin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND STATUS
// =============================================================================

type OrderID string

// Status is the order system's open string enum. Values outside the
// constants below pass through untouched.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusOnHold     Status = "on-hold"
	StatusPending    Status = "pending"
)

// Terminal reports whether the daily job should stop looking at an
// order in this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// =============================================================================
// ORDER - external entity, referenced not owned
// =============================================================================

// LineItem is one product line on an order. Exactly one item is
// expected to carry the plan's scheduling metadata in practice, but the
// engine tolerates it being split across entries and scans all items.
type LineItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	Total       decimal.Decimal
	Metadata    map[string]string
}

// Customer carries the fields the renewal notification payload needs.
type Customer struct {
	FirstName string
	Phone     string
}

type Order struct {
	ID        OrderID
	Status    Status
	Customer  Customer
	LineItems []LineItem

	// Metadata mirrors some item-level fields at order level; the
	// order-creation workflow duplicates them for convenience.
	Metadata map[string]string
}

// Metadata field names. The scheduling fields are written once at order
// creation by the order-entry workflow and are immutable afterwards
// from the engine's point of view.
const (
	MetaTiffinCount        = "Number Of Tiffins"
	MetaStartDate          = "Start Date"
	MetaDeliveryDate       = "Delivery Date"
	MetaPreferredDays      = "Preferred Days"
	MetaPreferredDaysAlias = "Delivery Days"
	MetaCountHistory       = "tiffin_count_history"
	MetaRemainingOverride  = "tiffin_remaining_override"
	MetaReminderSent       = "renewal_reminder_sent"
)

// MetaValue resolves a metadata field with explicit precedence: the
// first line item carrying the field wins over the order-level copy.
func (o *Order) MetaValue(key string) (string, bool) {
	for _, item := range o.LineItems {
		if v, ok := item.Metadata[key]; ok && v != "" {
			return v, true
		}
	}
	v, ok := o.Metadata[key]
	return v, ok && v != ""
}

// =============================================================================
// STATUS EVENTS
// =============================================================================

// StatusEvent is one timestamped status transition from the order
// system's event log.
type StatusEvent struct {
	At   time.Time
	From Status
	To   Status
}

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// OrderRepository is the external order/storage system. Implementations
// must serialize writes per order; the daily job relies on the
// "snapshot already exists for today" short-circuit plus per-order
// write serialization for its idempotence guarantee.
type OrderRepository interface {
	// GetOrder returns the order or ErrOrderNotFound.
	GetOrder(ctx context.Context, id OrderID) (*Order, error)

	// ListActiveOrders returns every order not in a terminal status.
	ListActiveOrders(ctx context.Context) ([]Order, error)

	// UpdateMetadata writes a single order-level metadata value.
	UpdateMetadata(ctx context.Context, id OrderID, key, value string) error

	// UpdateStatus transitions the order and records an audit note.
	UpdateStatus(ctx context.Context, id OrderID, status Status, note string) error
}

// StatusEventLog exposes the ordered status-transition history of an
// order, oldest first.
type StatusEventLog interface {
	StatusEvents(ctx context.Context, id OrderID) ([]StatusEvent, error)
}
