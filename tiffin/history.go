/*
history.go - The persisted per-date snapshot history

PURPOSE:
  tiffin_count_history is the engine's single persisted artifact: a
  sparse, date-keyed mapping serialized into one order-level metadata
  value. Its field names and shape are a compatibility contract for any
  dashboard reading historical data:

    {"2025-03-10": {"remaining_tiffins": 7,
                    "delivery_days": [1,2,3,4,5],
                    "boxes_delivered": 1}}

CRITICAL INVARIANTS:
  1. APPEND-ONLY: an existing date's entry is never deleted or replaced.
  2. At most one entry per calendar date per order.
  3. remaining_tiffins is never negative.
  4. The most recent entry reflects total consumption up to and
     including its date.
*/
package tiffin

import (
	"encoding/json"
	"fmt"

	"github.com/warp/tiffin-engine/calendar"
)

// HistoryEntry is one day's recorded state. Field names are wire
// format; do not rename.
type HistoryEntry struct {
	RemainingTiffins int   `json:"remaining_tiffins"`
	DeliveryDays     []int `json:"delivery_days"`
	BoxesDelivered   int   `json:"boxes_delivered"`
}

// CountHistory is the date-keyed snapshot history, keyed YYYY-MM-DD.
type CountHistory map[string]HistoryEntry

// HistoryOf decodes an order's persisted history. The history lives
// only at order level - item-level metadata is deliberately not
// consulted. A missing value is an empty history, not an error.
func HistoryOf(o *Order) (CountHistory, error) {
	raw, ok := o.Metadata[MetaCountHistory]
	if !ok || raw == "" {
		return CountHistory{}, nil
	}
	return DecodeHistory(raw)
}

func DecodeHistory(raw string) (CountHistory, error) {
	var h CountHistory
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryCorrupt, err)
	}
	return h, nil
}

// Encode serializes the history for persistence as a single metadata
// value.
func (h CountHistory) Encode() (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Entry returns the recorded entry for a date, if any.
func (h CountHistory) Entry(d calendar.Date) (HistoryEntry, bool) {
	e, ok := h[d.String()]
	return e, ok
}

// Latest returns the most recent recorded date and its entry.
func (h CountHistory) Latest() (calendar.Date, HistoryEntry, bool) {
	var (
		best      calendar.Date
		bestEntry HistoryEntry
		found     bool
	)
	for k, e := range h {
		d, err := calendar.ParseDate(k)
		if err != nil {
			continue // tolerate foreign keys written by other tools
		}
		if !found || d.After(best) {
			best, bestEntry, found = d, e, true
		}
	}
	return best, bestEntry, found
}

// Append records a new date's entry. Refuses to overwrite: the history
// grows by exactly one entry per calendar day.
func (h CountHistory) Append(orderID OrderID, d calendar.Date, e HistoryEntry) error {
	key := d.String()
	if _, exists := h[key]; exists {
		return &SnapshotExistsError{OrderID: orderID, Date: key}
	}
	if e.RemainingTiffins < 0 {
		e.RemainingTiffins = 0
	}
	h[key] = e
	return nil
}
