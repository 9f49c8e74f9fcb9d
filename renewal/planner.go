/*
Package renewal projects when a tiffin plan runs out and builds the
follow-up offer.

PURPOSE:
  When an order's remaining count falls to a configured threshold, the
  business sends the customer one reminder with the projected completion
  date, a suggested restart date and a renewal link bound to an opaque
  token. This package computes those dates and constructs the offer and
  notification payload; it does NOT deliver messages - transport is an
  external collaborator behind the Notifier interface.

AT-MOST-ONCE SEMANTICS:
  The reminder-sent flag is written before the notification is handed
  to the transport. A transport failure is logged for manual follow-up
  and the flag stays set: the engine never retries delivery.

KEY CONCEPTS IN THIS FILE (planner.go):
  - ProjectEndDate: walks the calendar forward consuming one unit per
    qualifying day, capped at a year
  - NextBusinessStart: pushes weekend dates onto the next Monday
*/
package renewal

import (
	"time"

	"github.com/warp/tiffin-engine/calendar"
)

// projectionCap bounds the end-date walk. A plan that would take more
// than a year to finish (e.g. an empty preferred-day set) has no
// projectable end date.
const projectionCap = 365

// ProjectEndDate returns the date the remaining count reaches zero,
// starting at today and consuming one unit per day that is both a
// delivery day and a preferred day. ok is false when no qualifying day
// exists within the cap or remaining is not positive.
func ProjectEndDate(remaining int, preferred calendar.WeekdaySet, window calendar.DeliveryWindow, today calendar.Date) (end calendar.Date, ok bool) {
	if remaining <= 0 {
		return calendar.Date{}, false
	}
	deliveryDays := window.Days()
	d := today
	for i := 0; i < projectionCap; i++ {
		if deliveryDays.Contains(d.Weekday()) && preferred.Contains(d.Weekday()) {
			remaining--
			if remaining == 0 {
				return d, true
			}
		}
		d = d.AddDays(1)
	}
	return calendar.Date{}, false
}

// NextBusinessStart nudges a date off the weekend: Saturday moves two
// days to Monday, Sunday moves one.
func NextBusinessStart(d calendar.Date) calendar.Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(2)
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}
