/*
schedule.go - Boundary parse of raw order metadata

PURPOSE:
  The order system stores scheduling facts as free-text metadata strings
  ("Number Of Tiffins" may read "20 (x20)", preferred days read
  "Monday - Friday"). This file is the ONE place that string extraction
  happens: ParseOrderSchedule turns raw metadata into a typed Schedule
  and everything downstream operates on typed values only.

EXTRACTION CONTRACT:
  - Unit count: the first integer substring of the field. "20 (x20)"
    parses to 20; so does "20 tiffins".
  - Start date: "Start Date" field first, "Delivery Date" as fallback.
    Accepted layouts: 2006-01-02, January 2, 2006 and 02/01/2006.
  - Preferred days: "Preferred Days" field, "Delivery Days" accepted as
    an alias. Unknown day tokens are dropped silently.
  - Item-level metadata wins over the order-level mirror of the same
    field.
*/
package tiffin

import (
	"strings"
	"time"

	"github.com/warp/tiffin-engine/calendar"
)

// Schedule is the validated scheduling view of one order.
type Schedule struct {
	TotalUnits    int
	StartDate     calendar.Date
	PreferredDays calendar.WeekdaySet

	// Quantity is the plan line item's quantity, the base of per-date
	// box counts.
	Quantity int

	// PlanName is the plan line item's product name, carried through to
	// renewal offers.
	PlanName string
}

// ParseOrderSchedule extracts the typed schedule from an order's
// metadata. Returns ErrMissingSchedule when no start date is present or
// the unit count is absent or non-positive; an empty preferred-day set
// is NOT an error (the plan simply never delivers).
func ParseOrderSchedule(o *Order) (Schedule, error) {
	var s Schedule

	raw, ok := o.MetaValue(MetaTiffinCount)
	if !ok {
		return s, ErrMissingSchedule
	}
	s.TotalUnits = leadingInt(raw)
	if s.TotalUnits <= 0 {
		return s, ErrMissingSchedule
	}

	rawDate, ok := o.MetaValue(MetaStartDate)
	if !ok {
		rawDate, ok = o.MetaValue(MetaDeliveryDate)
	}
	if !ok {
		return s, ErrMissingSchedule
	}
	start, err := parseFlexibleDate(rawDate)
	if err != nil {
		return s, ErrMissingSchedule
	}
	s.StartDate = start

	if rawDays, ok := o.MetaValue(MetaPreferredDays); ok {
		s.PreferredDays = calendar.ParsePreferredDays(rawDays)
	} else if rawDays, ok := o.MetaValue(MetaPreferredDaysAlias); ok {
		s.PreferredDays = calendar.ParsePreferredDays(rawDays)
	}

	s.Quantity, s.PlanName = planLine(o)
	return s, nil
}

// planLine picks the line item that carries the unit-count field, or
// the first item when the metadata sits only at order level.
func planLine(o *Order) (quantity int, name string) {
	for _, item := range o.LineItems {
		if v, ok := item.Metadata[MetaTiffinCount]; ok && v != "" {
			return nonZeroQuantity(item.Quantity), item.ProductName
		}
	}
	if len(o.LineItems) > 0 {
		return nonZeroQuantity(o.LineItems[0].Quantity), o.LineItems[0].ProductName
	}
	return 1, ""
}

func nonZeroQuantity(q int) int {
	if q <= 0 {
		return 1
	}
	return q
}

// leadingInt extracts the first integer substring, or 0 when none
// exists. This is the documented contract for unit-count fields with
// trailing formatting.
func leadingInt(s string) int {
	n := 0
	seen := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			seen = true
			n = n*10 + int(r-'0')
			continue
		}
		if seen {
			break
		}
	}
	if !seen {
		return 0
	}
	return n
}

// dateLayouts are the order-entry formats seen in the wild, tried in
// order.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"02/01/2006",
}

func parseFlexibleDate(s string) (calendar.Date, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return calendar.NewDate(t.Year(), t.Month(), t.Day()), nil
		}
		lastErr = err
	}
	return calendar.Date{}, lastErr
}
