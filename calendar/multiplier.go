/*
multiplier.go - Per-day delivery unit multiplier

PURPOSE:
  DayMultiplier answers "how many tiffin units does this weekday consume
  for this customer?" and is the single authority every consumption path
  (from-scratch walk, incremental snapshot advance, daily job) uses.

BASE RULE:
  A day consumes 1 unit when it is both a delivery day (inside the
  business window) and one of the customer's preferred days.

BOUNDARY ABSORPTION:
  A customer may prefer a day the business does not operate on (for a
  Mon..Fri window: Saturday or Sunday). The business still owes that
  unit, so it rolls up onto the LAST delivery day of the week. Example:
  preferred {Sat}, window Mon..Fri - Friday carries Saturday's unit even
  though Friday itself is not preferred.

  An older symmetric rule absorbed gap days onto the FIRST delivery day
  in one legacy calculation path. The last-day rule is the authoritative
  one; the first-day variant is deliberately not implemented.
*/
package calendar

import "time"

// DayMultiplier returns the number of logical delivery units
// attributable to the given weekday: the base unit when the day is both
// in the window and preferred, plus one absorbed unit per preferred day
// falling in the window gap when the day is the last delivery day.
func DayMultiplier(day time.Weekday, preferred WeekdaySet, window DeliveryWindow) int {
	m := 0
	if window.Days().Contains(day) && preferred.Contains(day) {
		m++
	}
	if day == window.Last() {
		for _, g := range window.Gap().Days() {
			if preferred.Contains(g) {
				m++
			}
		}
	}
	return m
}

// WeekCycleUnits returns the units consumed by one complete 7-day
// cycle. A full week visits every weekday exactly once, so the walk
// from-start can batch complete weeks with a single multiplication.
func WeekCycleUnits(preferred WeekdaySet, window DeliveryWindow) int {
	total := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		total += DayMultiplier(d, preferred, window)
	}
	return total
}
