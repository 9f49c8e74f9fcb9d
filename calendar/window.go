/*
window.go - The business delivery window

PURPOSE:
  The delivery window is the inclusive range of weekdays the business
  delivers on at all, configured as a start and end weekday name
  (default monday..friday). The range wraps past Saturday into Sunday
  when the end weekday precedes the start weekday, so "friday..monday"
  means {Fri, Sat, Sun, Mon}.

INVARIANT:
  A window always normalizes to a non-empty weekday set. A window whose
  start equals its end is the single-day window.

SEE ALSO:
  - multiplier.go: uses First/Last/Gap for boundary absorption
*/
package calendar

import "time"

// DeliveryWindow is the inclusive, wrap-around-aware weekday range the
// business operates deliveries on.
type DeliveryWindow struct {
	Start time.Weekday
	End   time.Weekday
}

// ParseWindow builds a window from configured weekday names.
func ParseWindow(startName, endName string) (DeliveryWindow, error) {
	start, err := ParseWeekday(startName)
	if err != nil {
		return DeliveryWindow{}, err
	}
	end, err := ParseWeekday(endName)
	if err != nil {
		return DeliveryWindow{}, err
	}
	return DeliveryWindow{Start: start, End: end}, nil
}

// Days returns the inclusive weekday range [Start..End], wrapping past
// Saturday when End < Start.
func (w DeliveryWindow) Days() WeekdaySet {
	return weekdayRange(w.Start, w.End)
}

// First returns the first delivery weekday of the week.
func (w DeliveryWindow) First() time.Weekday { return w.Start }

// Last returns the last delivery weekday of the week. Units owed for
// preferred days outside the window roll up onto this day.
func (w DeliveryWindow) Last() time.Weekday { return w.End }

// Gap returns the non-operational weekdays between the end of one
// delivery week and the start of the next (empty when the window
// covers all seven days).
func (w DeliveryWindow) Gap() WeekdaySet {
	if w.Days().Count() == 7 {
		return WeekdaySet{}
	}
	return weekdayRange((w.End+1)%7, (w.Start+6)%7)
}

// weekdayRange builds the inclusive set [from..to], stepping forward
// through the week and wrapping mod 7.
func weekdayRange(from, to time.Weekday) WeekdaySet {
	var s WeekdaySet
	for d := from; ; d = (d + 1) % 7 {
		s.Add(d)
		if d == to {
			break
		}
	}
	return s
}
