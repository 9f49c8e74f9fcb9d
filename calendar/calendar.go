/*
Package calendar provides the pure date and weekday arithmetic that the
tiffin scheduling engine is built on.

PURPOSE:
  Everything in this package is a stateless function over values: weekday
  sets, the business delivery window, preferred-day parsing, and the
  per-day delivery multiplier. No clocks, no stores, no configuration
  lookups - callers pass everything in.

KEY CONCEPTS IN THIS FILE (calendar.go):
  - Date: A calendar day (no time-of-day component)
  - WeekdaySet: A set of weekday numbers, 0=Sunday .. 6=Saturday
  - DeliveryWindow: The business-wide weekday range deliveries operate on

WEEKDAY NUMBERING:
  Weekday numbers follow time.Weekday: 0=Sunday through 6=Saturday.
  This numbering is part of the persisted history wire format
  (delivery_days), so it must never change.

SEE ALSO:
  - window.go: DeliveryWindow and the wrap-around range rule
  - multiplier.go: DayMultiplier and boundary absorption
  - cutoff.go: The daily cutoff instant
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - A calendar day, independent of time-of-day
// =============================================================================

// Date is a calendar day. The zero value is the zero date.
// Internally normalized to midnight UTC so comparisons are exact;
// "which day is it" questions are answered by the caller in the
// business timezone before constructing a Date.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of instant in the given location.
func DateOf(instant time.Time, loc *time.Location) Date {
	local := instant.In(loc)
	return NewDate(local.Year(), local.Month(), local.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to other.
// Negative when other is before d.
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// WEEKDAY SET
// =============================================================================

// WeekdaySet is a set of weekdays. The zero value is the empty set.
type WeekdaySet struct {
	days [7]bool
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s.days[int(d)%7] = true
	}
	return s
}

func (s WeekdaySet) Contains(d time.Weekday) bool { return s.days[int(d)%7] }
func (s *WeekdaySet) Add(d time.Weekday)          { s.days[int(d)%7] = true }

func (s WeekdaySet) IsEmpty() bool {
	for _, ok := range s.days {
		if ok {
			return false
		}
	}
	return true
}

func (s WeekdaySet) Count() int {
	n := 0
	for _, ok := range s.days {
		if ok {
			n++
		}
	}
	return n
}

// Days returns the members in ascending weekday-number order.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for i, ok := range s.days {
		if ok {
			out = append(out, time.Weekday(i))
		}
	}
	return out
}

// Ints returns the members as sorted weekday numbers, for the persisted
// delivery_days wire field.
func (s WeekdaySet) Ints() []int {
	var out []int
	for i, ok := range s.days {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	names := ""
	for i, ok := range s.days {
		if ok {
			if names != "" {
				names += ","
			}
			names += time.Weekday(i).String()
		}
	}
	return "{" + names + "}"
}

// =============================================================================
// WEEKDAY NAME PARSING
// =============================================================================

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses a full English weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := lookupWeekday(name)
	if !ok {
		return 0, fmt.Errorf("unknown weekday name %q", name)
	}
	return d, nil
}
