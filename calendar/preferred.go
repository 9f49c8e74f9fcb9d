/*
preferred.go - Customer preferred-day parsing

PURPOSE:
  Customers record their preferred delivery days as a free-text string
  at order time. The string comes in three shapes, disambiguated by the
  number of " - " separated parts:

    "Tuesday"                       one bare day name
    "Monday - Friday"               exactly two parts: an inclusive range
                                    (wrap-around, same rule as the window)
    "Monday - Wednesday - Friday"   three or more parts: an explicit list

  Matching is case-insensitive. Unknown day names are dropped silently;
  an all-unknown string therefore parses to the empty set, which
  downstream arithmetic treats as "never delivers".

CONTRACT:
  Only full English day names are recognized. This is the one place
  free-text day parsing happens; everything downstream works on
  WeekdaySet values.
*/
package calendar

import (
	"strings"
	"time"
)

// preferredSeparator is the literal separator used in the stored
// preferred-days string. A plain "-" without surrounding spaces is not
// a separator.
const preferredSeparator = " - "

// ParsePreferredDays converts a stored preferred-days string into a
// weekday set. See the package comment for the three accepted shapes.
func ParsePreferredDays(text string) WeekdaySet {
	parts := strings.Split(text, preferredSeparator)

	switch len(parts) {
	case 1:
		var s WeekdaySet
		if d, ok := lookupWeekday(parts[0]); ok {
			s.Add(d)
		}
		return s

	case 2:
		from, okFrom := lookupWeekday(parts[0])
		to, okTo := lookupWeekday(parts[1])
		if !okFrom || !okTo {
			// Degrade to the list interpretation so one bad token
			// does not wipe out the good one.
			return lookupAll(parts)
		}
		return weekdayRange(from, to)

	default:
		return lookupAll(parts)
	}
}

func lookupAll(parts []string) WeekdaySet {
	var s WeekdaySet
	for _, p := range parts {
		if d, ok := lookupWeekday(p); ok {
			s.Add(d)
		}
	}
	return s
}

func lookupWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}
