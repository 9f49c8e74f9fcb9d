/*
cutoff.go - The daily accounting cutoff

PURPOSE:
  The business treats a day's delivery as "having happened" only after a
  configured clock time (default 17:00) in the business timezone. Before
  that instant, today is not yet accounted for: reads anchor to
  yesterday and the daily snapshot job refuses to run.

  All cutoff questions are answered against an explicitly passed "now";
  nothing in this package reads the wall clock.
*/
package calendar

import "time"

// Cutoff is the daily clock time after which today's delivery is
// considered accounted for, anchored to the business timezone.
type Cutoff struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

// InstantOn returns the cutoff instant on the given calendar day.
func (c Cutoff) InstantOn(d Date) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, c.Loc)
}

// Passed reports whether now is at or past the cutoff on now's own
// calendar day.
func (c Cutoff) Passed(now time.Time) bool {
	today := DateOf(now, c.Loc)
	return !now.Before(c.InstantOn(today))
}

// Today returns the calendar day of now in the cutoff's timezone.
func (c Cutoff) Today(now time.Time) Date {
	return DateOf(now, c.Loc)
}
