/*
engine.go - Remaining-unit computation

PURPOSE:
  The Engine computes how many tiffin units an order has left. Two
  paths exist:

  RemainingFromScratch (this file):
    Replays the whole plan lifetime from the start date. Used when no
    snapshot history exists yet (new orders, or reads before the first
    daily job run).

  RemainingAsOf (snapshot.go):
    Anchors to the last persisted snapshot and advances day-by-day.
    This is the primary read path: O(days since last snapshot), and it
    does not retroactively double-count pause periods the job already
    accounted for.

CUTOFF SEMANTICS:
  Before the daily cutoff on a delivery day, today's delivery has not
  logically happened: the from-scratch walk treats yesterday as the
  as-of date. After cutoff (or on a non-delivery day) the as-of date is
  today itself.

BATCHING:
  A complete 7-day cycle consumes a fixed unit count, so the walk
  multiplies whole weeks and only loops over the partial final week.
*/
package tiffin

import (
	"time"

	"github.com/warp/tiffin-engine/calendar"
)

// Engine bundles the business configuration every computation needs.
// Construct one per run from the loaded Config; never a singleton.
type Engine struct {
	Window calendar.DeliveryWindow
	Cutoff calendar.Cutoff
}

// RemainingFromScratch computes the remaining unit count with no
// snapshot history, by walking from the plan's start date to the
// cutoff-adjusted as-of date. The result is never negative.
func (e Engine) RemainingFromScratch(s Schedule, now time.Time) int {
	today := e.Cutoff.Today(now)
	if s.StartDate.After(today) {
		return s.TotalUnits // plan has not started
	}

	asOf := today
	if !e.Cutoff.Passed(now) && e.Window.Days().Contains(today.Weekday()) {
		asOf = today.AddDays(-1)
	}
	if asOf.Before(s.StartDate) {
		return s.TotalUnits
	}

	totalDays := s.StartDate.DaysUntil(asOf) + 1
	weeks := totalDays / 7

	consumed := weeks * calendar.WeekCycleUnits(s.PreferredDays, e.Window)
	for d := s.StartDate.AddDays(weeks * 7); !d.After(asOf); d = d.AddDays(1) {
		consumed += calendar.DayMultiplier(d.Weekday(), s.PreferredDays, e.Window)
	}

	if consumed >= s.TotalUnits {
		return 0
	}
	return s.TotalUnits - consumed
}

// BoxesForDate returns the number of physical boxes delivered to the
// customer on a date: zero on non-qualifying days, the line quantity on
// qualifying ones, and on the last delivery day of the week the
// quantity again for each preferred day absorbed from the window gap
// (the box-count mirror of DayMultiplier).
func (e Engine) BoxesForDate(s Schedule, d calendar.Date) int {
	day := d.Weekday()
	boxes := 0
	if e.Window.Days().Contains(day) && s.PreferredDays.Contains(day) {
		boxes = s.Quantity
	}
	if day == e.Window.Last() {
		for _, g := range e.Window.Gap().Days() {
			if s.PreferredDays.Contains(g) {
				boxes += s.Quantity
			}
		}
	}
	return boxes
}
