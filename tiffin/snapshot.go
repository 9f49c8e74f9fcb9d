/*
snapshot.go - Incremental recomputation anchored to the last snapshot

PURPOSE:
  RemainingAsOf is the primary read path for dashboards and exporters.
  Once the daily job has persisted a value for a day, that value is the
  single source of truth; this path only advances forward from it.

DECISION LADDER (in order):
  1. Plan not started          -> from-scratch (returns TotalUnits)
  2. Order not processing      -> frozen at last snapshot (or scratch)
  3. Snapshot exists for today -> return it, already computed
  4. Cutoff not passed today   -> last snapshot unchanged, nothing new
  5. No snapshot at all        -> from-scratch
  6. Otherwise                 -> advance from last snapshot to today

  Step 6 skips days before the start date and clamps at zero. Repeated
  calls with the same (order state, today) pair return the same value.
*/
package tiffin

import (
	"time"

	"github.com/warp/tiffin-engine/calendar"
)

// RemainingAsOf computes the order's remaining unit count as of now,
// preferring the persisted snapshot history over a full replay.
func (e Engine) RemainingAsOf(o *Order, now time.Time) (int, error) {
	s, err := ParseOrderSchedule(o)
	if err != nil {
		// Nothing to schedule computes to zero remaining, by contract.
		return 0, nil
	}
	return e.remainingAsOf(o, s, now)
}

func (e Engine) remainingAsOf(o *Order, s Schedule, now time.Time) (int, error) {
	today := e.Cutoff.Today(now)

	// 1. Not started yet.
	if s.StartDate.After(today) {
		return e.RemainingFromScratch(s, now), nil
	}

	hist, err := HistoryOf(o)
	if err != nil {
		return 0, err
	}

	// 2. Paused/completed/cancelled orders are frozen at their last
	// recorded value.
	if o.Status != StatusProcessing {
		if _, last, ok := hist.Latest(); ok {
			return last.RemainingTiffins, nil
		}
		return e.RemainingFromScratch(s, now), nil
	}

	// 3. Today already computed by the job.
	if entry, ok := hist.Entry(today); ok {
		return entry.RemainingTiffins, nil
	}

	lastDate, last, ok := hist.Latest()

	// 4. Before today's cutoff there is no new information yet.
	if ok && !e.Cutoff.Passed(now) {
		return last.RemainingTiffins, nil
	}

	// 5. No snapshot at all: full replay.
	if !ok {
		return e.RemainingFromScratch(s, now), nil
	}

	// 6. Advance day-by-day from the snapshot to today.
	remaining := last.RemainingTiffins
	for d := lastDate.AddDays(1); !d.After(today); d = d.AddDays(1) {
		if d.Before(s.StartDate) {
			continue
		}
		remaining -= calendar.DayMultiplier(d.Weekday(), s.PreferredDays, e.Window)
		if remaining <= 0 {
			return 0, nil
		}
	}
	return remaining, nil
}
