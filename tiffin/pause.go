/*
pause.go - Was the order paused when the day's accounting happened?

PURPOSE:
  A paused order keeps its remaining count frozen and receives no
  boxes. Pausing is a status transition in the external order system,
  so "was it paused on day D" is answered by resolving the order's
  status AT THE CUTOFF INSTANT of D from the status-change event log:

    - the last transition at-or-before D's cutoff wins;
    - transitions later in the day (after cutoff) do not count for D;
    - with no transition on or before D's cutoff anywhere in history,
      the order's current live status is the best available answer.
*/
package tiffin

import "github.com/warp/tiffin-engine/calendar"

// WasPausedAtCutoff resolves the order's status at the cutoff instant
// on the given date and reports whether it was paused. Events must be
// in chronological order, oldest first.
func WasPausedAtCutoff(events []StatusEvent, current Status, d calendar.Date, cutoff calendar.Cutoff) bool {
	instant := cutoff.InstantOn(d)

	resolved := current
	applied := false
	for _, ev := range events {
		if ev.At.After(instant) {
			if !applied {
				// The first transition sits after the cutoff: the status
				// it transitioned FROM is what held at the instant.
				resolved = ev.From
			}
			break
		}
		resolved = ev.To
		applied = true
	}
	return resolved == StatusPaused
}
