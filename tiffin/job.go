/*
job.go - The idempotent daily snapshot batch

PURPOSE:
  Once a day, after the cutoff, every active order gets exactly one new
  history entry recording its remaining count, delivery days and box
  count for the day. When a count reaches zero the order transitions to
  completed with an audit note.

IDEMPOTENCE:
  The external trigger is at-least-once; duplicate invocations on the
  same calendar day are safe because an order whose history already
  holds today's entry is skipped. Callers must serialize writes per
  order (the repository contract); two different orders are fully
  independent.

FAILURE ISOLATION:
  A failure on one order - unreadable history, failed metadata write,
  failed status transition - is logged and counted; it never aborts the
  batch.
*/
package tiffin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/tiffin-engine/calendar"
)

// completionNote is the audit note written with the completed
// transition.
const completionNote = "tiffin plan consumed: remaining count reached zero"

// SnapshotJob appends one history entry per active order per day.
type SnapshotJob struct {
	Repo   OrderRepository
	Events StatusEventLog
	Engine Engine
	Log    *zap.Logger
}

// RunSummary reports what one invocation did.
type RunSummary struct {
	RunID     string
	Date      string
	Processed int // entries appended
	Skipped   int // already done, not started, or no schedule
	Failed    int // per-order failures (logged, batch continued)
	Completed int // orders transitioned to completed
}

// Run executes the batch for now's calendar day. A no-op before the
// configured cutoff.
func (j *SnapshotJob) Run(ctx context.Context, now time.Time) (RunSummary, error) {
	today := j.Engine.Cutoff.Today(now)
	summary := RunSummary{RunID: uuid.NewString(), Date: today.String()}
	log := j.Log.With(zap.String("run_id", summary.RunID), zap.String("date", summary.Date))

	if !j.Engine.Cutoff.Passed(now) {
		log.Info("snapshot job invoked before cutoff, nothing to do")
		return summary, nil
	}

	orders, err := j.Repo.ListActiveOrders(ctx)
	if err != nil {
		return summary, fmt.Errorf("listing active orders: %w", err)
	}

	for i := range orders {
		o := &orders[i]
		switch err := j.processOrder(ctx, o, today, now, log); {
		case err == nil:
			summary.Processed++
			if o.Status == StatusCompleted {
				summary.Completed++
			}
		case errors.Is(err, errSkipOrder):
			summary.Skipped++
		default:
			summary.Failed++
			log.Error("order snapshot failed",
				zap.String("order_id", string(o.ID)),
				zap.Error(err))
		}
	}

	log.Info("snapshot job finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("completed", summary.Completed))
	return summary, nil
}

// errSkipOrder marks the orders Run counts as skipped rather than
// failed.
var errSkipOrder = errors.New("skip order")

// processOrder appends today's entry for one order. On success the
// order's Status field reflects any completed transition.
func (j *SnapshotJob) processOrder(ctx context.Context, o *Order, today calendar.Date, now time.Time, log *zap.Logger) error {
	s, err := ParseOrderSchedule(o)
	if err != nil {
		log.Debug("order has no usable schedule, skipping",
			zap.String("order_id", string(o.ID)))
		return errSkipOrder
	}

	if today.Before(s.StartDate) {
		return errSkipOrder
	}

	hist, err := HistoryOf(o)
	if err != nil {
		return err
	}
	if _, done := hist.Entry(today); done {
		return errSkipOrder // idempotence: today already recorded
	}

	events, err := j.Events.StatusEvents(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("loading status events: %w", err)
	}
	paused := WasPausedAtCutoff(events, o.Status, today, j.Engine.Cutoff)

	var remaining int
	if _, last, ok := hist.Latest(); ok {
		remaining = last.RemainingTiffins
		if !paused {
			remaining -= calendar.DayMultiplier(today.Weekday(), s.PreferredDays, j.Engine.Window)
		}
		if remaining < 0 {
			remaining = 0
		}
	} else {
		remaining = j.Engine.RemainingFromScratch(s, now)
	}

	boxes := 0
	if !paused {
		boxes = j.Engine.BoxesForDate(s, today)
	}

	entry := HistoryEntry{
		RemainingTiffins: remaining,
		DeliveryDays:     j.Engine.Window.Days().Ints(),
		BoxesDelivered:   boxes,
	}
	if err := hist.Append(o.ID, today, entry); err != nil {
		return err
	}
	encoded, err := hist.Encode()
	if err != nil {
		return err
	}
	if err := j.Repo.UpdateMetadata(ctx, o.ID, MetaCountHistory, encoded); err != nil {
		return fmt.Errorf("persisting history: %w", err)
	}
	if o.Metadata == nil {
		o.Metadata = map[string]string{}
	}
	o.Metadata[MetaCountHistory] = encoded

	if remaining == 0 && !paused && o.Status != StatusCompleted {
		if err := j.Repo.UpdateStatus(ctx, o.ID, StatusCompleted, completionNote); err != nil {
			return fmt.Errorf("completing order: %w", err)
		}
		o.Status = StatusCompleted
		log.Info("order completed",
			zap.String("order_id", string(o.ID)))
	}

	return nil
}
