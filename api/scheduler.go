/*
scheduler.go - Background scheduler for the daily snapshot job

PURPOSE:
  Periodically runs the end-of-day snapshot job and, after it, the
  renewal reminder sweep. The job itself decides whether there is work
  to do (before cutoff it is a no-op, and a day already snapshotted is
  skipped per order), so the check interval only bounds how soon after
  cutoff the day gets accounted.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Every tick runs the snapshot job, then the renewal scan
  - Both operations are idempotent, so overlapping or frequent ticks
    are harmless

USAGE:
  scheduler := NewScheduler(job, planner, interval, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - tiffin/job.go: the snapshot job
  - renewal/offer.go: the reminder sweep
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/tiffin-engine/renewal"
	"github.com/warp/tiffin-engine/tiffin"
)

// Scheduler drives the daily snapshot job and renewal sweep.
type Scheduler struct {
	Job           *tiffin.SnapshotJob
	Planner       *renewal.Planner
	CheckInterval time.Duration
	Log           *zap.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// NewScheduler creates a scheduler with the given check interval.
func NewScheduler(job *tiffin.SnapshotJob, planner *renewal.Planner, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		Job:           job,
		Planner:       planner,
		CheckInterval: interval,
		Log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the background loop. Runs one check immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Log.Info("scheduler started", zap.Duration("check_interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight check to finish.
// Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil || s.stopped {
		return
	}
	s.stopped = true

	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.Log.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	s.checkAndProcess()

	for {
		select {
		case <-s.ticker.C:
			s.checkAndProcess()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) checkAndProcess() {
	ctx := context.Background()
	now := time.Now()

	summary, err := s.Job.Run(ctx, now)
	if err != nil {
		s.Log.Error("daily snapshot job failed", zap.Error(err))
		return
	}
	if summary.Processed > 0 || summary.Failed > 0 {
		s.Log.Info("daily snapshot job completed",
			zap.String("run_id", summary.RunID),
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
			zap.Int("completed", summary.Completed))
	}

	scan, err := s.Planner.Scan(ctx, now)
	if err != nil {
		s.Log.Error("renewal scan failed", zap.Error(err))
		return
	}
	if scan.Offered > 0 || scan.Failed > 0 {
		s.Log.Info("renewal scan completed",
			zap.Int("offered", scan.Offered),
			zap.Int("skipped", scan.Skipped),
			zap.Int("failed", scan.Failed))
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (s *Scheduler) RunNow() {
	s.checkAndProcess()
}
