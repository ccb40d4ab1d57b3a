package recon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler reruns discovery on a fixed interval, skipping ticks inside the
// quiet window and ticks that arrive while a run is still in progress.
type Scheduler struct {
	cfg     ScheduleConfig
	run     func(ctx context.Context)
	logger  *zap.Logger
	nowFunc func() time.Time

	running  atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a scheduler that calls run on every accepted tick.
func NewScheduler(cfg ScheduleConfig, run func(ctx context.Context), logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:     cfg,
		run:     run,
		logger:  logger,
		nowFunc: time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Run starts the ticker loop. It blocks until ctx is cancelled or Stop is
// called, then waits for an in-progress run to return.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.logger.Info("discovery scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.String("quiet_start", s.cfg.QuietStart),
		zap.String("quiet_end", s.cfg.QuietEnd),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("discovery scheduler stopped (context cancelled)")
			return
		case <-s.stopCh:
			s.logger.Info("discovery scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop signals the scheduler to exit its run loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// tick starts a run unless quiet hours apply or one is already running.
// It reports whether a run was started.
func (s *Scheduler) tick(ctx context.Context) bool {
	if isQuietHours(s.nowFunc(), s.cfg.QuietStart, s.cfg.QuietEnd) {
		s.logger.Debug("scheduled discovery skipped: quiet hours",
			zap.String("quiet_start", s.cfg.QuietStart),
			zap.String("quiet_end", s.cfg.QuietEnd),
		)
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("scheduled discovery skipped: run already in progress")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.logger.Info("scheduled discovery started")
		s.run(ctx)
		s.logger.Info("scheduled discovery completed")
	}()
	return true
}

// isQuietHours returns true if the given time falls within the quiet window
// defined by startHHMM and endHHMM (format "HH:MM"). Supports overnight
// ranges (e.g., "23:00" to "06:00"). Returns false if either value is empty
// or cannot be parsed.
func isQuietHours(now time.Time, startHHMM, endHHMM string) bool {
	if startHHMM == "" || endHHMM == "" {
		return false
	}

	startMin, ok := parseHHMM(startHHMM)
	if !ok {
		return false
	}
	endMin, ok := parseHHMM(endHHMM)
	if !ok {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

// parseHHMM parses a "HH:MM" string into minutes since midnight.
func parseHHMM(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
