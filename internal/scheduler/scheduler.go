// Package scheduler repeats crawl cycles with a fixed sleep window between
// them until the context is canceled.
package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/crawler"
)

// Cycler runs one crawl cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (crawler.CycleReport, error)
}

// Scheduler drives a Cycler in a loop: cycle, sleep, repeat.
type Scheduler struct {
	cycler   Cycler
	sleeper  crawler.Sleeper
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	last   crawler.CycleReport
	ran    bool
	cycles int
}

// New builds a Scheduler. interval is the pause after each cycle.
func New(cycler Cycler, sleeper crawler.Sleeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cycler:   cycler,
		sleeper:  sleeper,
		interval: interval,
		logger:   logger,
	}
}

// RunOnce executes a single cycle and records its report.
func (s *Scheduler) RunOnce(ctx context.Context) (crawler.CycleReport, error) {
	s.logger.Info("pastes harvester started")
	report, err := s.cycler.RunCycle(ctx)

	s.mu.Lock()
	s.last = report
	s.ran = true
	s.cycles++
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		s.logger.Error("crawl cycle failed",
			zap.String("run_id", report.RunID),
			zap.String("stop_reason", string(report.StopReason)),
			zap.Error(err),
		)
	} else if err == nil {
		s.logger.Info("done", zap.String("run_id", report.RunID))
	}
	return report, err
}

// Run loops until ctx is canceled. Failed cycles are logged and retried
// after the next sleep window; cancellation returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("launching the runtime", zap.Duration("interval", s.interval))
	for {
		_, _ = s.RunOnce(ctx)
		if ctx.Err() != nil {
			s.logger.Info("runtime stopped")
			return nil
		}

		s.logger.Info("Sleeping for the next " + windowLabel(s.interval))
		if err := s.sleeper.Sleep(ctx, s.interval); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("runtime stopped")
				return nil
			}
			return err
		}
	}
}

// Last returns the most recent cycle report, if any cycle has run.
func (s *Scheduler) Last() (crawler.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.ran
}

// Cycles returns the number of cycles run so far.
func (s *Scheduler) Cycles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycles
}

// windowLabel renders d in hours, e.g. "1 hour" or "1.5 hours".
func windowLabel(d time.Duration) string {
	hours := d.Hours()
	label := strconv.FormatFloat(hours, 'f', -1, 64) + " hour"
	if hours > 1 {
		label += "s"
	}
	return label
}
