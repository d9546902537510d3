package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Runner runs a single scan.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (Result, error)
}

// Scheduler runs scans on a fixed interval and on demand. Scans never overlap:
// triggers that arrive while a scan runs collapse into one follow-up scan.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger
}

// NewScheduler creates a scheduler. An interval <= 0 disables periodic scans.
func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// Trigger requests a scan. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run processes triggers and ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.trigger:
			s.runOnce(ctx, "trigger")
		case <-tick:
			s.runOnce(ctx, "interval")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	s.logger.Debug("Starting scheduled scan", "reason", reason)
	if _, err := s.runner.Run(ctx, RunOptions{}); err != nil && !errors.Is(err, ErrCancelled) {
		s.logger.Error("Scheduled scan failed", "reason", reason, "error", err)
	}
}
