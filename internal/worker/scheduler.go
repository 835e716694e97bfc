package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler invokes a job on a fixed interval until its context is cancelled.
type Scheduler struct {
	interval       time.Duration
	runImmediately bool
	logger         zerolog.Logger
}

// SchedulerConfig holds configuration for a Scheduler.
type SchedulerConfig struct {
	Interval time.Duration

	// RunImmediately runs the job once before the first tick.
	RunImmediately bool

	Logger zerolog.Logger
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepConfig().Interval
	}
	return &Scheduler{
		interval:       interval,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks, calling job every interval. Runs never overlap: a tick that
// fires while the job is still running is dropped.
func (s *Scheduler) Run(ctx context.Context, job func(ctx context.Context)) {
	s.logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	if s.runImmediately {
		job(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}
