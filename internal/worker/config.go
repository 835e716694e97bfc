// Package worker runs the periodic weather and risk sweep over active boats.
package worker

import (
	"time"
)

// SweepConfig holds configuration for the sweep job.
type SweepConfig struct {
	// Concurrency is the number of boats refreshed at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the refresh of a single boat.
	// Default: 30 seconds
	Timeout time.Duration

	// Interval is how often the scheduler runs the sweep.
	// Default: 30 minutes
	Interval time.Duration
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Concurrency: 3,
		Timeout:     30 * time.Second,
		Interval:    30 * time.Minute,
	}
}

func (c SweepConfig) withDefaults() SweepConfig {
	def := DefaultSweepConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}
