package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// Job types accepted on the trigger subscription.
const (
	JobWeatherSweep = "weather_sweep"
	JobHealthCheck  = "health_check"
)

// ErrUnknownJob is returned for a job type the runner does not handle.
var ErrUnknownJob = errors.New("unknown job type")

// JobMessage is the payload of a trigger message.
type JobMessage struct {
	JobType string `json:"job_type"`
}

// healthCheckPoint is Chennai harbour.
var healthCheckPoint = geo.Point{Lat: 13.0827, Lon: 80.2707}

// JobRunner dispatches trigger messages to jobs.
type JobRunner struct {
	sweep  *SweepJob
	probe  func(ctx context.Context, at geo.Point) error
	logger zerolog.Logger
}

// NewJobRunner creates a job runner. probe checks weather provider
// connectivity for the health job.
func NewJobRunner(sweep *SweepJob, probe func(ctx context.Context, at geo.Point) error, logger zerolog.Logger) *JobRunner {
	return &JobRunner{sweep: sweep, probe: probe, logger: logger}
}

// Handle runs the job named by msg.
func (r *JobRunner) Handle(ctx context.Context, msg JobMessage) error {
	switch msg.JobType {
	case JobWeatherSweep:
		return r.weatherSweep(ctx)
	case JobHealthCheck:
		return r.healthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (r *JobRunner) weatherSweep(ctx context.Context) error {
	result, err := r.sweep.Run(ctx)
	if err != nil {
		return err
	}

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many sweep failures: %d/%d", result.Failed, result.Successful+result.Failed)
	}
	return nil
}

func (r *JobRunner) healthCheck(ctx context.Context) error {
	r.logger.Debug().Msg("running health check")

	if r.probe == nil {
		return nil
	}
	if err := r.probe(ctx, healthCheckPoint); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	r.logger.Debug().Msg("health check passed")
	return nil
}
