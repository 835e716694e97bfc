package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/risk"
	"github.com/uyirkavalan/uyirkavalan/internal/weather"
)

// Refresher refreshes the stored weather and risk for one boat.
type Refresher interface {
	RefreshBoat(ctx context.Context, boatID string, at geo.Point) (*weather.BoatConditions, error)
}

// SweepJob refreshes weather and risk for every active boat with a known position.
type SweepJob struct {
	config    SweepConfig
	boats     boat.Directory
	refresher Refresher
	bus       bus.MessageBus
	logger    zerolog.Logger

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalSweeps    int64
	BoatsRefreshed int64
	BoatsFailed    int64
	BoatsSkipped   int64
	RedAssessments int64

	// Timings
	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config    SweepConfig
	Boats     boat.Directory
	Refresher Refresher

	// Bus, when set, receives a risk event for every refreshed boat.
	Bus bus.MessageBus

	Logger zerolog.Logger
}

// NewSweepJob creates a new sweep job.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	return &SweepJob{
		config:    cfg.Config.withDefaults(),
		boats:     cfg.Boats,
		refresher: cfg.Refresher,
		bus:       cfg.Bus,
		logger:    cfg.Logger.With().Str("component", "sweep").Logger(),
		metrics:   &SweepMetrics{},
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Total      int
	Successful int
	Failed     int
	Skipped    int
	Errors     []SweepError
}

// SweepError records one boat's failed refresh.
type SweepError struct {
	Boat  string
	Error string
}

type boatResult struct {
	boatID string
	red    bool
	err    error
}

// Run executes one sweep. A boat that fails is logged and counted; it never
// stops the others. Run returns an error only if the boat list cannot be read.
func (j *SweepJob) Run(ctx context.Context) (*SweepResult, error) {
	startTime := time.Now()
	result := &SweepResult{StartTime: startTime}

	boats, err := j.boats.ListActive(ctx)
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to list active boats")
		return nil, err
	}

	targets := make([]*boat.Boat, 0, len(boats))
	for _, b := range boats {
		if b.LastKnownLocation == nil {
			result.Skipped++
			continue
		}
		targets = append(targets, b)
	}
	result.Total = len(boats)

	j.logger.Info().
		Int("boats", len(targets)).
		Int("skipped", result.Skipped).
		Int("concurrency", j.config.Concurrency).
		Msg("starting weather sweep")

	boatsChan := make(chan *boat.Boat, len(targets))
	resultsChan := make(chan boatResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.sweepWorker(ctx, boatsChan, resultsChan)
		}()
	}

	for _, b := range targets {
		boatsChan <- b
	}
	close(boatsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	red := 0
	for br := range resultsChan {
		if br.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, SweepError{Boat: br.boatID, Error: br.err.Error()})
			continue
		}
		result.Successful++
		if br.red {
			red++
		}
	}

	// Boats never picked up because the context ended count as failed.
	if missed := len(targets) - result.Successful - result.Failed; missed > 0 && ctx.Err() != nil {
		result.Failed += missed
		result.Errors = append(result.Errors, SweepError{Error: ctx.Err().Error()})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result, red)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Int("red", red).
		Msg("weather sweep completed")

	return result, nil
}

func (j *SweepJob) sweepWorker(ctx context.Context, boats <-chan *boat.Boat, results chan<- boatResult) {
	for b := range boats {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshBoat(ctx, b)
		}
	}
}

func (j *SweepJob) refreshBoat(ctx context.Context, b *boat.Boat) boatResult {
	boatCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	conditions, err := j.refresher.RefreshBoat(boatCtx, b.ID, b.LastKnownLocation.Point)
	if err != nil {
		j.logger.Warn().Err(err).Str("boat_id", b.ID).Msg("boat weather refresh failed")
		return boatResult{boatID: b.ID, err: err}
	}

	bus.PublishToBoat(j.bus, b.ID, bus.KindRisk, conditions.Assessment)

	return boatResult{
		boatID: b.ID,
		red:    conditions.Assessment != nil && conditions.Assessment.Level == risk.LevelRed,
	}
}

func (j *SweepJob) updateMetrics(result *SweepResult, red int) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.BoatsRefreshed += int64(result.Successful)
	j.metrics.BoatsFailed += int64(result.Failed)
	j.metrics.BoatsSkipped += int64(result.Skipped)
	j.metrics.RedAssessments += int64(red)
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *SweepJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		BoatsRefreshed:    j.metrics.BoatsRefreshed,
		BoatsFailed:       j.metrics.BoatsFailed,
		BoatsSkipped:      j.metrics.BoatsSkipped,
		RedAssessments:    j.metrics.RedAssessments,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_sweeps":        m.TotalSweeps,
		"boats_refreshed":     m.BoatsRefreshed,
		"boats_failed":        m.BoatsFailed,
		"boats_skipped":       m.BoatsSkipped,
		"red_assessments":     m.RedAssessments,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
