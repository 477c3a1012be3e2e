package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Scheduler triggers recurring ingestion runs in-process, for
// deployments without an external scheduler publishing to Pub/Sub.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    *Runner
	every     time.Duration
	source    string
	logger    zerolog.Logger
}

// SchedulerConfig holds configuration for the Scheduler.
type SchedulerConfig struct {
	Runner *Runner

	// Every is the run interval (required).
	Every time.Duration

	// Source to ingest on each tick. Defaults to SourceAll.
	Source string

	Logger zerolog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	source := cfg.Source
	if source == "" {
		source = SourceAll
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    cfg.Runner,
		every:     cfg.Every,
		source:    source,
		logger:    cfg.Logger,
	}
}

// Start schedules the recurring run and begins ticking. Runs overlap is
// prevented; a tick firing while the previous run is still in flight is
// skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.every).SingletonMode().Do(func() {
		s.logger.Info().Str("source", s.source).Msg("scheduled ingestion tick")
		result := s.runner.Run(ctx, s.source)
		if result.StatusCode != 200 {
			s.logger.Error().
				Str("source", s.source).
				Str("message", result.Message).
				Msg("scheduled run failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Dur("every", s.every).
		Str("source", s.source).
		Msg("starting scheduler")
	s.scheduler.StartAsync()
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
