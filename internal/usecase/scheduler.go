package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/ports"
)

// Job binds a cron driver to a runner task.
type Job struct {
	Task   string
	Driver ports.Scheduler
}

// Scheduler fires runner tasks from cron drivers. A tick that finds its task
// still running is skipped.
type Scheduler struct {
	runner *Runner
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(runner *Runner, logger *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		runner: runner,
		jobs:   jobs,
		logger: logging.OrDiscard(logger).With("component", "scheduler"),
	}
}

// Start registers every job with its driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}

	for _, job := range s.jobs {
		if job.Driver == nil {
			continue
		}
		task := job.Task
		fire := func(trigger time.Time) {
			err := s.runner.Run(ctx, task, TriggerCron)
			switch {
			case errors.Is(err, domain.ErrTaskInProgress):
				s.logger.Warn("previous run still active, skipping tick", "task", task, "at", trigger)
			case err != nil:
				s.logger.Error("scheduled task failed", "task", task, "error", err)
			}
		}
		if err := job.Driver.Start(ctx, fire); err != nil {
			return err
		}
		s.logger.Info("job scheduled", "task", task)
	}
	return nil
}

// Stop gracefully tears down every driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		if job.Driver == nil {
			continue
		}
		if err := job.Driver.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
