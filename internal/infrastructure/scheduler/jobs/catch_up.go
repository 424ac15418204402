package jobs

import (
	"context"
	"fmt"

	"github.com/nekolog/wellness-hub/internal/application/command"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATCH-UP JOB
// Periodically compares the persisted last calculation day against the
// current day and runs the rollover when they differ. This is the path
// that recovers from a missed midnight firing, a process restart, or a
// machine that slept across one or more day boundaries.
// ══════════════════════════════════════════════════════════════════════════════

// CatchUpJob runs the rollover with the catch-up flag on an interval.
type CatchUpJob struct {
	runner RolloverRunner
	log    *logger.Logger
}

// NewCatchUpJob creates a new catch-up job.
func NewCatchUpJob(runner RolloverRunner, log *logger.Logger) *CatchUpJob {
	if log == nil {
		log = logger.Default()
	}
	return &CatchUpJob{
		runner: runner,
		log:    log.WithComponent("catch_up_job"),
	}
}

// Name implements scheduler.Job.
func (j *CatchUpJob) Name() string {
	return "catch_up"
}

// Description implements scheduler.Job.
func (j *CatchUpJob) Description() string {
	return "Rolls the day over when the stored calculation day has fallen behind"
}

// Run implements scheduler.Job.
func (j *CatchUpJob) Run(ctx context.Context) error {
	result, err := j.runner.Handle(ctx, command.RunRolloverCommand{CatchUp: true})
	if err != nil {
		return fmt.Errorf("catch up: %w", err)
	}

	if result.Ran {
		j.log.Info("catch-up rollover performed",
			logger.String("day", result.Day.String()),
			logger.ScoreValue(result.Score.Int()),
		)
	}

	return nil
}
