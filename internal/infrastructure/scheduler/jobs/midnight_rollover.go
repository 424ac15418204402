// Package jobs contains the scheduled jobs of the NekoLog daily cycle.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nekolog/wellness-hub/internal/application/command"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIDNIGHT ROLLOVER JOB
// Fires at 00:00 JST on the MidnightSchedule and runs the day rollover.
// The catch-up job shares the same command, so a missed firing is
// harmless; the persisted last calculation day guards both paths.
// ══════════════════════════════════════════════════════════════════════════════

// RolloverRunner executes one rollover command.
type RolloverRunner interface {
	Handle(ctx context.Context, cmd command.RunRolloverCommand) (*command.RunRolloverResult, error)
}

// RolloverStats captures the outcome of the last rollover run.
type RolloverStats struct {
	RanAt time.Time
	Ran   bool
	Score int
	Day   string
}

// MidnightRolloverJob runs the daily rollover.
type MidnightRolloverJob struct {
	runner  RolloverRunner
	log     *logger.Logger
	lastRun atomic.Value // RolloverStats
}

// NewMidnightRolloverJob creates a new midnight rollover job.
func NewMidnightRolloverJob(runner RolloverRunner, log *logger.Logger) *MidnightRolloverJob {
	if log == nil {
		log = logger.Default()
	}
	return &MidnightRolloverJob{
		runner: runner,
		log:    log.WithComponent("midnight_rollover_job"),
	}
}

// Name implements scheduler.Job.
func (j *MidnightRolloverJob) Name() string {
	return "midnight_rollover"
}

// Description implements scheduler.Job.
func (j *MidnightRolloverJob) Description() string {
	return "Finalizes the ended day and opens the new one at midnight JST"
}

// Run implements scheduler.Job.
func (j *MidnightRolloverJob) Run(ctx context.Context) error {
	result, err := j.runner.Handle(ctx, command.RunRolloverCommand{})
	if err != nil {
		return fmt.Errorf("midnight rollover: %w", err)
	}

	j.lastRun.Store(RolloverStats{
		RanAt: time.Now(),
		Ran:   result.Ran,
		Score: result.Score.Int(),
		Day:   result.Day.String(),
	})

	return nil
}

// LastRunStats returns the stats of the most recent run, if any.
func (j *MidnightRolloverJob) LastRunStats() (RolloverStats, bool) {
	stats, ok := j.lastRun.Load().(RolloverStats)
	return stats, ok
}
