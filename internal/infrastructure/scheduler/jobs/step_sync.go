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
// STEP SYNC JOB
// Pulls today's cumulative step count from the health bridge on an
// interval and feeds it through the sync command, which caches the
// count and evaluates the once-per-day reward gate. A push delivery
// from the bridge runs the same command, so the two paths never race
// past the gate.
// ══════════════════════════════════════════════════════════════════════════════

// StepSyncRunner executes one step sync command.
type StepSyncRunner interface {
	Handle(ctx context.Context, cmd command.SyncStepsCommand) (*command.SyncStepsResult, error)
}

// StepSyncStats captures the outcome of the last sync.
type StepSyncStats struct {
	RanAt    time.Time
	Steps    int
	Rewarded bool
}

// StepSyncJob pulls and applies the daily step count.
type StepSyncJob struct {
	runner  StepSyncRunner
	log     *logger.Logger
	lastRun atomic.Value // StepSyncStats
}

// NewStepSyncJob creates a new step sync job.
func NewStepSyncJob(runner StepSyncRunner, log *logger.Logger) *StepSyncJob {
	if log == nil {
		log = logger.Default()
	}
	return &StepSyncJob{
		runner: runner,
		log:    log.WithComponent("step_sync_job"),
	}
}

// Name implements scheduler.Job.
func (j *StepSyncJob) Name() string {
	return "step_sync"
}

// Description implements scheduler.Job.
func (j *StepSyncJob) Description() string {
	return "Pulls today's step count from the health bridge and runs the reward gate"
}

// Run implements scheduler.Job.
func (j *StepSyncJob) Run(ctx context.Context) error {
	result, err := j.runner.Handle(ctx, command.SyncStepsCommand{Fetch: true})
	if err != nil {
		return fmt.Errorf("step sync: %w", err)
	}

	j.lastRun.Store(StepSyncStats{
		RanAt:    time.Now(),
		Steps:    result.Steps,
		Rewarded: result.Rewarded,
	})

	if result.Rewarded {
		j.log.Info("daily step goal rewarded", logger.StepCount(result.Steps))
	}

	return nil
}

// LastRunStats returns the stats of the most recent run, if any.
func (j *StepSyncJob) LastRunStats() (StepSyncStats, bool) {
	stats, ok := j.lastRun.Load().(StepSyncStats)
	return stats, ok
}
