package jobs

import (
	"context"
	"fmt"

	"github.com/nekolog/wellness-hub/internal/application/command"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITLEMENT REFRESH JOB
// Replays the store's current entitlement stream on an interval. This
// is how revocations (refunds, family-sharing removals) reach the
// ledger, and how a trial that lapsed while the process was down gets
// its status flipped.
// ══════════════════════════════════════════════════════════════════════════════

// RestoreRunner executes one restore command.
type RestoreRunner interface {
	Handle(ctx context.Context, cmd command.RestorePurchasesCommand) (*command.RestorePurchasesResult, error)
}

// EntitlementRefreshJob periodically re-derives subscription state.
type EntitlementRefreshJob struct {
	runner RestoreRunner
	log    *logger.Logger
}

// NewEntitlementRefreshJob creates a new entitlement refresh job.
func NewEntitlementRefreshJob(runner RestoreRunner, log *logger.Logger) *EntitlementRefreshJob {
	if log == nil {
		log = logger.Default()
	}
	return &EntitlementRefreshJob{
		runner: runner,
		log:    log.WithComponent("entitlement_refresh_job"),
	}
}

// Name implements scheduler.Job.
func (j *EntitlementRefreshJob) Name() string {
	return "entitlement_refresh"
}

// Description implements scheduler.Job.
func (j *EntitlementRefreshJob) Description() string {
	return "Replays store entitlements to pick up revocations and lapses"
}

// Run implements scheduler.Job.
func (j *EntitlementRefreshJob) Run(ctx context.Context) error {
	result, err := j.runner.Handle(ctx, command.RestorePurchasesCommand{})
	if err != nil {
		return fmt.Errorf("entitlement refresh: %w", err)
	}

	j.log.Debug("entitlements refreshed",
		logger.Int("applied", result.Applied),
		logger.String("state", result.State.String()),
	)

	return nil
}
