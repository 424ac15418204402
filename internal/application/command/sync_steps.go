package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC STEPS COMMAND
// Applies one cumulative step delivery: caches it, announces it, and
// runs the once-per-day reward gate. The provider re-delivers counts
// freely, so the whole path is idempotent per calendar day.
// ══════════════════════════════════════════════════════════════════════════════

// StepSource reads a day's cumulative step count from the provider.
type StepSource interface {
	DailySteps(ctx context.Context, day shared.Day) (int, error)
}

// StepCacheWriter stores a day's cumulative count for cheap reads.
type StepCacheWriter interface {
	SetDailySteps(ctx context.Context, day shared.Day, steps int) error
}

// SyncStepsCommand contains the data of one step delivery.
type SyncStepsCommand struct {
	// Steps is the cumulative count for today. Ignored when Fetch is set.
	Steps int

	// Fetch reads the count from the provider instead of using Steps.
	Fetch bool

	// At is when the delivery happened (defaults to now if zero).
	At time.Time
}

// Validate validates the command.
func (c SyncStepsCommand) Validate() error {
	if !c.Fetch && c.Steps < 0 {
		return fmt.Errorf("sync_steps: %w", shared.ErrNegativeValue)
	}
	return nil
}

// SyncStepsResult contains the result of one step delivery.
type SyncStepsResult struct {
	// Steps is the cumulative count that was applied.
	Steps int

	// Day is the calendar day the count belongs to.
	Day shared.Day

	// Rewarded reports whether this delivery triggered the daily grant.
	Rewarded bool
}

// SyncStepsHandler handles the SyncStepsCommand.
type SyncStepsHandler struct {
	source StepSource
	cache  StepCacheWriter
	gate   *reward.StepGate
	events shared.EventPublisher
	loc    *time.Location
	log    *logger.Logger
}

// NewSyncStepsHandler creates a new SyncStepsHandler.
func NewSyncStepsHandler(
	source StepSource,
	cache StepCacheWriter,
	gate *reward.StepGate,
	events shared.EventPublisher,
	loc *time.Location,
	log *logger.Logger,
) *SyncStepsHandler {
	if loc == nil {
		loc = timeutil.JST
	}
	if log == nil {
		log = logger.Default()
	}
	return &SyncStepsHandler{
		source: source,
		cache:  cache,
		gate:   gate,
		events: events,
		loc:    loc,
		log:    log.WithComponent("sync_steps"),
	}
}

// Handle executes the sync steps command.
func (h *SyncStepsHandler) Handle(ctx context.Context, cmd SyncStepsCommand) (*SyncStepsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	at := cmd.At
	if at.IsZero() {
		at = timeutil.Now()
	}
	day := shared.DayOf(at, h.loc)

	steps := cmd.Steps
	if cmd.Fetch {
		fetched, err := h.source.DailySteps(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("sync_steps: %w", err)
		}
		steps = fetched
	}

	if h.cache != nil {
		if err := h.cache.SetDailySteps(ctx, day, steps); err != nil {
			h.log.Warn("step cache write failed", logger.Err(err), logger.StepCount(steps))
		}
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NewStepsUpdatedEvent(steps, day.String()))
	}

	// A nil gate means the reward feature is off; counts still sync.
	rewarded := false
	if h.gate != nil {
		var err error
		rewarded, err = h.gate.Evaluate(ctx, steps, at)
		if err != nil {
			return nil, fmt.Errorf("sync_steps: evaluate gate: %w", err)
		}
	}

	return &SyncStepsResult{
		Steps:    steps,
		Day:      day,
		Rewarded: rewarded,
	}, nil
}
