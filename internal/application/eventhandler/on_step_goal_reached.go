package eventhandler

import (
	"context"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON STEP GOAL REACHED HANDLER
// Marks the goal-celebrated flag for the day so the UI shows the
// celebration exactly once. The grant itself already happened inside
// the gate; this handler owns only the presentation flag.
// ══════════════════════════════════════════════════════════════════════════════

// DayFlagWriter sets a named one-shot flag for a calendar day.
type DayFlagWriter interface {
	SetDayFlag(ctx context.Context, day shared.Day, flag string) error
}

// GoalCelebratedFlag is the flag name the UI polls for the celebration.
const GoalCelebratedFlag = "goal_celebrated"

// OnStepGoalReachedHandler handles the step goal reached event.
type OnStepGoalReachedHandler struct {
	flags DayFlagWriter
	loc   *time.Location
	log   *logger.Logger
}

// NewOnStepGoalReachedHandler creates a new step goal reached handler.
// A nil location defaults to JST.
func NewOnStepGoalReachedHandler(flags DayFlagWriter, loc *time.Location, log *logger.Logger) *OnStepGoalReachedHandler {
	if loc == nil {
		loc = timeutil.JST
	}
	if log == nil {
		log = logger.Default()
	}
	return &OnStepGoalReachedHandler{
		flags: flags,
		loc:   loc,
		log:   log.WithComponent("on_step_goal_reached"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnStepGoalReachedHandler) Handle(event shared.Event) error {
	goalEvent, ok := event.(shared.StepGoalReachedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	if h.flags == nil {
		return nil
	}

	ctx := context.Background()
	day, err := timeutil.ParseDate(goalEvent.Day, h.loc)
	if err != nil {
		h.log.Warn("unparseable day on event", logger.Err(err), logger.String("day", goalEvent.Day))
		return nil
	}

	if err := h.flags.SetDayFlag(ctx, shared.DayOf(day, h.loc), GoalCelebratedFlag); err != nil {
		h.log.Warn("celebration flag write failed", logger.Err(err), logger.String("day", goalEvent.Day))
		return err
	}

	h.log.Info("goal celebration flagged",
		logger.StepCount(goalEvent.Steps),
		logger.String("day", goalEvent.Day),
	)

	return nil
}

// EventType returns the event type this handler subscribes to.
func (h *OnStepGoalReachedHandler) EventType() shared.EventType {
	return shared.EventStepGoalReached
}
