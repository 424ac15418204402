package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN ROLLOVER COMMAND
// The daily reset: finalize the day that ended into history, clear its
// one-shot flags, carry its score forward, and compute the opening
// score of the new day. The catch-up path runs the exact same command;
// the sole guard either way is the persisted last calculation day.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreHistoryWriter finalizes a day's score into the history table.
type ScoreHistoryWriter interface {
	RecordScore(ctx context.Context, day shared.Day, score shared.Score, steps int) error
}

// DayFlagClearer drops the one-shot UI flags of an ended day.
type DayFlagClearer interface {
	ClearDayFlags(ctx context.Context, day shared.Day) error
}

// RunRolloverCommand contains the data of one rollover run.
type RunRolloverCommand struct {
	// At is the instant the rollover runs for (defaults to now if zero).
	At time.Time

	// CatchUp marks runs triggered by the date comparison on wake-up
	// rather than the midnight timer.
	CatchUp bool
}

// RunRolloverResult contains the result of a rollover run.
type RunRolloverResult struct {
	// Ran reports whether a rollover actually happened. False when the
	// persisted state is already on today's date.
	Ran bool

	// Score is the opening score of the new day.
	Score shared.Score

	// Day is the new calendar day.
	Day shared.Day
}

// RunRolloverHandler handles the RunRolloverCommand.
type RunRolloverHandler struct {
	engine  *wellness.Engine
	repo    wellness.Repository
	profile ProfileReader
	history ScoreHistoryWriter
	steps   StepSource
	flags   DayFlagClearer
	events  shared.EventPublisher
	loc     *time.Location
	log     *logger.Logger
}

// NewRunRolloverHandler creates a new RunRolloverHandler.
func NewRunRolloverHandler(
	engine *wellness.Engine,
	repo wellness.Repository,
	profile ProfileReader,
	history ScoreHistoryWriter,
	steps StepSource,
	flags DayFlagClearer,
	events shared.EventPublisher,
	loc *time.Location,
	log *logger.Logger,
) *RunRolloverHandler {
	if loc == nil {
		loc = timeutil.JST
	}
	if log == nil {
		log = logger.Default()
	}
	return &RunRolloverHandler{
		engine:  engine,
		repo:    repo,
		profile: profile,
		history: history,
		steps:   steps,
		flags:   flags,
		events:  events,
		loc:     loc,
		log:     log.WithComponent("run_rollover"),
	}
}

// Handle executes the rollover command.
func (h *RunRolloverHandler) Handle(ctx context.Context, cmd RunRolloverCommand) (*RunRolloverResult, error) {
	at := cmd.At
	if at.IsZero() {
		at = timeutil.Now()
	}
	today := shared.DayOf(at, h.loc)

	state, err := h.repo.LoadDailyState(ctx)
	if err != nil {
		h.log.Warn("daily state read failed, using defaults", logger.Err(err))
		state = wellness.DefaultDailyState()
	}

	if state.LastCalculationDay.Equal(today) {
		return &RunRolloverResult{Ran: false, Score: state.TodayScore, Day: today}, nil
	}

	h.finalizeEndedDay(ctx, state)

	// The score the ended day closed with becomes the carry-over. The
	// opening score of the new day is computed from the default slider
	// positions; the day's own check-in overwrites it.
	yesterday := state.TodayScore
	if state.LastCalculationDay.IsZero() {
		yesterday = state.YesterdayScore
	}

	_, address, err := h.profile.Profile(ctx)
	if err != nil {
		h.log.Warn("profile read failed, location factor defaults to zero", logger.Err(err))
		address = ""
	}

	score := h.engine.Compute(wellness.DefaultSliderInputs(), at.In(h.loc).Weekday(), yesterday, address)

	next := wellness.DailyState{
		TodayScore:         score,
		YesterdayScore:     yesterday,
		LastCalculationDay: today,
	}
	if err := h.repo.SaveDailyState(ctx, next); err != nil {
		return nil, fmt.Errorf("run_rollover: save daily state: %w", err)
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NewScoreComputedEvent(score.Int(), yesterday.Int(), today.String()))
		_ = h.events.Publish(shared.NewDayRolledOverEvent(today.String(), score.Int(), cmd.CatchUp))
	}

	h.log.Info("day rolled over",
		logger.CalendarDay(today.Time()),
		logger.ScoreValue(score.Int()),
		logger.Bool("catch_up", cmd.CatchUp),
	)

	return &RunRolloverResult{Ran: true, Score: score, Day: today}, nil
}

// finalizeEndedDay writes the ended day's score and step total into
// history and drops its one-shot flags. Failures here degrade to
// warnings; the rollover itself must still land.
func (h *RunRolloverHandler) finalizeEndedDay(ctx context.Context, state wellness.DailyState) {
	ended := state.LastCalculationDay
	if ended.IsZero() {
		return
	}

	steps := 0
	if h.steps != nil {
		if s, err := h.steps.DailySteps(ctx, ended); err == nil {
			steps = s
		} else {
			h.log.Warn("step read for ended day failed", logger.Err(err), logger.CalendarDay(ended.Time()))
		}
	}

	if h.history != nil {
		if err := h.history.RecordScore(ctx, ended, state.TodayScore, steps); err != nil {
			h.log.Warn("history write failed", logger.Err(err), logger.CalendarDay(ended.Time()))
		}
	}

	if h.flags != nil {
		if err := h.flags.ClearDayFlags(ctx, ended); err != nil {
			h.log.Warn("day flag clear failed", logger.Err(err), logger.CalendarDay(ended.Time()))
		}
	}
}
