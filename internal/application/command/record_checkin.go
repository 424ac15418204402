// Package command contains write operations (CQRS - Commands).
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
// RECORD CHECK-IN COMMAND
// Records the six slider values of a check-in and recomputes today's
// wellness score. Re-submitting later the same day recomputes and
// overwrites; the score is always derived, never edited directly.
// ══════════════════════════════════════════════════════════════════════════════

// RecordCheckInCommand contains the data of one check-in.
type RecordCheckInCommand struct {
	// Sliders are the six subjective factor values, each in [0, 100].
	Sliders wellness.SliderInputs

	// At is when the check-in happened (defaults to now if zero).
	At time.Time
}

// Validate validates the command.
func (c RecordCheckInCommand) Validate() error {
	return c.Sliders.Validate()
}

// RecordCheckInResult contains the result of recording a check-in.
type RecordCheckInResult struct {
	// Score is the freshly computed wellness score.
	Score shared.Score

	// YesterdayScore is the carry-over value that fed the computation.
	YesterdayScore shared.Score

	// Day is the calendar day the score was computed for.
	Day shared.Day
}

// ProfileReader exposes the profile display fields the score engine and
// the notification body consume.
type ProfileReader interface {
	Profile(ctx context.Context) (shared.CatName, shared.Address, error)
}

// RecordCheckInHandler handles the RecordCheckInCommand.
type RecordCheckInHandler struct {
	engine  *wellness.Engine
	repo    wellness.Repository
	profile ProfileReader
	events  shared.EventPublisher
	loc     *time.Location
	log     *logger.Logger
}

// NewRecordCheckInHandler creates a new RecordCheckInHandler.
func NewRecordCheckInHandler(
	engine *wellness.Engine,
	repo wellness.Repository,
	profile ProfileReader,
	events shared.EventPublisher,
	loc *time.Location,
	log *logger.Logger,
) *RecordCheckInHandler {
	if loc == nil {
		loc = timeutil.JST
	}
	if log == nil {
		log = logger.Default()
	}
	return &RecordCheckInHandler{
		engine:  engine,
		repo:    repo,
		profile: profile,
		events:  events,
		loc:     loc,
		log:     log.WithComponent("record_checkin"),
	}
}

// Handle executes the record check-in command.
func (h *RecordCheckInHandler) Handle(ctx context.Context, cmd RecordCheckInCommand) (*RecordCheckInResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_checkin: %w", err)
	}

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

	// When the last computation was for an earlier day, that day's score
	// becomes the carry-over. Within one day, re-submitting keeps the
	// same carry-over so the score stays a pure function of the sliders.
	yesterday := state.YesterdayScore
	if !state.LastCalculationDay.Equal(today) && !state.LastCalculationDay.IsZero() {
		yesterday = state.TodayScore
	}

	_, address, err := h.profile.Profile(ctx)
	if err != nil {
		h.log.Warn("profile read failed, location factor defaults to zero", logger.Err(err))
		address = ""
	}

	score := h.engine.Compute(cmd.Sliders, at.In(h.loc).Weekday(), yesterday, address)

	next := wellness.DailyState{
		TodayScore:         score,
		YesterdayScore:     yesterday,
		LastCalculationDay: today,
	}
	if err := h.repo.SaveDailyState(ctx, next); err != nil {
		h.log.Warn("daily state write failed", logger.Err(err), logger.ScoreValue(score.Int()))
	}

	if h.events != nil {
		_ = h.events.Publish(shared.NewScoreComputedEvent(score.Int(), yesterday.Int(), today.String()))
	}

	h.log.Info("check-in recorded",
		logger.ScoreValue(score.Int()),
		logger.Int("yesterday_score", yesterday.Int()),
		logger.CalendarDay(today.Time()),
	)

	return &RecordCheckInResult{
		Score:          score,
		YesterdayScore: yesterday,
		Day:            today,
	}, nil
}
