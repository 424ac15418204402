package wellness

import (
	"context"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

// DailyState is the persisted per-day score state: one live value plus
// yesterday's carried-over value, tagged with the day it was computed for.
type DailyState struct {
	// TodayScore is the score computed for LastCalculationDay.
	TodayScore shared.Score

	// YesterdayScore feeds the carry-over factor of the next computation.
	YesterdayScore shared.Score

	// LastCalculationDay is the calendar day the engine last ran for.
	// The catch-up check compares it against the current day.
	LastCalculationDay shared.Day
}

// DefaultDailyState returns the state of a fresh install: no score yet and
// a neutral carry-over so the first computation is anchor-free.
func DefaultDailyState() DailyState {
	return DailyState{
		TodayScore:     0,
		YesterdayScore: shared.NeutralScore,
	}
}

// Repository persists the daily score state.
//
// Implementations must degrade reads: a missing record or a read failure
// yields DefaultDailyState(), never an error surfaced to the scoring path.
type Repository interface {
	// LoadDailyState returns the persisted state, or the default state
	// when nothing has been written yet.
	LoadDailyState(ctx context.Context) (DailyState, error)

	// SaveDailyState persists the state. Writes for this record must not
	// be overtaken by older writes.
	SaveDailyState(ctx context.Context, state DailyState) error
}
