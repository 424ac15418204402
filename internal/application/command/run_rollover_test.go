package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

type rolloverFixture struct {
	repo    *memDailyRepo
	history *memHistory
	steps   *memStepSource
	flags   *memFlagClearer
	pub     *recordingPublisher
	handler *RunRolloverHandler
}

func newRolloverFixture(state wellness.DailyState) *rolloverFixture {
	f := &rolloverFixture{
		repo:    &memDailyRepo{state: state},
		history: &memHistory{},
		steps:   &memStepSource{counts: map[string]int{}},
		flags:   &memFlagClearer{},
		pub:     &recordingPublisher{},
	}
	f.handler = NewRunRolloverHandler(
		wellness.NewDefaultEngine(),
		f.repo,
		staticProfile{cat: "たま", addr: "Tokyo, Setagaya"},
		f.history,
		f.steps,
		f.flags,
		f.pub,
		timeutil.JST,
		nil,
	)
	return f
}

func TestRolloverIsNoOpWithinSameDay(t *testing.T) {
	today := shared.DayOf(mondayMorning, timeutil.JST)
	f := newRolloverFixture(wellness.DailyState{
		TodayScore:         57,
		YesterdayScore:     shared.NeutralScore,
		LastCalculationDay: today,
	})

	result, err := f.handler.Handle(context.Background(), RunRolloverCommand{At: mondayMorning.Add(10 * time.Hour)})
	require.NoError(t, err)

	assert.False(t, result.Ran)
	assert.Equal(t, shared.Score(57), result.Score)
	assert.Zero(t, f.repo.saves)
	assert.Empty(t, f.history.records)
	assert.Empty(t, f.pub.events)
}

func TestRolloverFinalizesEndedDayAndOpensNewOne(t *testing.T) {
	monday := shared.DayOf(mondayMorning, timeutil.JST)
	f := newRolloverFixture(wellness.DailyState{
		TodayScore:         62,
		YesterdayScore:     shared.NeutralScore,
		LastCalculationDay: monday,
	})
	f.steps.counts[monday.String()] = 8421

	justPastMidnight := time.Date(2026, 3, 3, 0, 0, 5, 0, timeutil.JST)
	result, err := f.handler.Handle(context.Background(), RunRolloverCommand{At: justPastMidnight})
	require.NoError(t, err)

	assert.True(t, result.Ran)
	assert.Equal(t, "2026-03-03", result.Day.String())

	// Monday closed at 62 with 8421 steps and its one-shot flags dropped.
	require.Len(t, f.history.records, 1)
	assert.Equal(t, monday.String(), f.history.records[0].day.String())
	assert.Equal(t, shared.Score(62), f.history.records[0].score)
	assert.Equal(t, 8421, f.history.records[0].steps)
	assert.Equal(t, []string{monday.String()}, f.flags.cleared)

	// Tuesday opens from the default sliders: mean 65, Tuesday -5,
	// Tokyo -3, carry-over (62-50)*0.4 = 4.8.
	assert.Equal(t, shared.Score(62), result.Score)
	assert.Equal(t, shared.Score(62), f.repo.state.YesterdayScore)
	assert.Equal(t, 1, f.pub.countOf(shared.EventScoreComputed))
	assert.Equal(t, 1, f.pub.countOf(shared.EventDayRolledOver))
}

func TestRolloverOnFreshInstallSkipsFinalization(t *testing.T) {
	f := newRolloverFixture(wellness.DefaultDailyState())

	result, err := f.handler.Handle(context.Background(), RunRolloverCommand{At: mondayMorning, CatchUp: true})
	require.NoError(t, err)

	assert.True(t, result.Ran)
	// mean 65, Monday -5, Tokyo -3, neutral carry-over
	assert.Equal(t, shared.Score(57), result.Score)
	assert.Empty(t, f.history.records)
	assert.Empty(t, f.flags.cleared)
}

func TestRolloverCatchUpAfterMultiDayGap(t *testing.T) {
	monday := shared.DayOf(mondayMorning, timeutil.JST)
	f := newRolloverFixture(wellness.DailyState{
		TodayScore:         70,
		YesterdayScore:     shared.NeutralScore,
		LastCalculationDay: monday,
	})

	// App wakes up on Saturday. One catch-up run lands the state on the
	// current day; the days in between were never computed.
	result, err := f.handler.Handle(context.Background(), RunRolloverCommand{At: saturdayMorning, CatchUp: true})
	require.NoError(t, err)

	assert.True(t, result.Ran)
	assert.Equal(t, "2026-03-07", result.Day.String())
	assert.Equal(t, shared.Score(70), f.repo.state.YesterdayScore)

	// A second catch-up the same day is a no-op.
	again, err := f.handler.Handle(context.Background(), RunRolloverCommand{At: saturdayMorning.Add(time.Hour), CatchUp: true})
	require.NoError(t, err)
	assert.False(t, again.Ran)
}
