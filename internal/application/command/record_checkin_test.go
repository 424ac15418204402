package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

var (
	mondayMorning   = time.Date(2026, 3, 2, 9, 0, 0, 0, timeutil.JST)
	tuesdayMorning  = time.Date(2026, 3, 3, 9, 0, 0, 0, timeutil.JST)
	saturdayMorning = time.Date(2026, 3, 7, 9, 0, 0, 0, timeutil.JST)
)

func newCheckInHandler(repo *memDailyRepo, address shared.Address, pub *recordingPublisher) *RecordCheckInHandler {
	return NewRecordCheckInHandler(
		wellness.NewDefaultEngine(),
		repo,
		staticProfile{cat: "たま", addr: address},
		pub,
		timeutil.JST,
		nil,
	)
}

func TestRecordCheckInFreshInstallWeekdayTokyo(t *testing.T) {
	repo := &memDailyRepo{state: wellness.DefaultDailyState()}
	pub := &recordingPublisher{}
	handler := newCheckInHandler(repo, "Tokyo, Setagaya", pub)

	result, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.DefaultSliderInputs(),
		At:      mondayMorning,
	})
	require.NoError(t, err)

	// mean 65, Monday -5, Tokyo -3, neutral carry-over 0
	assert.Equal(t, shared.Score(57), result.Score)
	assert.Equal(t, shared.NeutralScore, result.YesterdayScore)
	assert.Equal(t, "2026-03-02", result.Day.String())

	assert.Equal(t, shared.Score(57), repo.state.TodayScore)
	assert.True(t, repo.state.LastCalculationDay.Equal(result.Day))
	assert.Equal(t, 1, pub.countOf(shared.EventScoreComputed))
}

func TestRecordCheckInCarriesPreviousDayScore(t *testing.T) {
	repo := &memDailyRepo{state: wellness.DailyState{
		TodayScore:         57,
		YesterdayScore:     shared.NeutralScore,
		LastCalculationDay: shared.DayOf(mondayMorning, timeutil.JST),
	}}
	handler := newCheckInHandler(repo, "Tokyo, Setagaya", &recordingPublisher{})

	result, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.SliderInputs{80, 80, 80, 80, 80, 80},
		At:      tuesdayMorning,
	})
	require.NoError(t, err)

	// mean 80, Tuesday -5, Tokyo -3, carry-over (57-50)*0.4 = 2.8
	assert.Equal(t, shared.Score(75), result.Score)
	assert.Equal(t, shared.Score(57), result.YesterdayScore)
}

func TestRecordCheckInSameDayResubmitKeepsCarryOver(t *testing.T) {
	repo := &memDailyRepo{state: wellness.DailyState{
		TodayScore:         75,
		YesterdayScore:     57,
		LastCalculationDay: shared.DayOf(tuesdayMorning, timeutil.JST),
	}}
	handler := newCheckInHandler(repo, "Tokyo, Setagaya", &recordingPublisher{})

	result, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.SliderInputs{50, 50, 50, 50, 50, 50},
		At:      tuesdayMorning.Add(6 * time.Hour),
	})
	require.NoError(t, err)

	// Re-submitting must not fold today's earlier score back in: the
	// carry-over stays 57, never 75.
	assert.Equal(t, shared.Score(57), result.YesterdayScore)
	// mean 50, Tuesday -5, Tokyo -3, carry-over 2.8
	assert.Equal(t, shared.Score(45), result.Score)
}

func TestRecordCheckInWeekendOsaka(t *testing.T) {
	repo := &memDailyRepo{state: wellness.DefaultDailyState()}
	handler := newCheckInHandler(repo, "Osaka, Chuo-ku", &recordingPublisher{})

	result, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.DefaultSliderInputs(),
		At:      saturdayMorning,
	})
	require.NoError(t, err)

	// mean 65, Saturday +5, Osaka +2
	assert.Equal(t, shared.Score(72), result.Score)
}

func TestRecordCheckInClampsAtHundred(t *testing.T) {
	repo := &memDailyRepo{state: wellness.DailyState{
		TodayScore:         100,
		YesterdayScore:     100,
		LastCalculationDay: shared.DayOf(saturdayMorning, timeutil.JST),
	}}
	handler := newCheckInHandler(repo, "Osaka, Chuo-ku", &recordingPublisher{})

	result, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.SliderInputs{100, 100, 100, 100, 100, 100},
		At:      saturdayMorning.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, shared.Score(100), result.Score)
}

func TestRecordCheckInRejectsOutOfRangeSlider(t *testing.T) {
	handler := newCheckInHandler(&memDailyRepo{}, "", &recordingPublisher{})

	_, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.SliderInputs{80, 40, 50, 70, 60, 101},
		At:      mondayMorning,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrSliderOutOfRange))
}

func TestRecordCheckInDegradesOnReadFailure(t *testing.T) {
	repo := &memDailyRepo{loadErr: errors.New("disk gone")}
	handler := newCheckInHandler(repo, "Tokyo, Setagaya", &recordingPublisher{})

	result, err := handler.Handle(context.Background(), RecordCheckInCommand{
		Sliders: wellness.DefaultSliderInputs(),
		At:      mondayMorning,
	})
	require.NoError(t, err)
	assert.Equal(t, shared.Score(57), result.Score)
}
