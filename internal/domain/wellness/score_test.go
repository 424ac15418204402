package wellness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

func TestEngine_Compute_TokyoWednesday(t *testing.T) {
	engine := NewDefaultEngine()

	// mean 65, weekday -5, Tokyo -3, neutral carry-over.
	score := engine.Compute(
		SliderInputs{80, 40, 50, 70, 60, 90},
		time.Wednesday,
		50,
		shared.Address("東京都 Tokyo Shibuya"),
	)

	assert.Equal(t, shared.Score(57), score)
}

func TestEngine_Compute_OsakaSaturday(t *testing.T) {
	engine := NewDefaultEngine()

	// mean 65, weekend +5, Osaka +2, carry-over (90-50)*0.4 = 16.
	score := engine.Compute(
		SliderInputs{80, 40, 50, 70, 60, 90},
		time.Saturday,
		90,
		shared.Address("Osaka"),
	)

	assert.Equal(t, shared.Score(88), score)
}

func TestEngine_Compute_UnknownLocationDefaultsToZero(t *testing.T) {
	engine := NewDefaultEngine()

	withLocation := engine.Compute(DefaultSliderInputs(), time.Monday, 50, "Nagoya")
	noLocation := engine.Compute(DefaultSliderInputs(), time.Monday, 50, "")

	assert.Equal(t, noLocation, withLocation)
}

func TestEngine_Compute_ClampsToRange(t *testing.T) {
	engine := NewDefaultEngine()

	low := engine.Compute(SliderInputs{}, time.Monday, 0, "Tokyo")
	high := engine.Compute(SliderInputs{100, 100, 100, 100, 100, 100}, time.Saturday, 100, "Osaka")

	assert.Equal(t, shared.Score(0), low)
	assert.Equal(t, shared.Score(100), high)
	assert.True(t, low.IsValid())
	assert.True(t, high.IsValid())
}

func TestEngine_Compute_Deterministic(t *testing.T) {
	engine := NewDefaultEngine()
	inputs := SliderInputs{33, 47, 81, 12, 95, 60}

	first := engine.Compute(inputs, time.Friday, 72, "Osaka")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Compute(inputs, time.Friday, 72, "Osaka"))
	}
}

func TestEngine_Compute_CarryOverPullsTowardYesterday(t *testing.T) {
	engine := NewDefaultEngine()
	inputs := DefaultSliderInputs()

	fromLow := engine.Compute(inputs, time.Tuesday, 0, "")
	fromNeutral := engine.Compute(inputs, time.Tuesday, 50, "")
	fromHigh := engine.Compute(inputs, time.Tuesday, 100, "")

	assert.Less(t, fromLow, fromNeutral)
	assert.Less(t, fromNeutral, fromHigh)
}

func TestSliderInputs_Validate(t *testing.T) {
	assert.NoError(t, DefaultSliderInputs().Validate())
	assert.NoError(t, SliderInputs{0, 0, 0, 0, 0, 100}.Validate())

	err := SliderInputs{80, 40, 50, 70, 60, 101}.Validate()
	assert.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	err = SliderInputs{-1, 40, 50, 70, 60, 90}.Validate()
	assert.Error(t, err)
}

func TestSliderInputs_Mean(t *testing.T) {
	assert.Equal(t, 65.0, SliderInputs{80, 40, 50, 70, 60, 90}.Mean())
	assert.Equal(t, 0.0, SliderInputs{}.Mean())
}

func TestFactors_LocationTableFirstMatchWins(t *testing.T) {
	factors := DefaultFactors()

	assert.Equal(t, -3.0, factors.locationAdjust("Tokyo"))
	assert.Equal(t, 2.0, factors.locationAdjust("Osaka City"))
	// Tokyo appears first in the table.
	assert.Equal(t, -3.0, factors.locationAdjust("Tokyo and Osaka"))
	assert.Equal(t, 0.0, factors.locationAdjust("Sapporo"))
}
