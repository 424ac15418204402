package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var jst = time.FixedZone("Asia/Tokyo", 9*60*60)

func TestDayOfTruncatesToLocalDate(t *testing.T) {
	at := time.Date(2026, 3, 2, 23, 45, 0, 0, jst)

	day := DayOf(at, jst)

	assert.Equal(t, "2026-03-02", day.String())
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, jst), day.Time())
}

func TestDayEqualComparesCalendarDateAcrossLocations(t *testing.T) {
	// The same calendar date reconstructed from a DATE column (a UTC
	// midnight) and built from a local clock are different instants but
	// the same day.
	fromStorage := DayOf(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.UTC)
	fromClock := DayOf(time.Date(2026, 3, 2, 18, 0, 0, 0, jst), jst)

	assert.True(t, fromStorage.Equal(fromClock))
	assert.True(t, fromClock.Equal(fromStorage))
}

func TestDayEqualDistinguishesAdjacentDays(t *testing.T) {
	monday := DayOf(time.Date(2026, 3, 2, 9, 0, 0, 0, jst), jst)
	tuesday := DayOf(time.Date(2026, 3, 3, 9, 0, 0, 0, jst), jst)

	assert.False(t, monday.Equal(tuesday))
}

func TestDayEqualZeroHandling(t *testing.T) {
	var unset Day
	set := DayOf(time.Date(2026, 3, 2, 9, 0, 0, 0, jst), jst)

	assert.True(t, unset.Equal(Day{}))
	assert.False(t, unset.Equal(set))
	assert.False(t, set.Equal(unset))
	assert.Equal(t, "", unset.String())
}

func TestTreatsSubtractClamped(t *testing.T) {
	balance := Treats(3)

	remaining, debited := balance.SubtractClamped(2)
	assert.Equal(t, Treats(1), remaining)
	assert.Equal(t, Treats(2), debited)

	remaining, debited = balance.SubtractClamped(10)
	assert.Equal(t, Treats(0), remaining)
	assert.Equal(t, Treats(3), debited)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, Score(0), ClampScore(-5))
	assert.Equal(t, Score(100), ClampScore(140))
	assert.Equal(t, Score(73), ClampScore(73))
}
