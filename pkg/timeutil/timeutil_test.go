package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDayUsesGivenLocation(t *testing.T) {
	at := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), StartOfDay(at, time.UTC))
	// 01:00 UTC is already 10:00 on March 2 in JST.
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, JST), StartOfDay(at, JST))
}

func TestNextMidnightInUTC(t *testing.T) {
	at := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	next := NextMidnight(at, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), next)
}

func TestNextMidnightNilLocationDefaultsToJST(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, JST)

	next := NextMidnight(at, nil)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, JST), next)
}

func TestStartOfWeekIsMondayAnchored(t *testing.T) {
	// 2026-03-07 is a Saturday, 2026-03-08 a Sunday.
	saturday := time.Date(2026, 3, 7, 15, 0, 0, 0, JST)
	sunday := time.Date(2026, 3, 8, 15, 0, 0, 0, JST)
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, JST)

	assert.Equal(t, monday, StartOfWeek(saturday, JST))
	assert.Equal(t, monday, StartOfWeek(sunday, JST))
	assert.Equal(t, monday, StartOfWeek(monday, JST))
}

func TestDaysSinceRespectsLocation(t *testing.T) {
	// 23:30 UTC on March 2 is already March 3 in JST.
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysSince(from, to, time.UTC))
	assert.Equal(t, 1, DaysSince(from, to, JST))
	assert.Equal(t, -1, DaysSince(to, from, time.UTC))
}

func TestDaysBetweenIsNonNegative(t *testing.T) {
	a := time.Date(2026, 3, 1, 9, 0, 0, 0, JST)
	b := time.Date(2026, 3, 4, 9, 0, 0, 0, JST)

	assert.Equal(t, 3, DaysBetween(a, b, JST))
	assert.Equal(t, 3, DaysBetween(b, a, JST))
}

func TestParseDateInLocation(t *testing.T) {
	got, err := ParseDate("2026-03-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("not-a-date", nil)
	assert.Error(t, err)
}
