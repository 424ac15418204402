package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

func TestMidnightScheduleNextFromMidDay(t *testing.T) {
	s := NewMidnightSchedule(timeutil.JST)
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, timeutil.JST)

	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, timeutil.JST), next)
}

func TestMidnightScheduleNextFromMidnightIsTomorrow(t *testing.T) {
	s := NewMidnightSchedule(timeutil.JST)
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, timeutil.JST)

	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, timeutil.JST), next)
}

func TestMidnightScheduleHonorsConfiguredLocation(t *testing.T) {
	s := NewMidnightSchedule(time.UTC)
	at := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)

	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), next)
}

func TestMidnightScheduleCrossesMonthBoundary(t *testing.T) {
	s := NewMidnightSchedule(nil)
	at := time.Date(2026, 3, 31, 23, 59, 0, 0, timeutil.JST)

	next := s.Next(at)

	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, timeutil.JST), next)
}

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(15 * time.Minute)
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, timeutil.JST)

	assert.Equal(t, at.Add(15*time.Minute), s.Next(at))
	assert.Equal(t, "@every 15m0s", s.String())
}
