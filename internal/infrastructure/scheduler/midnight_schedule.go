package scheduler

import (
	"time"

	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// MidnightSchedule fires once per calendar day at 00:00 in the given
// location. The rollover job runs on it.
type MidnightSchedule struct {
	loc *time.Location
}

// NewMidnightSchedule creates a new MidnightSchedule. A nil location
// defaults to JST.
func NewMidnightSchedule(loc *time.Location) *MidnightSchedule {
	if loc == nil {
		loc = timeutil.JST
	}
	return &MidnightSchedule{loc: loc}
}

// Next returns the upcoming midnight strictly after t in the
// schedule's location.
func (s *MidnightSchedule) Next(t time.Time) time.Time {
	return timeutil.NextMidnight(t, s.loc)
}

// String returns the string representation of the schedule.
func (s *MidnightSchedule) String() string {
	return "@midnight " + s.loc.String()
}
