// Package timeutil provides calendar-day helpers for the daily cycle.
// The midnight rollover, the once-per-day reward gate and the morning
// notification are all anchored to the user's local calendar day, so
// every boundary computation takes the location the engine is
// configured for. JST is the shipped product's default; Japan has no
// daylight saving time, so a fixed zone is a safe fallback.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// JST is the Japan Standard Time zone (UTC+9, no DST).
var JST = time.FixedZone("Asia/Tokyo", 9*60*60)

// Now returns the current time in JST.
func Now() time.Time {
	return time.Now().In(JST)
}

// ToJST converts a time to JST.
func ToJST(t time.Time) time.Time {
	return t.In(JST)
}

// orJST guards every location parameter in this package.
func orJST(loc *time.Location) *time.Location {
	if loc == nil {
		return JST
	}
	return loc
}

// Date creates a time in JST with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, JST)
}

// DateTime creates a time in JST with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, JST)
}

// StartOfDay returns the start of the day (00:00:00) in the given location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	loc = orJST(loc)
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// NextMidnight returns the first instant of the next calendar day after t
// in the given location. This is the fire time of the daily rollover.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in the
// given location. The weekly step chart is Monday-anchored.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	loc = orJST(loc)
	local := t.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract), loc)
}

// DaysBetween calculates the number of whole calendar days between two
// times in the given location. The result is non-negative regardless of
// argument order.
func DaysBetween(t1, t2 time.Time, loc *time.Location) int {
	days := DaysSince(t1, t2, loc)
	if days < 0 {
		days = -days
	}
	return days
}

// DaysSince calculates signed elapsed calendar days from `from` to `to`
// in the given location. Negative when `to` precedes `from`. The
// subscription grant tiers are computed from this value.
func DaysSince(from, to time.Time, loc *time.Location) int {
	a := StartOfDay(from, loc)
	b := StartOfDay(to, loc)
	return int(b.Sub(a).Hours() / 24)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// ParseDate parses a date string (YYYY-MM-DD) in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, orJST(loc))
}
