// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Score represents a daily wellness score in the range [0, 100].
type Score int

// IsValid checks if the score is within range.
func (s Score) IsValid() bool {
	return s >= 0 && s <= 100
}

// Int returns the underlying int value.
func (s Score) Int() int {
	return int(s)
}

// ClampScore clamps an arbitrary value into the valid score range.
func ClampScore(v int) Score {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return Score(v)
}

// NeutralScore is the mean-reversion anchor of the carry-over factor.
// A yesterday score at this value contributes nothing to today's total.
const NeutralScore Score = 50

// ═══════════════════════════════════════════════════════════════════════════
// Treat Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Treats represents a non-negative virtual currency balance.
type Treats int

// IsValid checks that the balance is non-negative.
func (t Treats) IsValid() bool {
	return t >= 0
}

// Int returns the underlying int value.
func (t Treats) Int() int {
	return int(t)
}

// Add credits treats and returns the new balance.
func (t Treats) Add(n Treats) Treats {
	return t + n
}

// SubtractClamped debits up to n treats, flooring at zero, and returns
// the new balance together with the amount actually debited.
func (t Treats) SubtractClamped(n Treats) (Treats, Treats) {
	if n >= t {
		return 0, t
	}
	return t - n, n
}

// DefaultStartingTreats is the balance a fresh install begins with.
const DefaultStartingTreats Treats = 7

// ═══════════════════════════════════════════════════════════════════════════
// Calendar Day Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Day represents a calendar day (date without time), the unit of every
// once-per-day guard in the engine. The zero value means "no prior date".
type Day struct {
	t time.Time
}

// DayOf truncates a time to its calendar day in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	local := t.In(loc)
	return Day{t: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)}
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether two days are the same calendar day. The
// comparison is by calendar date, not by instant: a day reconstructed
// from storage in one location must equal the same date built from the
// clock in another.
func (d Day) Equal(other Day) bool {
	if d.IsZero() || other.IsZero() {
		return d.IsZero() && other.IsZero()
	}
	return d.t.Year() == other.t.Year() &&
		d.t.Month() == other.t.Month() &&
		d.t.Day() == other.t.Day()
}

// Time returns the first instant of the day.
func (d Day) Time() time.Time {
	return d.t
}

// String returns the day formatted as YYYY-MM-DD, or "" when unset.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// CatName is the user-chosen name of the companion cat, used in
// notification bodies. An empty name is valid; display layers fall back
// to a default.
type CatName string

// String returns the string representation.
func (c CatName) String() string {
	return string(c)
}

// OrDefault returns the name, or the product default when unset.
func (c CatName) OrDefault() string {
	if c == "" {
		return "ねこ"
	}
	return string(c)
}

// Address is the free-form profile address consumed only by the score
// engine's location-factor lookup (substring match).
type Address string

// String returns the string representation.
func (a Address) String() string {
	return string(a)
}
