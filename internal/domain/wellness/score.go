// Package wellness contains the daily wellness score domain for NekoLog.
// This is the core of the business logic - there are no external dependencies
// here beyond the shared domain package.
package wellness

import (
	"math"
	"strings"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SLIDER INPUTS
// ══════════════════════════════════════════════════════════════════════════════

// SliderCount is the number of subjective factors in a check-in.
const SliderCount = 6

// Indices into SliderInputs. The order is fixed and mirrors the check-in UI.
const (
	SliderMood = iota
	SliderStress
	SliderStamina
	SliderSleep
	SliderFocus
	SliderSafety
)

// SliderInputs is the ordered sequence of six subjective factors, each in
// [0, 100]. The engine reads it, never mutates it.
type SliderInputs [SliderCount]float64

// DefaultSliderInputs is the slider position a fresh install shows.
func DefaultSliderInputs() SliderInputs {
	return SliderInputs{80, 40, 50, 70, 60, 90}
}

// Validate checks that every slider value is within [0, 100].
func (s SliderInputs) Validate() error {
	for _, v := range s {
		if v < 0 || v > 100 {
			return shared.ErrSliderOutOfRange
		}
	}
	return nil
}

// Mean returns the subjective average of the six factors.
func (s SliderInputs) Mean() float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / SliderCount
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTOR CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// LocationRule adjusts the score when the profile address contains a substring.
type LocationRule struct {
	Substring string
	Adjust    float64
}

// Factors holds the tunable constants of the score formula. They are product
// constants with no stated rationale, so they live here as configuration
// rather than literals buried in the computation.
type Factors struct {
	// WeekdayAdjust is applied when the day falls Monday-Friday.
	WeekdayAdjust float64

	// WeekendAdjust is applied on Saturday and Sunday.
	WeekendAdjust float64

	// LocationTable is scanned in order; the first matching substring wins.
	LocationTable []LocationRule

	// CarryOverWeight scales the mean-reverting contribution of yesterday's
	// score: (yesterday - 50) * CarryOverWeight.
	CarryOverWeight float64
}

// DefaultFactors returns the shipped factor table. The Tokyo and Osaka
// entries and the default of zero are load-bearing; the table may grow but
// those must be preserved.
func DefaultFactors() Factors {
	return Factors{
		WeekdayAdjust: -5,
		WeekendAdjust: 5,
		LocationTable: []LocationRule{
			{Substring: "Tokyo", Adjust: -3},
			{Substring: "Osaka", Adjust: 2},
		},
		CarryOverWeight: 0.4,
	}
}

// locationAdjust returns the adjustment for the given profile address.
func (f Factors) locationAdjust(address shared.Address) float64 {
	addr := address.String()
	for _, rule := range f.LocationTable {
		if strings.Contains(addr, rule.Substring) {
			return rule.Adjust
		}
	}
	return 0
}

// weekdayAdjust returns the adjustment for the given weekday.
func (f Factors) weekdayAdjust(weekday time.Weekday) float64 {
	if weekday == time.Saturday || weekday == time.Sunday {
		return f.WeekendAdjust
	}
	return f.WeekdayAdjust
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine computes the daily wellness score. It is pure and deterministic:
// the same inputs always produce the same score, and Compute has no side
// effects. The caller owns persisting the result as the next yesterdayScore.
type Engine struct {
	factors Factors
}

// NewEngine creates a score engine with the given factor table.
func NewEngine(factors Factors) *Engine {
	return &Engine{factors: factors}
}

// NewDefaultEngine creates a score engine with the shipped factor table.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultFactors())
}

// Compute combines the subjective average with the weekday, location and
// carry-over factors and clamps the rounded total into [0, 100].
func (e *Engine) Compute(inputs SliderInputs, weekday time.Weekday, yesterday shared.Score, address shared.Address) shared.Score {
	subjective := inputs.Mean()
	total := subjective +
		e.factors.weekdayAdjust(weekday) +
		e.factors.locationAdjust(address) +
		float64(yesterday-shared.NeutralScore)*e.factors.CarryOverWeight

	return shared.ClampScore(int(math.Round(total)))
}
