package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// StepCache holds the hot per-day data for one profile: the cumulative
// step count the provider keeps re-delivering, the Monday-anchored
// weekly step hash behind the chart, per-day UI flags and the cached
// today score. Everything here is reconstructible, so a cold cache is a
// slow start, never data loss.
type StepCache struct {
	cache     *Cache
	profileID string
	loc       *time.Location
}

// NewStepCache creates a step cache bound to one profile. Week anchors
// are computed in loc (nil defaults to JST).
func NewStepCache(cache *Cache, profileID string, loc *time.Location) *StepCache {
	if loc == nil {
		loc = timeutil.JST
	}
	return &StepCache{
		cache:     cache,
		profileID: profileID,
		loc:       loc,
	}
}

// SetDailySteps stores a day's cumulative step count and mirrors it into
// the weekly hash for the chart.
func (s *StepCache) SetDailySteps(ctx context.Context, day shared.Day, steps int) error {
	if err := s.cache.SetInt(ctx, StepsKey(s.profileID, day.String()), steps, TTLDailySteps); err != nil {
		return fmt.Errorf("set daily steps: %w", err)
	}

	weekKey := s.weekKeyFor(day)
	if err := s.cache.HSet(ctx, weekKey, day.String(), steps); err != nil {
		return fmt.Errorf("set weekly steps: %w", err)
	}
	if err := s.cache.Expire(ctx, weekKey, TTLWeeklySteps); err != nil {
		return fmt.Errorf("expire weekly steps: %w", err)
	}

	return nil
}

// DailySteps returns a day's cumulative step count, zero when uncached.
func (s *StepCache) DailySteps(ctx context.Context, day shared.Day) (int, error) {
	steps, err := s.cache.GetInt(ctx, StepsKey(s.profileID, day.String()))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, nil
		}
		return 0, err
	}
	return steps, nil
}

// WeeklySteps returns the seven step counts of the week containing t,
// Monday first. Days without data are zero.
func (s *StepCache) WeeklySteps(ctx context.Context, t time.Time) ([7]int, error) {
	var week [7]int

	monday := shared.DayOf(timeutil.StartOfWeek(t, s.loc), s.loc)
	fields, err := s.cache.HGetAll(ctx, WeekKey(s.profileID, monday.String()))
	if err != nil {
		return week, fmt.Errorf("weekly steps: %w", err)
	}

	for i := 0; i < 7; i++ {
		day := shared.DayOf(monday.Time().AddDate(0, 0, i), s.loc)
		if raw, ok := fields[day.String()]; ok {
			if steps, err := strconv.Atoi(raw); err == nil {
				week[i] = steps
			}
		}
	}

	return week, nil
}

// SetTodayScore caches the current score for cheap display reads.
func (s *StepCache) SetTodayScore(ctx context.Context, score shared.Score) error {
	return s.cache.SetInt(ctx, ScoreKey(s.profileID), score.Int(), TTLScoreCache)
}

// TodayScore returns the cached score. The second result reports whether
// a value was cached; callers fall back to Postgres on a miss.
func (s *StepCache) TodayScore(ctx context.Context) (shared.Score, bool, error) {
	score, err := s.cache.GetInt(ctx, ScoreKey(s.profileID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return shared.ClampScore(score), true, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PER-DAY UI FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// Flag names for per-day one-shot UI state.
const (
	FlagCheckInDone    = "checkin_done"
	FlagGoalCelebrated = "goal_celebrated"
)

// SetDayFlag marks a one-shot flag for the given day.
func (s *StepCache) SetDayFlag(ctx context.Context, day shared.Day, flag string) error {
	key := DayFlagsKey(s.profileID, day.String())
	if err := s.cache.HSet(ctx, key, flag, 1); err != nil {
		return fmt.Errorf("set day flag: %w", err)
	}
	return s.cache.Expire(ctx, key, TTLDayFlags)
}

// DayFlag reports whether a one-shot flag is set for the given day.
func (s *StepCache) DayFlag(ctx context.Context, day shared.Day, flag string) (bool, error) {
	_, err := s.cache.HGet(ctx, DayFlagsKey(s.profileID, day.String()), flag)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClearDayFlags drops all one-shot flags for the given day. The midnight
// rollover calls this for the day that just ended.
func (s *StepCache) ClearDayFlags(ctx context.Context, day shared.Day) error {
	return s.cache.Delete(ctx, DayFlagsKey(s.profileID, day.String()))
}

func (s *StepCache) weekKeyFor(day shared.Day) string {
	monday := shared.DayOf(timeutil.StartOfWeek(day.Time(), s.loc), s.loc)
	return WeekKey(s.profileID, monday.String())
}
