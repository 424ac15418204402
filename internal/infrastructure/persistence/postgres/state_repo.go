package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// StateRepository persists the full engine state of one profile as a
// single profile_states row. It implements the per-domain repository
// interfaces (wellness, reward gate and balance, subscription snapshot)
// against that one record, which keeps related fields from drifting the
// way scattered key-value writes would.
type StateRepository struct {
	conn      *Connection
	profileID uuid.UUID
}

// NewStateRepository creates a state repository bound to one profile.
func NewStateRepository(conn *Connection, profileID uuid.UUID) *StateRepository {
	return &StateRepository{
		conn:      conn,
		profileID: profileID,
	}
}

// ProfileID returns the bound profile ID.
func (r *StateRepository) ProfileID() uuid.UUID {
	return r.profileID
}

// EnsureProfile creates the profile row if it does not exist yet. All
// columns start at their first-launch defaults.
func (r *StateRepository) EnsureProfile(ctx context.Context, catName shared.CatName, address shared.Address) error {
	query := `
		INSERT INTO profile_states (profile_id, cat_name, address)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile_id) DO NOTHING
	`
	_, err := r.conn.Exec(ctx, query, r.profileID, catName.String(), address.String())
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

// Profile returns the display fields consumed by the score engine and
// the notification body.
func (r *StateRepository) Profile(ctx context.Context) (shared.CatName, shared.Address, error) {
	query := `SELECT cat_name, address FROM profile_states WHERE profile_id = $1`

	var catName, address string
	err := r.conn.QueryRow(ctx, query, r.profileID).Scan(&catName, &address)
	if err != nil {
		if IsNoRows(err) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("load profile: %w", err)
	}

	return shared.CatName(catName), shared.Address(address), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WELLNESS STATE
// ══════════════════════════════════════════════════════════════════════════════

// LoadDailyState implements wellness.Repository.
func (r *StateRepository) LoadDailyState(ctx context.Context) (wellness.DailyState, error) {
	query := `
		SELECT today_score, yesterday_score, last_calculation_day
		FROM profile_states
		WHERE profile_id = $1
	`

	var todayScore, yesterdayScore int
	var lastCalc *time.Time
	err := r.conn.QueryRow(ctx, query, r.profileID).Scan(&todayScore, &yesterdayScore, &lastCalc)
	if err != nil {
		if IsNoRows(err) {
			return wellness.DefaultDailyState(), nil
		}
		return wellness.DefaultDailyState(), fmt.Errorf("load daily state: %w", err)
	}

	return wellness.DailyState{
		TodayScore:         shared.Score(todayScore),
		YesterdayScore:     shared.Score(yesterdayScore),
		LastCalculationDay: dayFrom(lastCalc),
	}, nil
}

// SaveDailyState implements wellness.Repository.
func (r *StateRepository) SaveDailyState(ctx context.Context, state wellness.DailyState) error {
	query := `
		UPDATE profile_states
		SET today_score = $2, yesterday_score = $3, last_calculation_day = $4
		WHERE profile_id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		r.profileID, state.TodayScore.Int(), state.YesterdayScore.Int(), dayPtr(state.LastCalculationDay))
	if err != nil {
		return fmt.Errorf("save daily state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TREAT BALANCE AND STEP GATE
// ══════════════════════════════════════════════════════════════════════════════

// LoadBalance implements reward.BalanceRepository.
func (r *StateRepository) LoadBalance(ctx context.Context) (shared.Treats, error) {
	query := `SELECT treat_balance FROM profile_states WHERE profile_id = $1`

	var balance int
	err := r.conn.QueryRow(ctx, query, r.profileID).Scan(&balance)
	if err != nil {
		if IsNoRows(err) {
			return shared.DefaultStartingTreats, nil
		}
		return 0, fmt.Errorf("load balance: %w", err)
	}

	return shared.Treats(balance), nil
}

// SaveBalance implements reward.BalanceRepository.
func (r *StateRepository) SaveBalance(ctx context.Context, balance shared.Treats) error {
	query := `UPDATE profile_states SET treat_balance = $2 WHERE profile_id = $1`

	tag, err := r.conn.Exec(ctx, query, r.profileID, balance.Int())
	if err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// LoadGateState implements reward.GateRepository.
func (r *StateRepository) LoadGateState(ctx context.Context) (reward.GateState, error) {
	query := `SELECT last_reward_day FROM profile_states WHERE profile_id = $1`

	var lastReward *time.Time
	err := r.conn.QueryRow(ctx, query, r.profileID).Scan(&lastReward)
	if err != nil {
		if IsNoRows(err) {
			return reward.GateState{}, nil
		}
		return reward.GateState{}, fmt.Errorf("load gate state: %w", err)
	}

	return reward.GateState{LastRewardDay: dayFrom(lastReward)}, nil
}

// SaveGateState implements reward.GateRepository.
func (r *StateRepository) SaveGateState(ctx context.Context, state reward.GateState) error {
	query := `UPDATE profile_states SET last_reward_day = $2 WHERE profile_id = $1`

	tag, err := r.conn.Exec(ctx, query, r.profileID, dayPtr(state.LastRewardDay))
	if err != nil {
		return fmt.Errorf("save gate state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// LoadSnapshot implements subscription.StateRepository.
func (r *StateRepository) LoadSnapshot(ctx context.Context) (subscription.Snapshot, error) {
	query := `
		SELECT subscription_state, subscription_start, subscription_end
		FROM profile_states
		WHERE profile_id = $1
	`

	var state string
	var start, end *time.Time
	err := r.conn.QueryRow(ctx, query, r.profileID).Scan(&state, &start, &end)
	if err != nil {
		if IsNoRows(err) {
			return subscription.Snapshot{}, nil
		}
		return subscription.Snapshot{}, fmt.Errorf("load subscription snapshot: %w", err)
	}

	return subscription.Snapshot{
		State:     subscription.ParseState(state),
		StartDate: timeOrZero(start),
		EndDate:   timeOrZero(end),
	}, nil
}

// SaveSnapshot implements subscription.StateRepository.
func (r *StateRepository) SaveSnapshot(ctx context.Context, snapshot subscription.Snapshot) error {
	query := `
		UPDATE profile_states
		SET subscription_state = $2, subscription_start = $3, subscription_end = $4
		WHERE profile_id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		r.profileID, snapshot.State.String(), timePtr(snapshot.StartDate), timePtr(snapshot.EndDate))
	if err != nil {
		return fmt.Errorf("save subscription snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCAN HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Calendar days live in DATE columns, so they round-trip as UTC
// midnights regardless of the zone the engine runs in. Day.Equal
// compares calendar dates, so a UTC-reconstructed day matches the same
// date built from the local clock.

func dayFrom(t *time.Time) shared.Day {
	if t == nil {
		return shared.Day{}
	}
	return shared.DayOf(t.In(time.UTC), time.UTC)
}

func dayPtr(d shared.Day) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	u := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &u
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return timeutil.ToJST(*t)
}
