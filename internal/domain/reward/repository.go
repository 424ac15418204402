// Package reward contains the treat economy domain for NekoLog: the
// non-negative treat balance and the once-per-day step reward gate.
package reward

import (
	"context"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

// GateState is the persisted state of the step reward gate: the calendar
// day the last step reward was granted on, or zero when never granted.
type GateState struct {
	LastRewardDay shared.Day
}

// BalanceRepository persists the treat balance.
//
// Implementations must degrade reads: a missing record yields the
// first-launch default balance, never an error surfaced to the caller.
type BalanceRepository interface {
	// LoadBalance returns the persisted balance, or
	// shared.DefaultStartingTreats when nothing has been written yet.
	LoadBalance(ctx context.Context) (shared.Treats, error)

	// SaveBalance persists the balance. Writes for this record must not
	// be overtaken by older writes.
	SaveBalance(ctx context.Context, balance shared.Treats) error
}

// GateRepository persists the step reward gate state.
type GateRepository interface {
	// LoadGateState returns the persisted gate state, or the zero state
	// ("no prior reward") when nothing has been written yet.
	LoadGateState(ctx context.Context) (GateState, error)

	// SaveGateState persists the gate state after a successful grant.
	SaveGateState(ctx context.Context, state GateState) error
}
