// Package subscription contains the NekoLog premium pass lifecycle: the
// trial/active/expired state machine and the treat grants attached to
// verified purchase and restore events.
package subscription

import (
	"time"
)

// State is the subscription lifecycle state.
type State int

const (
	// StateNone means no purchase has ever been verified.
	StateNone State = iota

	// StateTrial means the first purchase happened less than the
	// entitlement period ago.
	StateTrial

	// StateActive means a repurchase landed after the trial period.
	StateActive

	// StateExpired means the entitlement lapsed or was revoked.
	StateExpired
)

// String returns the persisted name of the state.
func (s State) String() string {
	switch s {
	case StateTrial:
		return "trial"
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "none"
	}
}

// ParseState maps a persisted name back to a State. Unknown names fall
// back to StateNone rather than failing the read.
func ParseState(s string) State {
	switch s {
	case "trial":
		return StateTrial
	case "active":
		return StateActive
	case "expired":
		return StateExpired
	default:
		return StateNone
	}
}

// EntitlementDays is how many calendar days a single purchase entitles
// the user for. The end date of any subscription is start plus this many
// days, and the trial-versus-activation grant tier pivots on it too.
const EntitlementDays = 7

// EntitlementPeriod is EntitlementDays as a duration.
const EntitlementPeriod = EntitlementDays * 24 * time.Hour

// Grant amounts per transition. Product constants with no stated
// rationale; do not change without a pricing review.
const (
	TrialStartGrant   = 99
	TrialRenewalGrant = 7
	ActivationGrant   = 31
)

// ProductID is the single premium pass product sold through the store.
const ProductID = "com.nekolog.premiumpass"

// Transaction is a verified store transaction, from either the purchase
// flow or the restore entitlement stream.
type Transaction struct {
	ID             string
	ProductID      string
	PurchaseDate   time.Time
	RevocationDate *time.Time
}

// Revoked reports whether the store has revoked this transaction.
func (t Transaction) Revoked() bool {
	return t.RevocationDate != nil
}

// Snapshot is the persisted subscription state: the lifecycle state plus
// the anchor dates it is derived from. EndDate is only meaningful for
// StateExpired; for live states it is re-derived as start + period.
type Snapshot struct {
	State     State
	StartDate time.Time
	EndDate   time.Time
}

// Status is the derived read surfaced to display layers. It is computed
// from the clock and the snapshot, never stored.
type Status struct {
	Active  bool
	Display string
}
