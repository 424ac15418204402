package subscription

import (
	"context"
)

// StateRepository persists the subscription snapshot.
//
// Implementations must degrade reads: a missing record yields the zero
// snapshot (StateNone), never an error surfaced to the caller.
type StateRepository interface {
	// LoadSnapshot returns the persisted snapshot, or the zero snapshot
	// when no purchase has ever been recorded.
	LoadSnapshot(ctx context.Context) (Snapshot, error)

	// SaveSnapshot persists the snapshot after a state transition.
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
}

// CreditedTransactionRepository records which store transactions have
// already produced a treat grant. The restore flow replays the full
// entitlement stream, so this record is what makes restore idempotent.
type CreditedTransactionRepository interface {
	// IsCredited reports whether the transaction has already been credited.
	IsCredited(ctx context.Context, transactionID string) (bool, error)

	// MarkCredited records a credit. Marking the same transaction twice
	// must be a no-op, not an error.
	MarkCredited(ctx context.Context, transactionID string, amount int) error
}
