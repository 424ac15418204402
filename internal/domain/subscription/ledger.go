package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// Ledger tracks the subscription lifecycle and converts verified store
// transactions into treat grants. The grant tier depends only on elapsed
// calendar days since the recorded start date, so purchase and restore
// share one rule; the credited-transaction record keeps restore from
// paying out a second time for a transaction the purchase flow already
// credited.
type Ledger struct {
	mu       sync.Mutex
	snapshot Snapshot
	status   Status
	repo     StateRepository
	credited CreditedTransactionRepository
	treats   *reward.Ledger
	events   shared.EventPublisher
	loc      *time.Location
	log      *logger.Logger
}

// NewLedger creates a subscription ledger. Elapsed-day tiers and the
// remaining-days display are computed in loc (nil defaults to JST).
// Call Load before first use.
func NewLedger(repo StateRepository, credited CreditedTransactionRepository, treats *reward.Ledger, events shared.EventPublisher, loc *time.Location, log *logger.Logger) *Ledger {
	if loc == nil {
		loc = timeutil.JST
	}
	if log == nil {
		log = logger.Default()
	}
	return &Ledger{
		repo:     repo,
		credited: credited,
		treats:   treats,
		events:   events,
		loc:      loc,
		log:      log.WithComponent("subscription_ledger"),
	}
}

// Load hydrates the snapshot from the repository and derives the initial
// status. A read failure degrades to "no subscription on record".
func (l *Ledger) Load(ctx context.Context) {
	snapshot, err := l.repo.LoadSnapshot(ctx)
	if err != nil {
		l.log.Warn("snapshot read failed, assuming no subscription", logger.Err(err))
		snapshot = Snapshot{}
	}

	l.mu.Lock()
	l.snapshot = snapshot
	l.deriveStatusLocked(timeutil.Now())
	l.mu.Unlock()
}

// State returns the current lifecycle state.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot.State
}

// Snapshot returns a copy of the current snapshot.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}

// EndDate returns the entitlement end date, zero when no purchase exists.
// For an expired subscription the persisted end date wins; otherwise the
// end is always derived as start plus the entitlement period.
func (l *Ledger) EndDate() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot.endDate()
}

func (s Snapshot) endDate() time.Time {
	if s.StartDate.IsZero() {
		return time.Time{}
	}
	if s.State == StateExpired && !s.EndDate.IsZero() {
		return s.EndDate
	}
	return s.StartDate.Add(EntitlementPeriod)
}

// ApplyPurchase applies a verified purchase transaction and returns the
// number of treats granted. The same transaction applied twice credits
// only once and returns shared.ErrTransactionCredited on the replay.
func (l *Ledger) ApplyPurchase(ctx context.Context, txn Transaction) (int, error) {
	return l.apply(ctx, txn, false)
}

// ApplyRestore replays a transaction from the entitlement stream. The
// state is re-derived from the transaction's dates either way; treats are
// granted only when the transaction has never been credited before, so
// restoring on a fresh device recovers both state and grants while
// restoring on the purchasing device is a pure state refresh.
func (l *Ledger) ApplyRestore(ctx context.Context, txn Transaction) (int, error) {
	granted, err := l.apply(ctx, txn, true)
	if shared.IsAlreadyProcessed(err) {
		return 0, nil
	}
	return granted, err
}

func (l *Ledger) apply(ctx context.Context, txn Transaction, restored bool) (int, error) {
	if txn.Revoked() {
		return 0, l.applyRevocation(ctx, txn)
	}

	alreadyCredited, err := l.credited.IsCredited(ctx, txn.ID)
	if err != nil {
		l.log.Warn("credited lookup failed, refusing grant", logger.Err(err), logger.TransactionID(txn.ID))
		return 0, err
	}

	l.mu.Lock()
	from := l.snapshot.State
	grant, next := l.transition(txn.PurchaseDate)
	l.snapshot = next
	// Status as of the transaction's own date; callers that need the
	// current clock follow up with UpdateStatus.
	l.deriveStatusLocked(txn.PurchaseDate)
	l.mu.Unlock()

	l.persist(ctx)

	if alreadyCredited {
		l.log.Info("transaction already credited, state refreshed only",
			logger.TransactionID(txn.ID),
			logger.String("state", next.State.String()),
		)
		return 0, shared.ErrTransactionCredited
	}

	if err := l.treats.Grant(ctx, shared.Treats(grant), grantReason(from, next.State)); err != nil {
		return 0, err
	}
	if err := l.credited.MarkCredited(ctx, txn.ID, grant); err != nil {
		l.log.Warn("credited write failed", logger.Err(err), logger.TransactionID(txn.ID))
	}

	l.publish(shared.NewSubscriptionChangedEvent(
		transitionEventType(from, next.State, restored),
		txn.ID, from.String(), next.State.String(), grant, restored,
	))

	l.log.Info("purchase applied",
		logger.TransactionID(txn.ID),
		logger.String("from", from.String()),
		logger.String("to", next.State.String()),
		logger.TreatAmount(grant),
		logger.Bool("restored", restored),
	)

	return grant, nil
}

// transition computes the grant and the next snapshot for a purchase at
// purchaseDate. The tier is keyed on elapsed calendar days since the
// recorded start, never on the current state name, because a restore may
// see transactions out of order relative to app launches.
func (l *Ledger) transition(purchaseDate time.Time) (int, Snapshot) {
	if l.snapshot.StartDate.IsZero() {
		return TrialStartGrant, Snapshot{State: StateTrial, StartDate: purchaseDate}
	}

	elapsed := timeutil.DaysSince(l.snapshot.StartDate, purchaseDate, l.loc)
	if elapsed < EntitlementDays {
		// Repurchase within the trial window keeps the original start.
		return TrialRenewalGrant, Snapshot{State: StateTrial, StartDate: l.snapshot.StartDate}
	}
	return ActivationGrant, Snapshot{State: StateActive, StartDate: l.snapshot.StartDate}
}

// applyRevocation marks the subscription expired at the revocation date.
func (l *Ledger) applyRevocation(ctx context.Context, txn Transaction) error {
	if txn.RevocationDate.Before(txn.PurchaseDate) {
		return shared.ErrRevokedBeforePurchase
	}

	l.mu.Lock()
	from := l.snapshot.State
	if from == StateNone {
		l.mu.Unlock()
		return shared.ErrNoSubscription
	}
	l.snapshot = Snapshot{
		State:     StateExpired,
		StartDate: l.snapshot.StartDate,
		EndDate:   *txn.RevocationDate,
	}
	l.deriveStatusLocked(*txn.RevocationDate)
	l.mu.Unlock()

	l.persist(ctx)
	l.publish(shared.NewSubscriptionChangedEvent(
		shared.EventSubscriptionExpired,
		txn.ID, from.String(), StateExpired.String(), 0, true,
	))

	l.log.Info("entitlement revoked",
		logger.TransactionID(txn.ID),
		logger.String("from", from.String()),
	)

	return nil
}

// UpdateStatus recomputes the derived status from the clock. It is a
// read, not a transition; the persisted snapshot changes only when the
// entitlement is found lapsed and the state flips to expired.
func (l *Ledger) UpdateStatus(ctx context.Context, now time.Time) Status {
	l.mu.Lock()
	lapsed := l.deriveStatusLocked(now)
	status := l.status
	l.mu.Unlock()

	if lapsed {
		l.persist(ctx)
		l.publish(shared.NewSubscriptionChangedEvent(
			shared.EventSubscriptionExpired,
			"", StateTrial.String(), StateExpired.String(), 0, false,
		))
	}

	return status
}

// Status returns the most recently derived status.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// deriveStatusLocked recomputes l.status from now versus the end date.
// It reports whether a live state was found lapsed and flipped to
// expired. Caller holds l.mu.
func (l *Ledger) deriveStatusLocked(now time.Time) bool {
	if l.snapshot.StartDate.IsZero() {
		l.status = Status{}
		return false
	}

	end := l.snapshot.endDate()
	if now.Before(end) {
		remaining := timeutil.DaysBetween(now, end, l.loc)
		l.status = Status{
			Active:  true,
			Display: fmt.Sprintf("Active (expires in %d days)", remaining),
		}
		return false
	}

	l.status = Status{Display: "Subscription expired"}
	// Only a trial lapses by clock. An active subscription keeps its
	// state until a revocation is observed on the entitlement stream.
	if l.snapshot.State != StateTrial {
		return false
	}
	l.snapshot = Snapshot{
		State:     StateExpired,
		StartDate: l.snapshot.StartDate,
		EndDate:   end,
	}
	return true
}

// persist writes the snapshot. Write failures degrade to a warning; the
// in-memory snapshot stays authoritative and the next transition retries.
func (l *Ledger) persist(ctx context.Context) {
	l.mu.Lock()
	snapshot := l.snapshot
	l.mu.Unlock()

	if err := l.repo.SaveSnapshot(ctx, snapshot); err != nil {
		l.log.Warn("snapshot write failed", logger.Err(err), logger.String("state", snapshot.State.String()))
	}
}

func (l *Ledger) publish(event shared.Event) {
	if l.events == nil {
		return
	}
	if err := l.events.Publish(event); err != nil {
		l.log.Warn("event publish failed", logger.Err(err), logger.String("event", string(event.EventType())))
	}
}

func grantReason(from, to State) string {
	switch {
	case from == StateNone:
		return "trial_start"
	case to == StateTrial:
		return "trial_renewal"
	default:
		return "activation"
	}
}

func transitionEventType(from, to State, restored bool) shared.EventType {
	if restored {
		return shared.EventEntitlementRestored
	}
	switch {
	case to == StateActive:
		return shared.EventSubscriptionActive
	case from == StateTrial && to == StateTrial:
		return shared.EventTrialRenewed
	default:
		return shared.EventTrialStarted
	}
}
