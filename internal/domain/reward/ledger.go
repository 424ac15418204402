package reward

import (
	"context"
	"sync"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// Ledger is the sole owner of the treat balance. Every mutation goes
// through Grant or Spend under a single-writer mutex: the step gate, the
// subscription ledger and the manual feed action all call it concurrently,
// and an unserialized read-modify-write could drop a reward.
type Ledger struct {
	mu      sync.Mutex
	balance shared.Treats
	repo    BalanceRepository
	events  shared.EventPublisher
	log     *logger.Logger
}

// NewLedger creates a ledger. Call Load before first use to hydrate the
// balance from the repository.
func NewLedger(repo BalanceRepository, events shared.EventPublisher, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Default()
	}
	return &Ledger{
		repo:   repo,
		events: events,
		log:    log.WithComponent("reward_ledger"),
	}
}

// Load hydrates the balance from the repository. A read failure degrades
// to the first-launch default rather than failing startup.
func (l *Ledger) Load(ctx context.Context) {
	balance, err := l.repo.LoadBalance(ctx)
	if err != nil {
		l.log.Warn("balance read failed, using default",
			logger.Err(err),
			logger.TreatBalance(shared.DefaultStartingTreats.Int()),
		)
		balance = shared.DefaultStartingTreats
	}

	l.mu.Lock()
	l.balance = balance
	l.mu.Unlock()
}

// Balance returns the current treat balance.
func (l *Ledger) Balance() shared.Treats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// Grant credits amount treats and persists the new balance. A negative
// amount is rejected; zero is a no-op that still returns nil.
func (l *Ledger) Grant(ctx context.Context, amount shared.Treats, reason string) error {
	if amount < 0 {
		return shared.ErrNegativeAmount
	}
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	l.balance = l.balance.Add(amount)
	balance := l.balance
	l.mu.Unlock()

	l.persist(ctx, balance)
	l.publish(shared.NewTreatsGrantedEvent(amount.Int(), balance.Int(), reason))

	l.log.Info("treats granted",
		logger.TreatAmount(amount.Int()),
		logger.TreatBalance(balance.Int()),
		logger.String("reason", reason),
	)

	return nil
}

// Spend debits up to amount treats, flooring the balance at zero, and
// returns the amount actually debited. An under-funded spend is not an
// error: the debit clamps and the caller can inspect the returned amount.
func (l *Ledger) Spend(ctx context.Context, amount shared.Treats) (shared.Treats, error) {
	if amount < 0 {
		return 0, shared.ErrNegativeAmount
	}
	if amount == 0 {
		return 0, nil
	}

	l.mu.Lock()
	newBalance, debited := l.balance.SubtractClamped(amount)
	l.balance = newBalance
	l.mu.Unlock()

	l.persist(ctx, newBalance)
	l.publish(shared.NewTreatsSpentEvent(amount.Int(), debited.Int(), newBalance.Int()))

	l.log.Info("treats spent",
		logger.Int("requested", amount.Int()),
		logger.TreatAmount(debited.Int()),
		logger.TreatBalance(newBalance.Int()),
	)

	return debited, nil
}

// persist writes the balance. Write failures degrade to a warning; the
// in-memory balance stays authoritative and the next mutation retries.
func (l *Ledger) persist(ctx context.Context, balance shared.Treats) {
	if err := l.repo.SaveBalance(ctx, balance); err != nil {
		l.log.Warn("balance write failed", logger.Err(err), logger.TreatBalance(balance.Int()))
	}
}

// publish sends an event when a bus is wired.
func (l *Ledger) publish(event shared.Event) {
	if l.events == nil {
		return
	}
	if err := l.events.Publish(event); err != nil {
		l.log.Warn("event publish failed", logger.Err(err), logger.String("event", string(event.EventType())))
	}
}
