package reward

import (
	"context"
	"sync"
	"time"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// DefaultStepGoal is the daily step target that earns one treat.
const DefaultStepGoal = 10000

// StepReward is the number of treats granted when the goal is reached.
const StepReward shared.Treats = 1

// StepGate grants one treat the first time the daily step count reaches
// the goal. It is safe to call Evaluate arbitrarily many times per day:
// the step provider re-delivers cumulative counts, and the persisted
// last-reward day - not a counter - is the sole idempotency guard.
type StepGate struct {
	mu     sync.Mutex
	state  GateState
	goal   int
	loc    *time.Location
	repo   GateRepository
	ledger *Ledger
	events shared.EventPublisher
	log    *logger.Logger
}

// NewStepGate creates a gate. Call Load before first use to hydrate the
// last-reward day from the repository.
func NewStepGate(goal int, loc *time.Location, repo GateRepository, ledger *Ledger, events shared.EventPublisher, log *logger.Logger) *StepGate {
	if goal <= 0 {
		goal = DefaultStepGoal
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Default()
	}
	return &StepGate{
		goal:   goal,
		loc:    loc,
		repo:   repo,
		ledger: ledger,
		events: events,
		log:    log.WithComponent("step_gate"),
	}
}

// Load hydrates the gate state from the repository. A read failure
// degrades to "no prior reward" and is retried on the next delivery.
func (g *StepGate) Load(ctx context.Context) {
	state, err := g.repo.LoadGateState(ctx)
	if err != nil {
		g.log.Warn("gate state read failed, assuming no prior reward", logger.Err(err))
		state = GateState{}
	}

	g.mu.Lock()
	g.state = state
	g.mu.Unlock()
}

// Goal returns the configured daily step goal.
func (g *StepGate) Goal() int {
	return g.goal
}

// LastRewardDay returns the day of the most recent grant, zero when none.
func (g *StepGate) LastRewardDay() shared.Day {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.LastRewardDay
}

// Evaluate inspects today's cumulative step count and grants exactly one
// treat the first time the goal is reached on a given calendar day.
// It reports whether a grant happened.
func (g *StepGate) Evaluate(ctx context.Context, steps int, now time.Time) (bool, error) {
	today := shared.DayOf(now, g.loc)

	g.mu.Lock()
	if g.state.LastRewardDay.Equal(today) {
		g.mu.Unlock()
		return false, nil
	}
	if steps < g.goal {
		g.mu.Unlock()
		return false, nil
	}
	// Mark the day before releasing the lock so concurrent deliveries
	// cannot double-grant.
	g.state.LastRewardDay = today
	g.mu.Unlock()

	if err := g.ledger.Grant(ctx, StepReward, "step_goal"); err != nil {
		return false, err
	}

	if err := g.repo.SaveGateState(ctx, GateState{LastRewardDay: today}); err != nil {
		g.log.Warn("gate state write failed", logger.Err(err), logger.CalendarDay(today.Time()))
	}

	if g.events != nil {
		if err := g.events.Publish(shared.NewStepGoalReachedEvent(steps, g.goal, today.String())); err != nil {
			g.log.Warn("event publish failed", logger.Err(err))
		}
	}

	g.log.Info("step goal reached, treat granted",
		logger.StepCount(steps),
		logger.Int("goal", g.goal),
		logger.CalendarDay(today.Time()),
	)

	return true, nil
}
