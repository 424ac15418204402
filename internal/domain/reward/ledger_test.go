package reward

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

type memBalanceRepo struct {
	balance shared.Treats
	saved   int
	loadErr error
	saveErr error
}

func (m *memBalanceRepo) LoadBalance(ctx context.Context) (shared.Treats, error) {
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	return m.balance, nil
}

func (m *memBalanceRepo) SaveBalance(ctx context.Context, balance shared.Treats) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.balance = balance
	m.saved++
	return nil
}

type memGateRepo struct {
	state   GateState
	loadErr error
}

func (m *memGateRepo) LoadGateState(ctx context.Context) (GateState, error) {
	if m.loadErr != nil {
		return GateState{}, m.loadErr
	}
	return m.state, nil
}

func (m *memGateRepo) SaveGateState(ctx context.Context, state GateState) error {
	m.state = state
	return nil
}

type recordingPublisher struct {
	events []shared.Event
}

func (r *recordingPublisher) Publish(event shared.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) countOf(eventType shared.EventType) int {
	n := 0
	for _, e := range r.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

func TestLedger_Load_DefaultsOnReadFailure(t *testing.T) {
	repo := &memBalanceRepo{loadErr: errors.New("connection refused")}
	ledger := NewLedger(repo, nil, nil)

	ledger.Load(context.Background())

	assert.Equal(t, shared.DefaultStartingTreats, ledger.Balance())
}

func TestLedger_GrantIsAdditiveAndPersists(t *testing.T) {
	repo := &memBalanceRepo{balance: 7}
	events := &recordingPublisher{}
	ledger := NewLedger(repo, events, nil)
	ledger.Load(context.Background())

	require.NoError(t, ledger.Grant(context.Background(), 1, "step_goal"))
	require.NoError(t, ledger.Grant(context.Background(), 99, "trial_start"))

	assert.Equal(t, shared.Treats(107), ledger.Balance())
	assert.Equal(t, shared.Treats(107), repo.balance)
	assert.Equal(t, 2, events.countOf(shared.EventTreatsGranted))
}

func TestLedger_GrantRejectsNegative(t *testing.T) {
	ledger := NewLedger(&memBalanceRepo{}, nil, nil)
	ledger.Load(context.Background())

	err := ledger.Grant(context.Background(), -5, "bogus")

	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestLedger_SpendClampsAtZero(t *testing.T) {
	repo := &memBalanceRepo{balance: 0}
	ledger := NewLedger(repo, nil, nil)
	ledger.Load(context.Background())

	debited, err := ledger.Spend(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, shared.Treats(0), debited)
	assert.Equal(t, shared.Treats(0), ledger.Balance())
}

func TestLedger_SpendReturnsDebitedAmount(t *testing.T) {
	repo := &memBalanceRepo{balance: 3}
	ledger := NewLedger(repo, nil, nil)
	ledger.Load(context.Background())

	debited, err := ledger.Spend(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, shared.Treats(3), debited)
	assert.Equal(t, shared.Treats(0), ledger.Balance())

	debited, err = ledger.Spend(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, shared.Treats(0), debited)
}

func TestLedger_PersistFailureKeepsMemoryAuthoritative(t *testing.T) {
	repo := &memBalanceRepo{balance: 7, saveErr: errors.New("disk full")}
	ledger := NewLedger(repo, nil, nil)
	ledger.Load(context.Background())

	require.NoError(t, ledger.Grant(context.Background(), 5, "test"))

	assert.Equal(t, shared.Treats(12), ledger.Balance())
}
