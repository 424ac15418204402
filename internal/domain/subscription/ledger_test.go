package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

type memStateRepo struct {
	snapshot Snapshot
}

func (m *memStateRepo) LoadSnapshot(ctx context.Context) (Snapshot, error) {
	return m.snapshot, nil
}

func (m *memStateRepo) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	m.snapshot = snapshot
	return nil
}

type memCreditedRepo struct {
	credited map[string]int
}

func (m *memCreditedRepo) IsCredited(ctx context.Context, id string) (bool, error) {
	_, ok := m.credited[id]
	return ok, nil
}

func (m *memCreditedRepo) MarkCredited(ctx context.Context, id string, amount int) error {
	if m.credited == nil {
		m.credited = map[string]int{}
	}
	m.credited[id] = amount
	return nil
}

type memBalanceRepo struct {
	balance shared.Treats
}

func (m *memBalanceRepo) LoadBalance(ctx context.Context) (shared.Treats, error) {
	return m.balance, nil
}

func (m *memBalanceRepo) SaveBalance(ctx context.Context, balance shared.Treats) error {
	m.balance = balance
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *reward.Ledger) {
	t.Helper()
	treats := reward.NewLedger(&memBalanceRepo{balance: 0}, nil, nil)
	treats.Load(context.Background())
	ledger := NewLedger(&memStateRepo{}, &memCreditedRepo{}, treats, nil, nil, nil)
	ledger.Load(context.Background())
	return ledger, treats
}

func txn(id string, purchased time.Time) Transaction {
	return Transaction{ID: id, ProductID: ProductID, PurchaseDate: purchased}
}

func TestLedger_FirstPurchaseStartsTrial(t *testing.T) {
	ledger, treats := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	granted, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	assert.Equal(t, TrialStartGrant, granted)
	assert.Equal(t, StateTrial, ledger.State())
	assert.Equal(t, shared.Treats(99), treats.Balance())
	assert.Equal(t, start, ledger.Snapshot().StartDate)
}

func TestLedger_RepurchaseWithinTrialWindow(t *testing.T) {
	ledger, treats := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	_, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	granted, err := ledger.ApplyPurchase(context.Background(), txn("txn-2", start.AddDate(0, 0, 3)))
	require.NoError(t, err)

	assert.Equal(t, TrialRenewalGrant, granted)
	assert.Equal(t, StateTrial, ledger.State())
	// The start date is unchanged by a trial renewal.
	assert.Equal(t, start, ledger.Snapshot().StartDate)
	assert.Equal(t, shared.Treats(99+7), treats.Balance())
}

func TestLedger_RepurchaseAfterTrialActivates(t *testing.T) {
	ledger, treats := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	_, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	granted, err := ledger.ApplyPurchase(context.Background(), txn("txn-2", start.AddDate(0, 0, 10)))
	require.NoError(t, err)

	assert.Equal(t, ActivationGrant, granted)
	assert.Equal(t, StateActive, ledger.State())
	assert.Equal(t, shared.Treats(99+31), treats.Balance())
}

func TestLedger_DuplicateTransactionCreditsOnce(t *testing.T) {
	ledger, treats := newTestLedger(t)
	purchase := txn("txn-1", timeutil.Date(2026, 8, 1))

	_, err := ledger.ApplyPurchase(context.Background(), purchase)
	require.NoError(t, err)

	granted, err := ledger.ApplyPurchase(context.Background(), purchase)
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
	assert.Equal(t, 0, granted)
	assert.Equal(t, shared.Treats(99), treats.Balance())
}

func TestLedger_RestoreOnSameDeviceIsPureStateRefresh(t *testing.T) {
	ledger, treats := newTestLedger(t)
	purchase := txn("txn-1", timeutil.Date(2026, 8, 1))

	_, err := ledger.ApplyPurchase(context.Background(), purchase)
	require.NoError(t, err)

	// Restore replays the entitlement stream containing the same txn.
	granted, err := ledger.ApplyRestore(context.Background(), purchase)
	require.NoError(t, err)

	assert.Equal(t, 0, granted)
	assert.Equal(t, shared.Treats(99), treats.Balance())
	assert.Equal(t, StateTrial, ledger.State())
}

func TestLedger_RestoreOnFreshDeviceRecoverStateAndGrant(t *testing.T) {
	ledger, treats := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	granted, err := ledger.ApplyRestore(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	assert.Equal(t, TrialStartGrant, granted)
	assert.Equal(t, StateTrial, ledger.State())
	assert.Equal(t, shared.Treats(99), treats.Balance())
}

func TestLedger_RevocationExpires(t *testing.T) {
	ledger, treats := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)
	revoked := timeutil.Date(2026, 8, 5)

	_, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	granted, err := ledger.ApplyRestore(context.Background(), Transaction{
		ID:             "txn-1",
		ProductID:      ProductID,
		PurchaseDate:   start,
		RevocationDate: &revoked,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, granted)
	assert.Equal(t, StateExpired, ledger.State())
	assert.Equal(t, revoked, ledger.Snapshot().EndDate)
	// Revocation never claws treats back.
	assert.Equal(t, shared.Treats(99), treats.Balance())
}

func TestLedger_UpdateStatusActive(t *testing.T) {
	ledger, _ := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	_, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	status := ledger.UpdateStatus(context.Background(), timeutil.DateTime(2026, 8, 3, 12, 0, 0))

	assert.True(t, status.Active)
	assert.Equal(t, "Active (expires in 5 days)", status.Display)
}

func TestLedger_UpdateStatusLapsesToExpired(t *testing.T) {
	ledger, _ := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	_, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	status := ledger.UpdateStatus(context.Background(), timeutil.Date(2026, 8, 20))

	assert.False(t, status.Active)
	assert.Equal(t, "Subscription expired", status.Display)
	assert.Equal(t, StateExpired, ledger.State())
	assert.Equal(t, start.AddDate(0, 0, EntitlementDays), ledger.Snapshot().EndDate)
}

func TestLedger_EndDateIsStartPlusPeriod(t *testing.T) {
	ledger, _ := newTestLedger(t)
	start := timeutil.Date(2026, 8, 1)

	_, err := ledger.ApplyPurchase(context.Background(), txn("txn-1", start))
	require.NoError(t, err)

	assert.Equal(t, start.Add(EntitlementPeriod), ledger.EndDate())
}

func TestLedger_NoSubscriptionStatusIsEmpty(t *testing.T) {
	ledger, _ := newTestLedger(t)

	status := ledger.UpdateStatus(context.Background(), timeutil.Now())

	assert.False(t, status.Active)
	assert.Empty(t, status.Display)
	assert.Equal(t, StateNone, ledger.State())
}
