package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

type subscriptionFixture struct {
	balanceRepo  *memBalanceRepo
	snapshotRepo *memSnapshotRepo
	creditedRepo *memCreditedRepo
	treats       *reward.Ledger
	ledger       *subscription.Ledger
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	f := &subscriptionFixture{
		balanceRepo:  &memBalanceRepo{},
		snapshotRepo: &memSnapshotRepo{},
		creditedRepo: newMemCreditedRepo(),
	}
	f.treats = reward.NewLedger(f.balanceRepo, nil, nil)
	f.treats.Load(context.Background())
	f.ledger = subscription.NewLedger(f.snapshotRepo, f.creditedRepo, f.treats, nil, nil, nil)
	f.ledger.Load(context.Background())
	return f
}

func TestPurchasePassFirstPurchaseStartsTrial(t *testing.T) {
	f := newSubscriptionFixture(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	store := fakePurchaseService{txn: subscription.Transaction{
		ID:           "txn-001",
		ProductID:    subscription.ProductID,
		PurchaseDate: now,
	}}
	handler := NewPurchasePassHandler(store, f.ledger, nil)

	result, err := handler.Handle(context.Background(), PurchasePassCommand{At: now})
	require.NoError(t, err)

	assert.False(t, result.Cancelled)
	assert.Equal(t, subscription.TrialStartGrant, result.TreatsGranted)
	assert.Equal(t, subscription.StateTrial, result.State)
	assert.True(t, result.Status.Active)
	assert.Equal(t, shared.Treats(subscription.TrialStartGrant), f.treats.Balance())
}

func TestPurchasePassCancelledMutatesNothing(t *testing.T) {
	f := newSubscriptionFixture(t)
	store := fakePurchaseService{err: shared.ErrPurchaseCancelled}
	handler := NewPurchasePassHandler(store, f.ledger, nil)

	result, err := handler.Handle(context.Background(), PurchasePassCommand{})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, subscription.StateNone, result.State)
	assert.Equal(t, shared.Treats(0), f.treats.Balance())
	assert.Equal(t, subscription.StateNone, f.snapshotRepo.snapshot.State)
}

func TestPurchasePassDuplicateTransactionCreditsOnce(t *testing.T) {
	f := newSubscriptionFixture(t)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	store := fakePurchaseService{txn: subscription.Transaction{
		ID:           "txn-001",
		ProductID:    subscription.ProductID,
		PurchaseDate: now,
	}}
	handler := NewPurchasePassHandler(store, f.ledger, nil)

	_, err := handler.Handle(context.Background(), PurchasePassCommand{At: now})
	require.NoError(t, err)

	result, err := handler.Handle(context.Background(), PurchasePassCommand{At: now.Add(time.Minute)})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TreatsGranted)
	assert.Equal(t, subscription.StateTrial, result.State)
	assert.Equal(t, shared.Treats(subscription.TrialStartGrant), f.treats.Balance())
}

func TestPurchasePassRepurchaseAfterTrialActivates(t *testing.T) {
	f := newSubscriptionFixture(t)
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	handler := NewPurchasePassHandler(fakePurchaseService{txn: subscription.Transaction{
		ID:           "txn-001",
		ProductID:    subscription.ProductID,
		PurchaseDate: start,
	}}, f.ledger, nil)
	_, err := handler.Handle(context.Background(), PurchasePassCommand{At: start})
	require.NoError(t, err)

	later := start.AddDate(0, 0, 10)
	handler = NewPurchasePassHandler(fakePurchaseService{txn: subscription.Transaction{
		ID:           "txn-002",
		ProductID:    subscription.ProductID,
		PurchaseDate: later,
	}}, f.ledger, nil)

	result, err := handler.Handle(context.Background(), PurchasePassCommand{At: later})
	require.NoError(t, err)

	assert.Equal(t, subscription.ActivationGrant, result.TreatsGranted)
	assert.Equal(t, subscription.StateActive, result.State)
	expected := shared.Treats(subscription.TrialStartGrant + subscription.ActivationGrant)
	assert.Equal(t, expected, f.treats.Balance())
}
