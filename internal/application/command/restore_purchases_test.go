package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

func TestRestoreOnFreshDeviceRecoversStateAndGrants(t *testing.T) {
	f := newSubscriptionFixture(t)
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	store := fakeEntitlementSource{txns: []subscription.Transaction{
		// Deliberately out of order; the handler replays oldest first.
		{ID: "txn-002", ProductID: subscription.ProductID, PurchaseDate: start.AddDate(0, 0, 10)},
		{ID: "txn-001", ProductID: subscription.ProductID, PurchaseDate: start},
	}}
	handler := NewRestorePurchasesHandler(store, f.ledger, nil)

	result, err := handler.Handle(context.Background(), RestorePurchasesCommand{At: start.AddDate(0, 0, 11)})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, subscription.TrialStartGrant+subscription.ActivationGrant, result.TreatsGranted)
	assert.Equal(t, subscription.StateActive, result.State)
	expected := shared.Treats(subscription.TrialStartGrant + subscription.ActivationGrant)
	assert.Equal(t, expected, f.treats.Balance())
}

func TestRestoreOnPurchasingDeviceGrantsNothing(t *testing.T) {
	f := newSubscriptionFixture(t)
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	txn := subscription.Transaction{ID: "txn-001", ProductID: subscription.ProductID, PurchaseDate: start}

	_, err := f.ledger.ApplyPurchase(context.Background(), txn)
	require.NoError(t, err)
	balanceAfterPurchase := f.treats.Balance()

	handler := NewRestorePurchasesHandler(fakeEntitlementSource{txns: []subscription.Transaction{txn}}, f.ledger, nil)
	result, err := handler.Handle(context.Background(), RestorePurchasesCommand{At: start.Add(time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 0, result.TreatsGranted)
	assert.Equal(t, subscription.StateTrial, result.State)
	assert.Equal(t, balanceAfterPurchase, f.treats.Balance())
}

func TestRestoreIsIdempotentAcrossRuns(t *testing.T) {
	f := newSubscriptionFixture(t)
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	store := fakeEntitlementSource{txns: []subscription.Transaction{
		{ID: "txn-001", ProductID: subscription.ProductID, PurchaseDate: start},
	}}
	handler := NewRestorePurchasesHandler(store, f.ledger, nil)

	first, err := handler.Handle(context.Background(), RestorePurchasesCommand{At: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, subscription.TrialStartGrant, first.TreatsGranted)

	second, err := handler.Handle(context.Background(), RestorePurchasesCommand{At: start.Add(2 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 0, second.TreatsGranted)
	assert.Equal(t, subscription.StateTrial, second.State)
	assert.Equal(t, shared.Treats(subscription.TrialStartGrant), f.treats.Balance())
}

func TestRestoreAppliesRevocation(t *testing.T) {
	f := newSubscriptionFixture(t)
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, timeutil.JST)
	_, err := f.ledger.ApplyPurchase(context.Background(), subscription.Transaction{
		ID: "txn-001", ProductID: subscription.ProductID, PurchaseDate: start,
	})
	require.NoError(t, err)

	revokedAt := start.AddDate(0, 0, 2)
	store := fakeEntitlementSource{txns: []subscription.Transaction{
		{ID: "txn-001", ProductID: subscription.ProductID, PurchaseDate: start, RevocationDate: &revokedAt},
	}}
	handler := NewRestorePurchasesHandler(store, f.ledger, nil)

	result, err := handler.Handle(context.Background(), RestorePurchasesCommand{At: revokedAt.Add(time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, subscription.StateExpired, result.State)
	assert.False(t, result.Status.Active)
	assert.Equal(t, revokedAt, f.ledger.EndDate())
}

func TestRestoreWithEmptyEntitlementsLeavesStateAlone(t *testing.T) {
	f := newSubscriptionFixture(t)
	handler := NewRestorePurchasesHandler(fakeEntitlementSource{}, f.ledger, nil)

	result, err := handler.Handle(context.Background(), RestorePurchasesCommand{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Applied)
	assert.Equal(t, subscription.StateNone, result.State)
	assert.False(t, result.Status.Active)
}
