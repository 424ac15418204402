package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

func newFundedLedger(t *testing.T, balance shared.Treats) (*reward.Ledger, *memBalanceRepo) {
	t.Helper()
	repo := &memBalanceRepo{balance: balance}
	ledger := reward.NewLedger(repo, nil, nil)
	ledger.Load(context.Background())
	return ledger, repo
}

func TestGiveTreatDebitsAndReportsFed(t *testing.T) {
	ledger, repo := newFundedLedger(t, 5)
	handler := NewGiveTreatHandler(ledger)

	result, err := handler.Handle(context.Background(), GiveTreatCommand{Treats: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Requested)
	assert.Equal(t, 2, result.Debited)
	assert.True(t, result.Fed)
	assert.Equal(t, shared.Treats(3), result.Balance)
	assert.Equal(t, shared.Treats(3), repo.balance)
}

func TestGiveTreatDefaultsToOne(t *testing.T) {
	ledger, _ := newFundedLedger(t, 5)
	handler := NewGiveTreatHandler(ledger)

	result, err := handler.Handle(context.Background(), GiveTreatCommand{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Requested)
	assert.Equal(t, 1, result.Debited)
}

func TestGiveTreatWithEmptyBalanceIsNotAnError(t *testing.T) {
	ledger, _ := newFundedLedger(t, 0)
	handler := NewGiveTreatHandler(ledger)

	result, err := handler.Handle(context.Background(), GiveTreatCommand{Treats: 3})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Debited)
	assert.False(t, result.Fed)
	assert.Equal(t, shared.Treats(0), result.Balance)
}

func TestGiveTreatClampsPartialDebit(t *testing.T) {
	ledger, _ := newFundedLedger(t, 2)
	handler := NewGiveTreatHandler(ledger)

	result, err := handler.Handle(context.Background(), GiveTreatCommand{Treats: 5})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Debited)
	assert.True(t, result.Fed)
	assert.Equal(t, shared.Treats(0), result.Balance)
}

func TestGiveTreatRejectsNegativeAmount(t *testing.T) {
	ledger, _ := newFundedLedger(t, 5)
	handler := NewGiveTreatHandler(ledger)

	_, err := handler.Handle(context.Background(), GiveTreatCommand{Treats: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNegativeAmount))
}
