package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

type stepSyncFixture struct {
	source  *memStepSource
	cache   *memStepCache
	balance *memBalanceRepo
	pub     *recordingPublisher
	handler *SyncStepsHandler
}

func newStepSyncFixture(t *testing.T) *stepSyncFixture {
	t.Helper()
	ctx := context.Background()

	source := &memStepSource{counts: make(map[string]int)}
	cache := newMemStepCache()
	balance := &memBalanceRepo{}
	pub := &recordingPublisher{}

	treats := reward.NewLedger(balance, pub, nil)
	treats.Load(ctx)

	gate := reward.NewStepGate(reward.DefaultStepGoal, timeutil.JST, &memGateRepo{}, treats, pub, nil)
	gate.Load(ctx)

	handler := NewSyncStepsHandler(source, cache, gate, pub, timeutil.JST, nil)

	return &stepSyncFixture{
		source:  source,
		cache:   cache,
		balance: balance,
		pub:     pub,
		handler: handler,
	}
}

func TestSyncSteps_BelowGoalCachesWithoutReward(t *testing.T) {
	fx := newStepSyncFixture(t)

	result, err := fx.handler.Handle(context.Background(), SyncStepsCommand{Steps: 4200, At: mondayMorning})

	require.NoError(t, err)
	assert.Equal(t, 4200, result.Steps)
	assert.False(t, result.Rewarded)
	assert.Equal(t, shared.Treats(0), fx.balance.balance)
	assert.Equal(t, 4200, fx.cache.counts[result.Day.String()])
	assert.Equal(t, 1, fx.pub.countOf(shared.EventStepsUpdated))
	assert.Equal(t, 0, fx.pub.countOf(shared.EventStepGoalReached))
}

func TestSyncSteps_GoalReachedGrantsOneTreat(t *testing.T) {
	fx := newStepSyncFixture(t)

	result, err := fx.handler.Handle(context.Background(), SyncStepsCommand{Steps: 10000, At: mondayMorning})

	require.NoError(t, err)
	assert.True(t, result.Rewarded)
	assert.Equal(t, shared.Treats(1), fx.balance.balance)
	assert.Equal(t, 1, fx.pub.countOf(shared.EventStepGoalReached))
	assert.Equal(t, 1, fx.pub.countOf(shared.EventTreatsGranted))
}

func TestSyncSteps_RedeliverySameDayDoesNotDoubleGrant(t *testing.T) {
	fx := newStepSyncFixture(t)
	ctx := context.Background()

	first, err := fx.handler.Handle(ctx, SyncStepsCommand{Steps: 10000, At: mondayMorning})
	require.NoError(t, err)
	require.True(t, first.Rewarded)

	second, err := fx.handler.Handle(ctx, SyncStepsCommand{Steps: 12873, At: mondayMorning.Add(2 * time.Hour)})
	require.NoError(t, err)

	assert.False(t, second.Rewarded)
	assert.Equal(t, 12873, second.Steps)
	assert.Equal(t, shared.Treats(1), fx.balance.balance)
	assert.Equal(t, 1, fx.pub.countOf(shared.EventStepGoalReached))
}

func TestSyncSteps_NextDayGrantsAgain(t *testing.T) {
	fx := newStepSyncFixture(t)
	ctx := context.Background()

	_, err := fx.handler.Handle(ctx, SyncStepsCommand{Steps: 11000, At: mondayMorning})
	require.NoError(t, err)

	result, err := fx.handler.Handle(ctx, SyncStepsCommand{Steps: 10000, At: tuesdayMorning})
	require.NoError(t, err)

	assert.True(t, result.Rewarded)
	assert.Equal(t, shared.Treats(2), fx.balance.balance)
}

func TestSyncSteps_FetchReadsFromProvider(t *testing.T) {
	fx := newStepSyncFixture(t)
	day := shared.DayOf(mondayMorning, timeutil.JST)
	fx.source.counts[day.String()] = 10350

	result, err := fx.handler.Handle(context.Background(), SyncStepsCommand{Fetch: true, At: mondayMorning})

	require.NoError(t, err)
	assert.Equal(t, 10350, result.Steps)
	assert.True(t, result.Rewarded)
	assert.Equal(t, 10350, fx.cache.counts[day.String()])
}

func TestSyncSteps_FetchFailureLeavesGateUntouched(t *testing.T) {
	fx := newStepSyncFixture(t)
	fx.source.err = errors.New("bridge unreachable")

	_, err := fx.handler.Handle(context.Background(), SyncStepsCommand{Fetch: true, At: mondayMorning})

	require.Error(t, err)
	assert.Equal(t, shared.Treats(0), fx.balance.balance)
	assert.Empty(t, fx.cache.counts)

	// The next successful delivery still rewards.
	fx.source.err = nil
	result, err := fx.handler.Handle(context.Background(), SyncStepsCommand{Steps: 10000, At: mondayMorning})
	require.NoError(t, err)
	assert.True(t, result.Rewarded)
}

func TestSyncSteps_RejectsNegativeCount(t *testing.T) {
	fx := newStepSyncFixture(t)

	_, err := fx.handler.Handle(context.Background(), SyncStepsCommand{Steps: -1, At: mondayMorning})

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}
