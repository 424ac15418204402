package eventhandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/domain/notification"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
)

type memScoreCache struct {
	score  shared.Score
	writes int
}

func (c *memScoreCache) SetTodayScore(ctx context.Context, score shared.Score) error {
	c.score = score
	c.writes++
	return nil
}

type capturingScheduler struct {
	requests []notification.Request
}

func (s *capturingScheduler) ScheduleDaily(ctx context.Context, req notification.Request) error {
	s.requests = append(s.requests, req)
	return nil
}

func (s *capturingScheduler) Cancel(ctx context.Context, identifier string) error {
	return nil
}

type staticProfile struct {
	cat shared.CatName
}

func (p staticProfile) Profile(ctx context.Context) (shared.CatName, shared.Address, error) {
	return p.cat, "", nil
}

type memFlagWriter struct {
	flags map[string]string
}

func (f *memFlagWriter) SetDayFlag(ctx context.Context, day shared.Day, flag string) error {
	if f.flags == nil {
		f.flags = map[string]string{}
	}
	f.flags[day.String()] = flag
	return nil
}

type auditEntry struct {
	amount  int
	balance int
	reason  string
}

type memAudit struct {
	entries []auditEntry
}

func (a *memAudit) RecordTreatTransaction(ctx context.Context, amount, balanceAfter int, reason string) error {
	a.entries = append(a.entries, auditEntry{amount: amount, balance: balanceAfter, reason: reason})
	return nil
}

func TestOnScoreComputedCachesAndRearmsNotification(t *testing.T) {
	cache := &memScoreCache{}
	scheduler := &capturingScheduler{}
	handler := NewOnScoreComputedHandler(cache, scheduler, staticProfile{cat: "たま"}, DefaultScoreComputedConfig(), nil)

	err := handler.Handle(shared.NewScoreComputedEvent(57, 50, "2026-03-02"))
	require.NoError(t, err)

	assert.Equal(t, shared.Score(57), cache.score)
	require.Len(t, scheduler.requests, 1)
	req := scheduler.requests[0]
	assert.Equal(t, notification.IdentifierMorningScore, req.Identifier)
	assert.Equal(t, "たまからのおしらせ", req.Title)
	assert.Equal(t, "きょうの元気スコアは 57 だよ", req.Body)
	assert.Equal(t, notification.DefaultMorningHour, req.Hour)
}

func TestOnScoreComputedUsesDefaultCatName(t *testing.T) {
	scheduler := &capturingScheduler{}
	handler := NewOnScoreComputedHandler(&memScoreCache{}, scheduler, staticProfile{}, DefaultScoreComputedConfig(), nil)

	err := handler.Handle(shared.NewScoreComputedEvent(62, 57, "2026-03-03"))
	require.NoError(t, err)

	require.Len(t, scheduler.requests, 1)
	assert.Equal(t, "ねこからのおしらせ", scheduler.requests[0].Title)
}

func TestOnScoreComputedIgnoresForeignEvent(t *testing.T) {
	cache := &memScoreCache{}
	handler := NewOnScoreComputedHandler(cache, &capturingScheduler{}, staticProfile{}, DefaultScoreComputedConfig(), nil)

	err := handler.Handle(shared.NewStepsUpdatedEvent(100, "2026-03-02"))
	require.NoError(t, err)
	assert.Zero(t, cache.writes)
}

func TestOnStepGoalReachedSetsCelebrationFlag(t *testing.T) {
	flags := &memFlagWriter{}
	handler := NewOnStepGoalReachedHandler(flags, nil, nil)

	err := handler.Handle(shared.NewStepGoalReachedEvent(10234, 10000, "2026-03-02"))
	require.NoError(t, err)

	assert.Equal(t, GoalCelebratedFlag, flags.flags["2026-03-02"])
}

func TestOnTreatChangeRecordsGrantsAndSpends(t *testing.T) {
	audit := &memAudit{}
	handler := NewOnTreatChangeHandler(audit, nil)

	require.NoError(t, handler.Handle(shared.NewTreatsGrantedEvent(99, 99, "trial_start")))
	require.NoError(t, handler.Handle(shared.NewTreatsSpentEvent(1, 1, 98)))

	require.Len(t, audit.entries, 2)
	assert.Equal(t, auditEntry{amount: 99, balance: 99, reason: "trial_start"}, audit.entries[0])
	assert.Equal(t, auditEntry{amount: -1, balance: 98, reason: "feed"}, audit.entries[1])
}
