package service

import (
	"context"
	"testing"

	"github.com/nekolog/wellness-hub/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleDailyReplacesByIdentifier(t *testing.T) {
	ctx := context.Background()
	s := NewLocalNotificationScheduler(nil)

	first := notification.MorningScoreRequest("たま", 57, 5, 0)
	require.NoError(t, s.ScheduleDaily(ctx, first))

	second := notification.MorningScoreRequest("たま", 88, 5, 0)
	require.NoError(t, s.ScheduleDaily(ctx, second))

	assert.Equal(t, 1, s.PendingCount())

	pending, ok := s.Pending(notification.IdentifierMorningScore)
	require.True(t, ok)
	assert.Equal(t, second.Body, pending.Body)
}

func TestScheduleDailyRejectsInvalidRequest(t *testing.T) {
	ctx := context.Background()
	s := NewLocalNotificationScheduler(nil)

	err := s.ScheduleDaily(ctx, notification.Request{Identifier: "", Hour: 5})
	assert.Error(t, err)

	err = s.ScheduleDaily(ctx, notification.Request{Identifier: "x", Hour: 24})
	assert.Error(t, err)

	assert.Equal(t, 0, s.PendingCount())
}

func TestCancelUnknownIdentifierIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := NewLocalNotificationScheduler(nil)

	require.NoError(t, s.Cancel(ctx, "never-scheduled"))

	require.NoError(t, s.ScheduleDaily(ctx, notification.MorningScoreRequest("たま", 50, 5, 0)))
	require.NoError(t, s.Cancel(ctx, notification.IdentifierMorningScore))
	assert.Equal(t, 0, s.PendingCount())
}
