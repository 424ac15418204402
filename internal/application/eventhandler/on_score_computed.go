// Package eventhandler contains the reactive side of the engine: handlers
// that subscribe to domain events and run the follow-up effects, such as
// refreshing caches or re-arming the morning notification.
package eventhandler

import (
	"context"

	"github.com/nekolog/wellness-hub/internal/domain/notification"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON SCORE COMPUTED HANDLER
// Every fresh score, whether from a check-in or a rollover, refreshes
// the cached today-score and re-arms the next morning's notification so
// its body always carries the latest value.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreCacheWriter stores the current score for cheap reads.
type ScoreCacheWriter interface {
	SetTodayScore(ctx context.Context, score shared.Score) error
}

// ProfileNameReader reads the profile fields the notification body uses.
type ProfileNameReader interface {
	Profile(ctx context.Context) (shared.CatName, shared.Address, error)
}

// ScoreComputedConfig contains the handler configuration.
type ScoreComputedConfig struct {
	// NotificationHour is the local hour of the morning notification.
	NotificationHour int

	// NotificationMinute is the local minute of the morning notification.
	NotificationMinute int

	// ScheduleNotification controls whether the morning notification is
	// re-armed at all.
	ScheduleNotification bool
}

// DefaultScoreComputedConfig returns the default configuration.
func DefaultScoreComputedConfig() ScoreComputedConfig {
	return ScoreComputedConfig{
		NotificationHour:     notification.DefaultMorningHour,
		NotificationMinute:   0,
		ScheduleNotification: true,
	}
}

// OnScoreComputedHandler handles the score computed event.
type OnScoreComputedHandler struct {
	cache     ScoreCacheWriter
	scheduler notification.Scheduler
	profile   ProfileNameReader
	config    ScoreComputedConfig
	log       *logger.Logger
}

// NewOnScoreComputedHandler creates a new score computed handler.
func NewOnScoreComputedHandler(
	cache ScoreCacheWriter,
	scheduler notification.Scheduler,
	profile ProfileNameReader,
	config ScoreComputedConfig,
	log *logger.Logger,
) *OnScoreComputedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnScoreComputedHandler{
		cache:     cache,
		scheduler: scheduler,
		profile:   profile,
		config:    config,
		log:       log.WithComponent("on_score_computed"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnScoreComputedHandler) Handle(event shared.Event) error {
	scoreEvent, ok := event.(shared.ScoreComputedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	ctx := context.Background()

	if h.cache != nil {
		if err := h.cache.SetTodayScore(ctx, shared.Score(scoreEvent.Score)); err != nil {
			h.log.Warn("score cache write failed", logger.Err(err), logger.ScoreValue(scoreEvent.Score))
		}
	}

	if h.scheduler != nil && h.config.ScheduleNotification {
		h.rearmMorningNotification(ctx, scoreEvent.Score)
	}

	return nil
}

// rearmMorningNotification replaces the pending morning notification so
// its body carries the freshest score.
func (h *OnScoreComputedHandler) rearmMorningNotification(ctx context.Context, score int) {
	catName := shared.CatName("")
	if h.profile != nil {
		name, _, err := h.profile.Profile(ctx)
		if err != nil {
			h.log.Warn("profile read failed, using default cat name", logger.Err(err))
		} else {
			catName = name
		}
	}

	req := notification.MorningScoreRequest(
		catName.OrDefault(),
		score,
		h.config.NotificationHour,
		h.config.NotificationMinute,
	)
	if err := h.scheduler.ScheduleDaily(ctx, req); err != nil {
		h.log.Warn("morning notification scheduling failed", logger.Err(err))
		return
	}

	h.log.Debug("morning notification armed",
		logger.ScoreValue(score),
		logger.Int("hour", h.config.NotificationHour),
	)
}

// EventType returns the event type this handler subscribes to.
func (h *OnScoreComputedHandler) EventType() shared.EventType {
	return shared.EventScoreComputed
}
