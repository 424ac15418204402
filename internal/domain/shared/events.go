// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the daily
// wellness cycle.
const (
	// Wellness events
	EventScoreComputed EventType = "wellness.score_computed"
	EventDayRolledOver EventType = "wellness.day_rolled_over"
	EventCatchUpRan    EventType = "wellness.catch_up_ran"

	// Reward events
	EventTreatsGranted   EventType = "reward.treats_granted"
	EventTreatsSpent     EventType = "reward.treats_spent"
	EventStepGoalReached EventType = "reward.step_goal_reached"
	EventStepsUpdated    EventType = "reward.steps_updated"

	// Subscription events
	EventTrialStarted        EventType = "subscription.trial_started"
	EventTrialRenewed        EventType = "subscription.trial_renewed"
	EventSubscriptionActive  EventType = "subscription.active"
	EventSubscriptionExpired EventType = "subscription.expired"
	EventPurchaseFailed      EventType = "subscription.purchase_failed"
	EventEntitlementRestored EventType = "subscription.entitlement_restored"

	// Notification events
	EventNotificationScheduled EventType = "notification.scheduled"
	EventNotificationFailed    EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Wellness Events
// ═══════════════════════════════════════════════════════════════════════════

// ScoreComputedEvent is emitted whenever the engine produces a daily score.
type ScoreComputedEvent struct {
	BaseEvent
	Score          int    `json:"score"`
	YesterdayScore int    `json:"yesterday_score"`
	Day            string `json:"day"`
}

// Payload implements Event interface.
func (e ScoreComputedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"score":           e.Score,
		"yesterday_score": e.YesterdayScore,
		"day":             e.Day,
	}
}

// NewScoreComputedEvent creates a new ScoreComputedEvent.
func NewScoreComputedEvent(score, yesterdayScore int, day string) ScoreComputedEvent {
	return ScoreComputedEvent{
		BaseEvent:      NewBaseEvent(EventScoreComputed, day),
		Score:          score,
		YesterdayScore: yesterdayScore,
		Day:            day,
	}
}

// DayRolledOverEvent is emitted when the midnight rollover completes.
type DayRolledOverEvent struct {
	BaseEvent
	Day     string `json:"day"`
	Score   int    `json:"score"`
	CatchUp bool   `json:"catch_up"`
}

// Payload implements Event interface.
func (e DayRolledOverEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day":      e.Day,
		"score":    e.Score,
		"catch_up": e.CatchUp,
	}
}

// NewDayRolledOverEvent creates a new DayRolledOverEvent.
func NewDayRolledOverEvent(day string, score int, catchUp bool) DayRolledOverEvent {
	return DayRolledOverEvent{
		BaseEvent: NewBaseEvent(EventDayRolledOver, day),
		Day:       day,
		Score:     score,
		CatchUp:   catchUp,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// TreatsGrantedEvent is emitted when treats are credited to the balance.
type TreatsGrantedEvent struct {
	BaseEvent
	Amount  int    `json:"amount"`
	Balance int    `json:"balance"`
	Reason  string `json:"reason"`
}

// Payload implements Event interface.
func (e TreatsGrantedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":  e.Amount,
		"balance": e.Balance,
		"reason":  e.Reason,
	}
}

// NewTreatsGrantedEvent creates a new TreatsGrantedEvent.
func NewTreatsGrantedEvent(amount, balance int, reason string) TreatsGrantedEvent {
	return TreatsGrantedEvent{
		BaseEvent: NewBaseEvent(EventTreatsGranted, reason),
		Amount:    amount,
		Balance:   balance,
		Reason:    reason,
	}
}

// TreatsSpentEvent is emitted when treats are debited from the balance.
type TreatsSpentEvent struct {
	BaseEvent
	Requested int `json:"requested"`
	Debited   int `json:"debited"`
	Balance   int `json:"balance"`
}

// Payload implements Event interface.
func (e TreatsSpentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"requested": e.Requested,
		"debited":   e.Debited,
		"balance":   e.Balance,
	}
}

// NewTreatsSpentEvent creates a new TreatsSpentEvent.
func NewTreatsSpentEvent(requested, debited, balance int) TreatsSpentEvent {
	return TreatsSpentEvent{
		BaseEvent: NewBaseEvent(EventTreatsSpent, "spend"),
		Requested: requested,
		Debited:   debited,
		Balance:   balance,
	}
}

// StepGoalReachedEvent is emitted the first time the daily step goal is hit.
type StepGoalReachedEvent struct {
	BaseEvent
	Steps int    `json:"steps"`
	Goal  int    `json:"goal"`
	Day   string `json:"day"`
}

// Payload implements Event interface.
func (e StepGoalReachedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"steps": e.Steps,
		"goal":  e.Goal,
		"day":   e.Day,
	}
}

// NewStepGoalReachedEvent creates a new StepGoalReachedEvent.
func NewStepGoalReachedEvent(steps, goal int, day string) StepGoalReachedEvent {
	return StepGoalReachedEvent{
		BaseEvent: NewBaseEvent(EventStepGoalReached, day),
		Steps:     steps,
		Goal:      goal,
		Day:       day,
	}
}

// StepsUpdatedEvent is emitted when the step provider delivers a fresh count.
// Each firing carries the authoritative latest cumulative count for today.
type StepsUpdatedEvent struct {
	BaseEvent
	Steps int    `json:"steps"`
	Day   string `json:"day"`
}

// Payload implements Event interface.
func (e StepsUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"steps": e.Steps,
		"day":   e.Day,
	}
}

// NewStepsUpdatedEvent creates a new StepsUpdatedEvent.
func NewStepsUpdatedEvent(steps int, day string) StepsUpdatedEvent {
	return StepsUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStepsUpdated, day),
		Steps:     steps,
		Day:       day,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Subscription Events
// ═══════════════════════════════════════════════════════════════════════════

// SubscriptionChangedEvent is emitted on every subscription state transition.
type SubscriptionChangedEvent struct {
	BaseEvent
	TransactionID string `json:"transaction_id"`
	FromState     string `json:"from_state"`
	ToState       string `json:"to_state"`
	TreatsGranted int    `json:"treats_granted"`
	Restored      bool   `json:"restored"`
}

// Payload implements Event interface.
func (e SubscriptionChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"transaction_id": e.TransactionID,
		"from_state":     e.FromState,
		"to_state":       e.ToState,
		"treats_granted": e.TreatsGranted,
		"restored":       e.Restored,
	}
}

// NewSubscriptionChangedEvent creates a new SubscriptionChangedEvent.
func NewSubscriptionChangedEvent(eventType EventType, txnID, from, to string, granted int, restored bool) SubscriptionChangedEvent {
	return SubscriptionChangedEvent{
		BaseEvent:     NewBaseEvent(eventType, txnID),
		TransactionID: txnID,
		FromState:     from,
		ToState:       to,
		TreatsGranted: granted,
		Restored:      restored,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
	Payload     json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
