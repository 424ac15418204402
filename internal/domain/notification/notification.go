// Package notification defines the local notification model. NekoLog
// schedules device-local notifications only; there is no push backend,
// so the domain is a small identifier-keyed request plus a scheduler
// port the infrastructure layer implements.
package notification

import (
	"context"
	"fmt"
)

// Identifiers for the recurring notifications the engine manages.
// Scheduling under an existing identifier replaces the pending request,
// so re-running a scheduling path never stacks duplicates.
const (
	IdentifierMorningScore   = "nekolog.morning_score"
	IdentifierGoalCelebrated = "nekolog.goal_celebrated"
)

// DefaultMorningHour is the local hour of the daily score notification.
const DefaultMorningHour = 5

// Request is a local notification to be delivered at a fixed local
// time of day. Hour and Minute are wall-clock values in the engine's
// home zone.
type Request struct {
	Identifier string
	Title      string
	Body       string
	Hour       int
	Minute     int
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if r.Identifier == "" {
		return fmt.Errorf("notification: identifier is required")
	}
	if r.Hour < 0 || r.Hour > 23 {
		return fmt.Errorf("notification: hour must be 0-23, got %d", r.Hour)
	}
	if r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("notification: minute must be 0-59, got %d", r.Minute)
	}
	return nil
}

// MorningScoreRequest builds the daily morning notification carrying
// the cat's name and the freshly computed score.
func MorningScoreRequest(catName string, score int, hour, minute int) Request {
	return Request{
		Identifier: IdentifierMorningScore,
		Title:      fmt.Sprintf("%sからのおしらせ", catName),
		Body:       fmt.Sprintf("きょうの元気スコアは %d だよ", score),
		Hour:       hour,
		Minute:     minute,
	}
}

// Scheduler delivers local notifications. Scheduling with an identifier
// that already has a pending request replaces it.
type Scheduler interface {
	// ScheduleDaily arms a repeating notification at the request's
	// local time of day.
	ScheduleDaily(ctx context.Context, req Request) error

	// Cancel removes the pending request with the given identifier.
	// Cancelling an unknown identifier is a no-op.
	Cancel(ctx context.Context, identifier string) error
}
