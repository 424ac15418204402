// Package service contains infrastructure adapters behind domain ports.
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nekolog/wellness-hub/internal/domain/notification"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// IDGenerator produces unique identifiers for ad-hoc notifications.
type IDGenerator struct{}

// NewIDGenerator creates an ID generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GenerateID returns a new unique identifier.
func (g *IDGenerator) GenerateID() string {
	return uuid.New().String()
}

// LocalNotificationScheduler implements notification.Scheduler against
// the device notification bridge. Pending requests are keyed by
// identifier: scheduling under an existing identifier replaces the
// pending one, so the daily rescheduling paths never stack duplicates.
type LocalNotificationScheduler struct {
	mu      sync.Mutex
	pending map[string]notification.Request
	log     *logger.Logger
}

// NewLocalNotificationScheduler creates a scheduler.
func NewLocalNotificationScheduler(log *logger.Logger) *LocalNotificationScheduler {
	if log == nil {
		log = logger.Default()
	}
	return &LocalNotificationScheduler{
		pending: make(map[string]notification.Request),
		log:     log.WithComponent("notification_scheduler"),
	}
}

// ScheduleDaily implements notification.Scheduler.
func (s *LocalNotificationScheduler) ScheduleDaily(ctx context.Context, req notification.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	_, replaced := s.pending[req.Identifier]
	s.pending[req.Identifier] = req
	s.mu.Unlock()

	s.log.Info("notification scheduled",
		logger.String("identifier", req.Identifier),
		logger.Int("hour", req.Hour),
		logger.Int("minute", req.Minute),
		logger.Bool("replaced", replaced),
	)
	return nil
}

// Cancel implements notification.Scheduler.
func (s *LocalNotificationScheduler) Cancel(ctx context.Context, identifier string) error {
	s.mu.Lock()
	_, existed := s.pending[identifier]
	delete(s.pending, identifier)
	s.mu.Unlock()

	if existed {
		s.log.Info("notification cancelled", logger.String("identifier", identifier))
	}
	return nil
}

// Pending returns the request scheduled under identifier, if any.
func (s *LocalNotificationScheduler) Pending(identifier string) (notification.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[identifier]
	return req, ok
}

// PendingCount returns the number of pending requests.
func (s *LocalNotificationScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
