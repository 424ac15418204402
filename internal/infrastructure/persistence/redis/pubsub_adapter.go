package redis

import (
	"context"

	"github.com/nekolog/wellness-hub/internal/infrastructure/messaging"
)

// EventBusAdapter bridges the Cache's pub/sub operations to the
// messaging.RedisClient interface so the distributed event bus can run
// on the same connection pool as the caches.
type EventBusAdapter struct {
	cache *Cache
}

// NewEventBusAdapter creates an adapter over an existing cache client.
func NewEventBusAdapter(cache *Cache) *EventBusAdapter {
	return &EventBusAdapter{cache: cache}
}

// Publish implements messaging.RedisClient.
func (a *EventBusAdapter) Publish(ctx context.Context, channel string, message interface{}) error {
	return a.cache.Publish(ctx, channel, message)
}

// Subscribe implements messaging.RedisClient. The returned channel is
// closed when ctx is cancelled or the underlying subscription ends.
func (a *EventBusAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	pubsub := a.cache.Subscribe(ctx, channels...)

	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				out <- messaging.RedisMessage{
					Channel: msg.Channel,
					Payload: msg.Payload,
				}
			}
		}
	}()

	return out, nil
}

// Close implements messaging.RedisClient. The cache owns the underlying
// client, so this is a no-op; subscriptions end via context cancellation.
func (a *EventBusAdapter) Close() error {
	return nil
}
