package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"math-maxxer-service/internal/domain"
)

// EventBus routes user events through Redis pub/sub so any instance holding the
// user's socket receives them.
type EventBus struct {
	client *redis.Client
}

func NewEventBus(client *redis.Client) *EventBus {
	return &EventBus{client: client}
}

func (b *EventBus) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channel(event.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe returns the user's event stream. The caller must invoke the returned
// cancel function to release the subscription.
func (b *EventBus) Subscribe(ctx context.Context, userID string) (<-chan domain.Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, channel(userID))
	// wait for the server to confirm so no event published after return is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", userID, err)
	}

	out := make(chan domain.Event, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("drop malformed event on %s: %v", msg.Channel, err)
				continue
			}
			select {
			case out <- event:
			default:
				log.Printf("subscriber for %s is slow, dropping %s", userID, event.Type)
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}

func channel(userID string) string {
	return "mathmaxxer:user:" + userID
}
