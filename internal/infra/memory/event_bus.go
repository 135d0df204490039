package memory

import (
	"context"
	"sync"

	"math-maxxer-service/internal/domain"
)

// EventBus fans events out to in-process subscribers keyed by user id.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string]map[chan domain.Event]struct{})}
}

func (b *EventBus) Publish(_ context.Context, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers[event.UserID] {
		deliver(ch, event)
	}
	return nil
}

// Subscribe returns a channel of events for userID. The caller must invoke the
// returned cancel function to avoid leaks.
func (b *EventBus) Subscribe(_ context.Context, userID string) (<-chan domain.Event, func(), error) {
	ch := make(chan domain.Event, 16)

	b.mu.Lock()
	if b.subscribers[userID] == nil {
		b.subscribers[userID] = make(map[chan domain.Event]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[userID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, userID)
		}
	}
	return ch, cancel, nil
}

// deliver never blocks: a full buffer loses its oldest event.
func deliver(ch chan domain.Event, event domain.Event) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}
