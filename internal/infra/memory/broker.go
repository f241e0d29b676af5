package memory

import (
	"context"
	"encoding/json"
	"sync"

	"flashduel-service/internal/app"
)

// Broker is an in-process pub/sub for match events, keyed by topic. It backs
// single-node deployments and tests; multi-node deployments use the Redis
// gateway instead.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan app.Event]struct{}
}

var (
	_ app.Broadcaster = (*Broker)(nil)
	_ app.Subscriber  = (*Broker)(nil)
)

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan app.Event]struct{})}
}

// Publish sends an event to all subscribers of the topic. Slow subscribers
// are skipped rather than blocking the publisher.
func (b *Broker) Publish(_ context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := app.Event{Event: event, Payload: data}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel receiving events for the topic. The cancel
// function must be called to release the subscription.
func (b *Broker) Subscribe(_ context.Context, topic string) (<-chan app.Event, func(), error) {
	ch := make(chan app.Event, 16)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan app.Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[topic][ch]; ok {
			delete(b.subs[topic], ch)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel, nil
}
