package redis

import (
	"context"
	"encoding/json"
	"log"

	"flashduel-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// Gateway is the broadcast gateway over Redis pub/sub. Events are published
// to the per-match channel and delivered at-least-once to every connected
// instance; subscribers miss anything published before they subscribed, so
// clients reconcile via a full match fetch on connect.
type Gateway struct {
	client *redis.Client
}

var (
	_ app.Broadcaster = (*Gateway)(nil)
	_ app.Subscriber  = (*Gateway)(nil)
)

func NewGateway(client *redis.Client) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) Publish(ctx context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(app.Event{Event: event, Payload: data})
	if err != nil {
		return err
	}
	return g.client.Publish(ctx, topic, envelope).Err()
}

func (g *Gateway) Subscribe(ctx context.Context, topic string) (<-chan app.Event, func(), error) {
	pubsub := g.client.Subscribe(ctx, topic)
	// Wait for the subscription to be confirmed so the caller cannot race
	// ahead and publish into the void.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan app.Event, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event app.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("gateway: drop malformed event on %s: %v", topic, err)
				continue
			}
			out <- event
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return out, cancel, nil
}
