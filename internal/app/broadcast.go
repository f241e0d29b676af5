package app

import (
	"context"
	"encoding/json"
)

// Event is the wire envelope delivered to topic subscribers.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Subscriber is the receive side of the broadcast gateway. The caller must
// invoke the returned cancel function to avoid leaks. Subscribers only see
// events published after they subscribed; clients reconcile missed state via
// a full match fetch on connect.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan Event, func(), error)
}
