package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()

	events, cancel, err := broker.Subscribe(ctx, "match-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := broker.Publish(ctx, "match-1", "player-joined", map[string]string{"playerId": "bob"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// Other topics must not leak in.
	_ = broker.Publish(ctx, "match-2", "game-over", nil)

	select {
	case event := <-events:
		if event.Event != "player-joined" {
			t.Fatalf("expected player-joined, got %s", event.Event)
		}
		var payload map[string]string
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["playerId"] != "bob" {
			t.Fatalf("unexpected payload: %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}

	select {
	case event := <-events:
		t.Fatalf("unexpected event from another topic: %+v", event)
	default:
	}
}

func TestBrokerCancelClosesChannel(t *testing.T) {
	ctx := context.Background()
	broker := NewBroker()

	events, cancel, _ := broker.Subscribe(ctx, "match-1")
	cancel()
	// Cancel twice must be safe.
	cancel()

	if _, ok := <-events; ok {
		t.Fatalf("expected closed channel after cancel")
	}

	if err := broker.Publish(ctx, "match-1", "next-card", nil); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
}
