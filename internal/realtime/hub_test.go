package realtime

import (
	"encoding/json"
	"testing"
)

func decodeEnvelope(t *testing.T, payload []byte) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestHub_SnapshotOnSubscribe(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.SetSnapshot(func() interface{} {
		return map[string]bool{"is_connected": true}
	})

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	select {
	case payload := <-sub.Receive():
		env := decodeEnvelope(t, payload)
		if env.Event != "status" {
			t.Fatalf("expected status snapshot first, got %q", env.Event)
		}
	default:
		t.Fatalf("expected a queued snapshot immediately after subscribe")
	}
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Broadcast("message", map[string]string{"body": "hi"})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case payload := <-sub.Receive():
			env := decodeEnvelope(t, payload)
			if env.Event != "message" {
				t.Fatalf("expected message event, got %q", env.Event)
			}
		default:
			t.Fatalf("subscriber %s did not receive the broadcast", sub.ID)
		}
	}
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.Broadcast("message", map[string]string{"body": "before"})

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	select {
	case payload := <-sub.Receive():
		env := decodeEnvelope(t, payload)
		t.Fatalf("late subscriber must not see earlier events, got %q", env.Event)
	default:
	}

	hub.Broadcast("message", map[string]string{"body": "after"})
	select {
	case <-sub.Receive():
	default:
		t.Fatalf("late subscriber should see events after subscribing")
	}
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sub := hub.Subscribe()

	// Fill the queue past capacity without draining.
	for i := 0; i < sendQueueSize+1; i++ {
		hub.Broadcast("message", i)
	}

	if got := hub.Count(); got != 0 {
		t.Fatalf("expected slow subscriber dropped, %d still registered", got)
	}

	// The queue is closed on drop; draining it terminates.
	for range sub.Receive() {
	}
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if got := hub.Count(); got != 0 {
		t.Fatalf("expected no subscribers, got %d", got)
	}

	// Broadcasting to an empty hub is fine.
	hub.Broadcast("status", nil)
}
