package stream

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	first := hub.Subscribe(ctx)
	second := hub.Subscribe(ctx)

	id := uuid.New()
	hub.Publish(Event{Kind: Created, AppointmentID: id})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case evt := <-ch:
			if evt.AppointmentID != id || evt.Kind != Created {
				t.Fatalf("unexpected event: %+v", evt)
			}
			if evt.Timestamp.IsZero() {
				t.Fatal("expected timestamp to be set")
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancel()
	waitClosed(t, first)
	waitClosed(t, second)
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("expected no subscribers after cancel, got %d", n)
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)

	hub.Publish(Event{Kind: Created, AppointmentID: uuid.New()})
	hub.Publish(Event{Kind: Deleted, AppointmentID: uuid.New()})

	evt := <-ch
	if evt.Kind != Created {
		t.Fatalf("expected first event to be kept, got %s", evt.Kind)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected overflow to be dropped, got %+v", extra)
	default:
	}

	cancel()
	waitClosed(t, ch)
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := hub.Subscribe(ctx)

	hub.Close()
	waitClosed(t, ch)

	late := hub.Subscribe(ctx)
	waitClosed(t, late)
	hub.Close()

	// ctx is still live: subscriber goroutines must exit on Close alone.
	goleak.VerifyNone(t)
}

func TestEventOmitsZeroReferences(t *testing.T) {
	evt := Event{Kind: Deleted, AppointmentID: uuid.New(), Timestamp: time.Now().UTC()}
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"doctor_id", "user_id", "room_id", "starts_at"} {
		if strings.Contains(string(raw), key) {
			t.Fatalf("expected %s to be omitted: %s", key, raw)
		}
	}
	if !strings.Contains(string(raw), "appointment_id") {
		t.Fatalf("appointment_id missing: %s", raw)
	}
}

func waitClosed(t *testing.T, ch <-chan Event) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed")
		}
	}
}
