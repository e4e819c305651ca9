package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mortarline/notify-backend/pkg/types"
)

func payload(title string) types.NotificationPayload {
	return types.NotificationPayload{Title: title, Body: "body"}
}

func TestHubDeliversToSubscriber(t *testing.T) {
	hub := NewHub(4)
	userID := uuid.New()

	events, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	hub.Publish(userID, payload("hello"))

	select {
	case got := <-events:
		if got.Title != "hello" {
			t.Fatalf("got wrong payload: %+v", got)
		}
	default:
		t.Fatal("expected buffered event")
	}
}

func TestHubScopesToUser(t *testing.T) {
	hub := NewHub(4)
	alice := uuid.New()
	bob := uuid.New()

	aliceEvents, aliceDone := hub.Subscribe(alice)
	defer aliceDone()
	bobEvents, bobDone := hub.Subscribe(bob)
	defer bobDone()

	hub.Publish(alice, payload("for alice"))

	if len(bobEvents) != 0 {
		t.Fatal("bob must not receive alice's event")
	}
	if len(aliceEvents) != 1 {
		t.Fatalf("expected 1 event for alice, got %d", len(aliceEvents))
	}
}

func TestHubFansOutToAllStreams(t *testing.T) {
	hub := NewHub(4)
	userID := uuid.New()

	first, firstDone := hub.Subscribe(userID)
	defer firstDone()
	second, secondDone := hub.Subscribe(userID)
	defer secondDone()

	hub.Publish(userID, payload("both tabs"))

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both streams to receive the event, got %d and %d", len(first), len(second))
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(1)
	userID := uuid.New()

	events, unsubscribe := hub.Subscribe(userID)
	defer unsubscribe()

	hub.Publish(userID, payload("first"))
	hub.Publish(userID, payload("dropped")) // buffer full, must not block

	if len(events) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(events))
	}
	if got := <-events; got.Title != "first" {
		t.Fatalf("expected oldest event kept, got %+v", got)
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub(4)
	userID := uuid.New()

	events, unsubscribe := hub.Subscribe(userID)
	unsubscribe()

	if count := hub.ClientCount(userID); count != 0 {
		t.Fatalf("expected 0 clients after unsubscribe, got %d", count)
	}

	// Publish after teardown must not panic or deliver.
	hub.Publish(userID, payload("late"))

	if _, ok := <-events; ok {
		t.Fatal("expected closed channel")
	}

	// Teardown is idempotent.
	unsubscribe()
}

func TestHubClientCount(t *testing.T) {
	hub := NewHub(4)
	userID := uuid.New()

	if hub.ClientCount(userID) != 0 {
		t.Fatal("expected no clients initially")
	}
	_, first := hub.Subscribe(userID)
	_, second := hub.Subscribe(userID)
	if hub.ClientCount(userID) != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount(userID))
	}
	first()
	second()
	if hub.ClientCount(userID) != 0 {
		t.Fatalf("expected 0 clients after teardown, got %d", hub.ClientCount(userID))
	}
}
