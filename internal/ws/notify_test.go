package ws

import (
	"testing"

	"github.com/google/uuid"
)

func TestCounters_GetOrCreate(t *testing.T) {
	store := newFakeStore()
	c := NewCounters(notifStore{store})
	roomID := uuid.New()

	n, err := c.GetOrCreate("bob", roomID, 1)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if n.UnreadMessages != 1 {
		t.Errorf("UnreadMessages = %d, want 1", n.UnreadMessages)
	}

	// Second call returns the existing counter untouched.
	again, err := c.GetOrCreate("bob", roomID, 5)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if again.UnreadMessages != 1 {
		t.Errorf("UnreadMessages = %d, want 1 (existing value kept)", again.UnreadMessages)
	}
}

func TestCounters_Increment(t *testing.T) {
	store := newFakeStore()
	c := NewCounters(notifStore{store})
	roomID := uuid.New()

	// Increment on an absent counter starts from 1.
	n, err := c.Increment("bob", roomID)
	if err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if n.UnreadMessages != 1 {
		t.Errorf("UnreadMessages = %d, want 1", n.UnreadMessages)
	}

	for i := 0; i < 3; i++ {
		if n, err = c.Increment("bob", roomID); err != nil {
			t.Fatalf("Increment() error = %v", err)
		}
	}
	if n.UnreadMessages != 4 {
		t.Errorf("UnreadMessages = %d, want 4", n.UnreadMessages)
	}
}

func TestCounters_Reset(t *testing.T) {
	store := newFakeStore()
	c := NewCounters(notifStore{store})
	roomID := uuid.New()

	if _, err := c.Increment("bob", roomID); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	n, err := c.Reset("bob", roomID, 0)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if n.UnreadMessages != 0 {
		t.Errorf("UnreadMessages = %d, want 0", n.UnreadMessages)
	}

	// Reset on an absent counter seeds it with the given value.
	otherRoom := uuid.New()
	n, err = c.Reset("bob", otherRoom, 7)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if n.UnreadMessages != 7 {
		t.Errorf("UnreadMessages = %d, want 7", n.UnreadMessages)
	}
}

func TestCounters_IndependentPerRoom(t *testing.T) {
	store := newFakeStore()
	c := NewCounters(notifStore{store})
	roomA := uuid.New()
	roomB := uuid.New()

	if _, err := c.Increment("bob", roomA); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	n, err := c.GetOrCreate("bob", roomB, 0)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if n.UnreadMessages != 0 {
		t.Errorf("counter leaked across rooms: UnreadMessages = %d, want 0", n.UnreadMessages)
	}
}
