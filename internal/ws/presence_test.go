package ws

import (
	"sync"
	"testing"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 256)}
}

func TestPresence_AddAndLookup(t *testing.T) {
	p := NewPresence()
	c := newTestClient()

	p.Add("alice", c)

	if got, ok := p.Get("alice"); !ok || got != c {
		t.Error("Get() did not return registered client")
	}
	if name, ok := p.Username(c); !ok || name != "alice" {
		t.Errorf("Username() = %q, want alice", name)
	}
}

func TestPresence_ReconnectOverwrites(t *testing.T) {
	p := NewPresence()
	first := newTestClient()
	second := newTestClient()

	p.Add("alice", first)
	p.Add("alice", second)

	if got, _ := p.Get("alice"); got != second {
		t.Error("Get() should return the most recent connection")
	}
	if _, ok := p.Username(first); ok {
		t.Error("old connection should no longer be registered")
	}

	// Removing the stale connection must not evict the new one.
	p.Remove(first)
	if _, ok := p.Get("alice"); !ok {
		t.Error("removing a stale connection evicted the live one")
	}
}

func TestPresence_RemoveUnknown_NoOp(t *testing.T) {
	p := NewPresence()
	if name := p.Remove(newTestClient()); name != "" {
		t.Errorf("Remove() unknown client = %q, want empty", name)
	}
}

func TestPresence_NetEffect(t *testing.T) {
	p := NewPresence()
	c := newTestClient()

	p.Add("alice", c)
	p.Remove(c)

	for _, name := range p.Online() {
		if name == "alice" {
			t.Error("Online() still lists a disconnected user")
		}
	}
}

func TestPresence_Concurrent(t *testing.T) {
	p := NewPresence()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient()
			p.Add("user", c)
			p.Remove(c)
		}()
	}
	wg.Wait()

	// Every goroutine removed its own connection, so at most the
	// last-written mapping may survive, never a removed handle.
	if c, ok := p.Get("user"); ok {
		if name, ok2 := p.Username(c); !ok2 || name != "user" {
			t.Error("Get() returned a handle without a consistent reverse mapping")
		}
	}
}
