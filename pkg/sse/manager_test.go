package sse

import (
	"testing"
	"time"
)

func TestBroadcastReachesSubscriber(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Subscribe()
	defer cancel()

	m.Broadcast("new_email", map[string]string{"id": "1"})

	select {
	case ev := <-events:
		if ev.Name != "new_email" {
			t.Errorf("event name = %q", ev.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcastAfterUnsubscribe(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Subscribe()
	cancel()

	// Channel is closed on cancel; broadcast must not panic.
	m.Broadcast("new_email", nil)

	if _, ok := <-events; ok {
		t.Error("expected closed channel after cancel")
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	m := NewManager()
	defer m.Close()

	events, cancel := m.Subscribe()
	defer cancel()

	// Fill the buffer well past capacity; Broadcast must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.Broadcast("new_email", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a slow subscriber")
	}

	// Drain what was buffered; there should be at most the buffer size.
	count := 0
	for {
		select {
		case <-events:
			count++
		default:
			if count == 0 || count > 16 {
				t.Errorf("buffered events = %d, want 1..16", count)
			}
			return
		}
	}
}

func TestCancelIdempotent(t *testing.T) {
	m := NewManager()
	defer m.Close()

	_, cancel := m.Subscribe()
	cancel()
	cancel() // must not panic
}

func TestClientCount(t *testing.T) {
	m := NewManager()
	defer m.Close()

	if got := m.ClientCount(); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	_, cancel1 := m.Subscribe()
	_, cancel2 := m.Subscribe()
	if got := m.ClientCount(); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
	cancel1()
	cancel2()
	if got := m.ClientCount(); got != 0 {
		t.Errorf("count = %d, want 0 after cancels", got)
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	m := NewManager()
	m.Close()

	events, cancel := m.Subscribe()
	defer cancel()
	if _, ok := <-events; ok {
		t.Error("subscription after Close should be immediately closed")
	}
	m.Broadcast("x", nil) // no-op, must not panic
}
