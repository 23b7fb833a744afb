package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/gin-gonic/gin"
)

// Event is a single server-sent event.
type Event struct {
	Name string
	Data interface{}
}

// Manager fans out events to connected clients. Slow or gone
// subscribers have events dropped rather than blocking the broadcaster.
type Manager struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	closed      bool
}

func NewManager() *Manager {
	return &Manager{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new client. The returned cancel func must be
// called when the client disconnects.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers an event to every subscriber without blocking.
func (m *Manager) Broadcast(name string, data interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subscribers {
		select {
		case ch <- Event{Name: name, Data: data}:
		default:
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (m *Manager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Close disconnects all subscribers. Broadcast becomes a no-op.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for ch := range m.subscribers {
		delete(m.subscribers, ch)
		close(ch)
	}
}

// ServeHTTP streams events to one client over a gin context.
func (m *Manager) ServeHTTP(c *gin.Context) {
	events, cancel := m.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(ev.Data)
			if err != nil {
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, payload)
			return true
		}
	})
}
