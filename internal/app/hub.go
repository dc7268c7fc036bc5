package app

import (
	"sync"
	"time"

	"github.com/ayusman/acecoach/internal/gesture"
)

// EventType identifies what an Event reports.
type EventType string

const (
	EventStatus   EventType = "status"
	EventGesture  EventType = "gesture"
	EventProgress EventType = "progress"
	EventSession  EventType = "session"
	EventError    EventType = "error"
)

// Event is published on the Hub whenever the controller changes state or
// makes progress.
type Event struct {
	Type      EventType      `json:"type"`
	Status    Status         `json:"status,omitempty"`
	Gesture   *gesture.State `json:"gesture,omitempty"`
	Progress  float64        `json:"progress,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Time      time.Time      `json:"time"`
}

// Hub provides pub/sub for controller events.
// Slow subscribers miss events rather than blocking the publisher.
type Hub struct {
	subscribers map[*subscription]bool
	mu          sync.RWMutex
}

type subscription struct {
	channel chan Event
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscription]bool),
	}
}

// Subscribe returns a channel that receives events and an unsubscribe
// function. The channel is closed on unsubscribe or Close.
func (h *Hub) Subscribe(bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = 16
	}

	ch := make(chan Event, bufferSize)
	sub := &subscription{channel: ch}

	h.mu.Lock()
	h.subscribers[sub] = true
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[sub]; ok {
			delete(h.subscribers, sub)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// Publish sends ev to every subscriber. A zero Time is set to now.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.channel <- ev:
		default:
			// Channel full, skip this event
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close unsubscribes all subscribers and closes their channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		close(sub.channel)
		delete(h.subscribers, sub)
	}
}
