package service

import (
	"sync"
	"time"
)

// SessionTopic is the topic every session event is published on.
const SessionTopic = "session"

const (
	EventLog      = "log"
	EventStatus   = "status"
	EventReady    = "ready"
	EventDownload = "download"
	EventSelected = "selected"
	EventIdle     = "idle"
)

type Event struct {
	Type     string `json:"type"`
	Seq      int64  `json:"seq,omitempty"`
	Status   string `json:"status,omitempty"`
	Message  string `json:"message,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// EventPublisher fans an event out and reports how many subscribers
// received it.
type EventPublisher interface {
	Publish(topic string, event Event) int
}

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
	buffer      int
	// wait bounds how long a non-log event waits for room in a full buffer.
	wait time.Duration
}

type BusOption func(*EventBus)

// WithDeliveryWait sets how long status, ready, download and other non-log
// events wait for a slow subscriber before it is skipped.
func WithDeliveryWait(d time.Duration) BusOption {
	return func(eb *EventBus) {
		eb.wait = d
	}
}

func NewEventBus(opts ...BusOption) *EventBus {
	eb := &EventBus{
		subscribers: make(map[string][]chan Event),
		buffer:      256,
		wait:        2 * time.Second,
	}
	for _, opt := range opts {
		opt(eb)
	}
	return eb
}

func (eb *EventBus) Subscribe(topic string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, eb.buffer)
	eb.subscribers[topic] = append(eb.subscribers[topic], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(topic string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[topic]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[topic]) == 0 {
		delete(eb.subscribers, topic)
	}
}

// Publish delivers event to every subscriber of topic and returns how many
// received it. Log events are dropped for a subscriber whose buffer is full;
// the stream handler refills the gap from the transcript. Every other event
// waits up to the delivery wait for room.
func (eb *EventBus) Publish(topic string, event Event) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	delivered := 0
	for _, ch := range eb.subscribers[topic] {
		select {
		case ch <- event:
			delivered++
			continue
		default:
		}
		if event.Type == EventLog || eb.wait <= 0 {
			continue
		}

		timer := time.NewTimer(eb.wait)
		select {
		case ch <- event:
			delivered++
		case <-timer.C:
		}
		timer.Stop()
	}
	return delivered
}

func (eb *EventBus) SubscriberCount(topic string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[topic])
}

var _ EventPublisher = (*EventBus)(nil)
