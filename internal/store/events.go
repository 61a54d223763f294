package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/escrowbook/internal/domain"
)

// EventLog is a thread-safe, append-only log of ledger events. The
// engine appends inside its critical sections, so the log order is
// the operation order.
type EventLog struct {
	mu       sync.RWMutex
	events   []domain.Event
	notifier func(domain.Event)
}

// NewEventLog creates an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// SetNotifier registers a callback invoked asynchronously for each
// appended event. Set once at wiring time, before any append.
func (l *EventLog) SetNotifier(fn func(domain.Event)) {
	l.notifier = fn
}

// Append records an event with a fresh id and timestamp and returns
// it. The notifier, if any, runs in its own goroutine so appends
// never block on slow subscribers.
func (l *EventLog) Append(eventType domain.EventType, payload any) domain.Event {
	ev := domain.Event{
		EventID:   uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()

	if l.notifier != nil {
		go l.notifier(ev)
	}
	return ev
}

// List returns events in append order. If eventType is non-nil, only
// events of that type are included.
func (l *EventLog) List(eventType *domain.EventType) []domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Event, 0, len(l.events))
	for _, ev := range l.events {
		if eventType != nil && ev.Type != *eventType {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.events)
}
