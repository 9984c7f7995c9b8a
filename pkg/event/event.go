// Package event provides a minimal in-process publish/subscribe bus.
//
// The job engine publishes progress snapshots and job lifecycle events here
// so that interested parties (API push channels, the CLI progress printer,
// metrics) can observe transitions without coupling to the scheduler.
// Handlers run asynchronously; publishing never blocks the engine.
package event

import (
	"context"
	"sync"
)

// Handler processes a published event. Handlers run on their own goroutine;
// they must be safe for concurrent invocation.
type Handler func(ctx context.Context, data any)

// Well-known event names published by the job engine.
const (
	// JobProgress carries an engine.Snapshot after every item transition.
	JobProgress = "job.progress"

	// JobStateChanged carries an engine.Snapshot when the job-level state
	// moves (started, paused, resumed, cancelled, terminal).
	JobStateChanged = "job.state_changed"
)

// Manager is a concurrency-safe event bus.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewManager creates an empty event bus.
func NewManager() *Manager {
	return &Manager{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the named event.
func (m *Manager) Subscribe(name string, handler Handler) {
	if handler == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = append(m.handlers[name], handler)
}

// Publish dispatches the event to all subscribed handlers asynchronously.
// Publishing to an event with no subscribers is a no-op.
func (m *Manager) Publish(ctx context.Context, name string, data any) {
	m.mu.RLock()
	handlers := m.handlers[name]
	m.mu.RUnlock()

	for _, h := range handlers {
		go h(ctx, data)
	}
}

// SubscriberCount returns the number of handlers registered for an event.
func (m *Manager) SubscriberCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[name])
}
