// Copyright 2026 Docugen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package output

import "sync"

// OutputSubscriber consumes output events from the stream. Subscribers
// decide per event whether they care (ShouldHandle) and cannot propagate
// errors back into business logic.
type OutputSubscriber interface {
	// Name returns a stable identifier for logging and deduplication.
	Name() string

	// ShouldHandle decides if this subscriber cares about the event.
	ShouldHandle(event OutputEvent) bool

	// Handle processes the event. Called synchronously on the emitter's
	// goroutine; keep it fast.
	Handle(event OutputEvent)
}

// OutputEventStream fans output events out to registered subscribers.
// Safe for concurrent emitters.
type OutputEventStream struct {
	mu          sync.RWMutex
	subscribers []OutputSubscriber
}

// NewOutputEventStream creates an empty stream.
func NewOutputEventStream() *OutputEventStream {
	return &OutputEventStream{}
}

// Subscribe registers a subscriber for all future events.
func (s *OutputEventStream) Subscribe(sub OutputSubscriber) {
	if sub == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, sub)
}

// Emit delivers the event to every subscriber that wants it, in
// subscription order.
func (s *OutputEventStream) Emit(event OutputEvent) {
	s.mu.RLock()
	subs := s.subscribers
	s.mu.RUnlock()

	for _, sub := range subs {
		if sub.ShouldHandle(event) {
			sub.Handle(event)
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (s *OutputEventStream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
