// pkg/event/event_test.go

package event

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docugen/docugen/pkg/engine"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewManager()
	var received int32

	bus.Subscribe(JobProgress, func(ctx context.Context, data any) {
		if snap, ok := data.(engine.Snapshot); ok && snap.JobID == "job-1" {
			atomic.AddInt32(&received, 1)
		}
	})

	ctx := context.Background()
	bus.Publish(ctx, JobProgress, engine.Snapshot{JobID: "job-1", Total: 5, Completed: 2})

	// Allow some time for the async handler to execute
	time.Sleep(100 * time.Millisecond)

	if received != 1 {
		t.Errorf("handler should have been called once, got %d", received)
	}
}

func TestBus_MultipleHandlers(t *testing.T) {
	bus := NewManager()
	var count int32

	bus.Subscribe(JobStateChanged, func(ctx context.Context, data any) {
		atomic.AddInt32(&count, 1)
	})
	bus.Subscribe(JobStateChanged, func(ctx context.Context, data any) {
		atomic.AddInt32(&count, 1)
	})

	if bus.SubscriberCount(JobStateChanged) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", bus.SubscriberCount(JobStateChanged))
	}

	ctx := context.Background()
	bus.Publish(ctx, JobStateChanged, engine.Snapshot{JobID: "job-1", StateLabel: "running"})

	// Allow some time for the async handlers to execute
	time.Sleep(100 * time.Millisecond)

	if count != 2 {
		t.Errorf("both handlers should have been called, got %d", count)
	}
}

func TestBus_HandlersAreScopedToTheirEvent(t *testing.T) {
	bus := NewManager()
	var progress, state int32

	bus.Subscribe(JobProgress, func(ctx context.Context, data any) {
		atomic.AddInt32(&progress, 1)
	})
	bus.Subscribe(JobStateChanged, func(ctx context.Context, data any) {
		atomic.AddInt32(&state, 1)
	})

	ctx := context.Background()
	bus.Publish(ctx, JobProgress, engine.Snapshot{JobID: "job-1"})

	time.Sleep(100 * time.Millisecond)

	if progress != 1 {
		t.Errorf("progress handler should have been called once, got %d", progress)
	}
	if state != 0 {
		t.Errorf("state handler should not have been called, got %d", state)
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewManager()

	// Publishing with no subscribers must not panic or block
	ctx := context.Background()
	bus.Publish(ctx, JobProgress, engine.Snapshot{JobID: "job-1"})

	if bus.SubscriberCount(JobProgress) != 0 {
		t.Errorf("expected no subscribers")
	}
}

func TestBus_NilHandlerIgnored(t *testing.T) {
	bus := NewManager()
	bus.Subscribe(JobProgress, nil)

	if bus.SubscriberCount(JobProgress) != 0 {
		t.Errorf("nil handler should not be registered")
	}
}

func TestBus_ConcurrentAccess(t *testing.T) {
	bus := NewManager()
	var count int32

	bus.Subscribe(JobProgress, func(ctx context.Context, data any) {
		atomic.AddInt32(&count, 1)
	})

	ctx := context.Background()
	for i := range 100 {
		go bus.Publish(ctx, JobProgress, engine.Snapshot{JobID: "job-1", Completed: i})
	}

	// Allow some time for the async handlers to execute
	time.Sleep(500 * time.Millisecond)

	if count != 100 {
		t.Errorf("all handlers should have been called, got %d", count)
	}
}
