package notify

import (
	"context"
	"sync"
)

// Recorder captures published events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []RecordedEvent
}

type RecordedEvent struct {
	AccountID string
	Event     Event
}

func (r *Recorder) Publish(ctx context.Context, accountID string, event Event) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{AccountID: accountID, Event: event})
}

func (r *Recorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}
