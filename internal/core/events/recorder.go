package events

import (
	"context"
	"sync"
)

// Recorder implements the Sink interface by collecting events in memory.
// Used in tests to assert on emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recording sink.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish appends the event to the record.
func (r *Recorder) Publish(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events matching the given type, in order.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
