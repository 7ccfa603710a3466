package event

import (
	"context"
	"sync"
	"time"
)

// Type is the routing key of an event.
type Type string

const (
	TypeTestCreated      Type = "test.created"
	TypeAttemptSubmitted Type = "attempt.submitted"
)

// Event is published whenever a test or attempt record is written.
type Event struct {
	Type      Type      `json:"event_type"`
	DeviceID  string    `json:"device_id,omitempty"`
	TestID    string    `json:"test_id"`
	AttemptID string    `json:"attempt_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
	Close() error
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
