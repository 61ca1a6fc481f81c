package guestbook

import (
	"context"
	"fmt"
)

// EventKind is the kind of change a subscription reports.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventChanged EventKind = "changed"
	EventRemoved EventKind = "removed"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventAdded, EventChanged, EventRemoved:
		return true
	default:
		return false
	}
}

// Event is a single change notification. For removals Message carries the
// last known value of the record.
type Event struct {
	Kind    EventKind `json:"kind"`
	Message Message   `json:"message"`
}

// Stream is an open subscription. Events is closed when the stream ends;
// Err then reports why, or nil after a regular Close.
type Stream interface {
	Events() <-chan Event
	Err() error
	Close() error
}

// Listener is the set of callbacks a subscriber can register. Nil callbacks
// are skipped.
type Listener struct {
	OnAdded   func(Message)
	OnChanged func(Message)
	OnRemoved func(Message)
}

// Listen dispatches events from the stream to the listener until the stream
// ends or ctx is cancelled. The stream is closed on return.
func Listen(ctx context.Context, stream Stream, l Listener) error {
	defer stream.Close() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-stream.Events():
			if !ok {
				return stream.Err()
			}
			if err := l.Dispatch(evt); err != nil {
				return err
			}
		}
	}
}

// Dispatch calls the callback registered for the kind of evt.
func (l Listener) Dispatch(evt Event) error {
	var fn func(Message)
	switch evt.Kind {
	case EventAdded:
		fn = l.OnAdded
	case EventChanged:
		fn = l.OnChanged
	case EventRemoved:
		fn = l.OnRemoved
	default:
		return fmt.Errorf("unknown event kind %q", evt.Kind)
	}
	if fn != nil {
		fn(evt.Message)
	}
	return nil
}
