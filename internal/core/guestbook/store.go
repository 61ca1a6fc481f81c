package guestbook

import "context"

// Store persists guestbook messages. Implementations assign IDs and
// timestamps on Append and must make Append and Delete atomic per record.
type Store interface {
	// Append stores a new message built from the draft.
	Append(ctx context.Context, draft Draft) (Message, error)
	// Get returns a message by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (Message, error)
	// Delete removes a message. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
	// Tail returns the newest limit messages, oldest first.
	// A limit of 0 or less returns every message.
	Tail(ctx context.Context, limit int) ([]Message, error)
	// Close releases any resources held by the store.
	Close() error
}

// Pusher appends messages and fans them out to subscribers.
type Pusher interface {
	Push(ctx context.Context, draft Draft) (Message, error)
}

// Feed opens bounded tail subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, limit int) (Stream, error)
}
