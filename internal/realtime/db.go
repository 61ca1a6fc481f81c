// Package realtime layers change notification and creation triggers over a
// guestbook.Store.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

var (
	// ErrClosed is returned by operations on a closed DB, and reported by
	// streams that were open when the DB closed.
	ErrClosed = errors.New("realtime: database closed")
	// ErrSlowSubscriber ends a stream whose buffer filled up.
	ErrSlowSubscriber = errors.New("realtime: subscriber fell behind")
)

const defaultBuffer = 64

// Option configures a DB.
type Option func(*DB)

// WithBuffer sets how many live events a subscription may queue before it
// is dropped.
func WithBuffer(n int) Option {
	return func(d *DB) {
		if n > 0 {
			d.buffer = n
		}
	}
}

// WithClock sets the clock used to stamp trigger invocations.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// DB wraps a store with ordered fan-out to subscribers and creation
// triggers. Writes are serialized so every subscriber observes the same
// order of events.
type DB struct {
	store  guestbook.Store
	log    zerolog.Logger
	buffer int
	now    func() time.Time

	// writeMu serializes Push, Remove, Subscribe and Close.
	writeMu  sync.Mutex
	closed   bool
	triggers []TriggerFunc

	// subsMu guards subs and every send to a subscription channel.
	subsMu sync.Mutex
	subs   map[*subscription]struct{}

	inflight sync.WaitGroup
}

// New creates a DB over store. The DB does not take ownership of the store.
func New(store guestbook.Store, log zerolog.Logger, opts ...Option) *DB {
	d := &DB{
		store:  store,
		log:    log,
		buffer: defaultBuffer,
		now:    time.Now,
		subs:   make(map[*subscription]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push validates and appends a message, notifies subscribers, then fires the
// creation triggers.
func (d *DB) Push(ctx context.Context, draft guestbook.Draft) (guestbook.Message, error) {
	if err := draft.Validate(); err != nil {
		return guestbook.Message{}, err
	}

	d.writeMu.Lock()
	if d.closed {
		d.writeMu.Unlock()
		return guestbook.Message{}, ErrClosed
	}

	msg, err := d.store.Append(ctx, draft)
	if err != nil {
		d.writeMu.Unlock()
		return guestbook.Message{}, fmt.Errorf("push: %w", err)
	}

	d.subsMu.Lock()
	for sub := range d.subs {
		sub.add(msg)
	}
	d.subsMu.Unlock()

	triggers := d.triggers
	d.inflight.Add(len(triggers))
	d.writeMu.Unlock()

	d.log.Debug().Str("id", msg.ID).Str("name", msg.Name).Msg("message pushed")

	for _, fn := range triggers {
		go d.invoke(fn, msg.ID)
	}
	return msg, nil
}

// Remove deletes a message and notifies subscribers. Bounded subscriptions
// that lose an entry are refilled with the next older message. Remove keeps
// working after Close so that draining triggers can finish.
func (d *DB) Remove(ctx context.Context, id string) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	msg, err := d.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	if err := d.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}

	d.subsMu.Lock()
	var shrunk []*subscription
	for sub := range d.subs {
		if sub.remove(msg) && sub.limit > 0 {
			shrunk = append(shrunk, sub)
		}
	}
	d.subsMu.Unlock()

	d.log.Debug().Str("id", id).Msg("message removed")

	if len(shrunk) == 0 {
		return nil
	}

	widest := lo.MaxBy(shrunk, func(a, b *subscription) bool { return a.limit > b.limit })
	tail, err := d.store.Tail(ctx, widest.limit)
	if err != nil {
		// The removal itself succeeded; windows stay short until the next push.
		d.log.Warn().Err(err).Msg("backfill subscriptions")
		return nil
	}

	d.subsMu.Lock()
	for _, sub := range shrunk {
		sub.backfill(tail)
	}
	d.subsMu.Unlock()
	return nil
}

// Get returns a single message from the underlying store.
func (d *DB) Get(ctx context.Context, id string) (guestbook.Message, error) {
	return d.store.Get(ctx, id)
}

// Tail returns the newest limit messages, oldest first.
func (d *DB) Tail(ctx context.Context, limit int) ([]guestbook.Message, error) {
	return d.store.Tail(ctx, limit)
}

// Subscribe opens a tail feed of at most limit messages (all messages when
// limit <= 0). The current tail is replayed as added events before any live
// event. The stream closes when ctx is done or Close is called.
func (d *DB) Subscribe(ctx context.Context, limit int) (guestbook.Stream, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}

	tail, err := d.store.Tail(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	sub := newSubscription(d, limit, len(tail)+d.buffer)
	for _, msg := range tail {
		sub.add(msg)
	}

	d.subsMu.Lock()
	d.subs[sub] = struct{}{}
	d.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Close ends every open subscription with ErrClosed and waits for running
// trigger invocations to finish, or for ctx to be done.
func (d *DB) Close(ctx context.Context) error {
	d.writeMu.Lock()
	d.closed = true
	d.writeMu.Unlock()

	d.subsMu.Lock()
	for sub := range d.subs {
		sub.shutdown(ErrClosed)
	}
	d.subsMu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for triggers: %w", ctx.Err())
	}
}
