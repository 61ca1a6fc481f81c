package realtime

import (
	"slices"
	"strings"
	"sync"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// subscription is a bounded window over the newest messages. All mutating
// methods except Close must be called with db.subsMu held.
type subscription struct {
	db     *DB
	limit  int
	window []guestbook.Message // ordered by ID, oldest first

	events chan guestbook.Event
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func newSubscription(db *DB, limit, buffer int) *subscription {
	return &subscription{
		db:     db,
		limit:  limit,
		events: make(chan guestbook.Event, buffer),
		done:   make(chan struct{}),
	}
}

func (s *subscription) Events() <-chan guestbook.Event { return s.events }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscription) Close() error {
	s.db.subsMu.Lock()
	defer s.db.subsMu.Unlock()
	s.shutdown(nil)
	return nil
}

func (s *subscription) shutdown(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	delete(s.db.subs, s)
	close(s.events)
	close(s.done)
}

func (s *subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *subscription) send(kind guestbook.EventKind, msg guestbook.Message) {
	if s.isClosed() {
		return
	}
	select {
	case s.events <- guestbook.Event{Kind: kind, Message: msg}:
	default:
		s.db.log.Warn().Int("limit", s.limit).Msg("dropping slow subscriber")
		s.shutdown(ErrSlowSubscriber)
	}
}

func (s *subscription) search(id string) (int, bool) {
	return slices.BinarySearchFunc(s.window, id, func(m guestbook.Message, id string) int {
		return strings.Compare(m.ID, id)
	})
}

// add inserts msg into the window. When the window overflows, the oldest
// entry leaves it with a removed event. Messages older than a full window
// are ignored.
func (s *subscription) add(msg guestbook.Message) {
	pos, found := s.search(msg.ID)
	if found {
		return
	}
	if s.limit > 0 && len(s.window) >= s.limit && pos == 0 {
		return
	}

	s.window = slices.Insert(s.window, pos, msg)
	s.send(guestbook.EventAdded, msg)

	if s.limit > 0 && len(s.window) > s.limit {
		evicted := s.window[0]
		s.window = slices.Delete(s.window, 0, 1)
		s.send(guestbook.EventRemoved, evicted)
	}
}

// remove drops msg from the window and reports whether it was present.
func (s *subscription) remove(msg guestbook.Message) bool {
	pos, found := s.search(msg.ID)
	if !found {
		return false
	}
	s.window = slices.Delete(s.window, pos, pos+1)
	s.send(guestbook.EventRemoved, msg)
	return true
}

// backfill adds the messages of tail that now fit in the window. tail is
// oldest first and may be longer than the window limit.
func (s *subscription) backfill(tail []guestbook.Message) {
	if len(tail) > s.limit {
		tail = tail[len(tail)-s.limit:]
	}
	for i := len(tail) - 1; i >= 0 && len(s.window) < s.limit; i-- {
		s.add(tail[i])
	}
}
