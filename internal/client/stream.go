package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// Subscribe opens the server's websocket tail feed. The stream ends when ctx
// is done, Close is called, or the server closes the feed.
func (c *Client) Subscribe(ctx context.Context, limit int) (guestbook.Stream, error) {
	u := c.endpoint("api/feed", max(limit, 0))
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close() //nolint:errcheck
			return nil, fmt.Errorf("subscribe: %w", readAPIError(resp))
		}
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	s := &stream{
		conn:   conn,
		events: make(chan guestbook.Event, 16),
		done:   make(chan struct{}),
	}
	go s.run()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	c.log.Debug().Str("url", u.String()).Msg("feed connected")
	return s, nil
}

type stream struct {
	conn   *websocket.Conn
	events chan guestbook.Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

func (s *stream) Events() <-chan guestbook.Event { return s.events }

func (s *stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
	return nil
}

func (s *stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// run reads events until the connection ends. Pings from the server are
// answered by the connection's default ping handler while reading.
func (s *stream) run() {
	defer close(s.events)

	for {
		var ev guestbook.Event
		err := s.conn.ReadJSON(&ev)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}

			var ce *websocket.CloseError
			switch {
			case errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure:
			case errors.As(err, &ce):
				s.setErr(fmt.Errorf("feed closed by server (%d): %s", ce.Code, ce.Text))
			default:
				s.setErr(fmt.Errorf("read feed: %w", err))
			}
			_ = s.Close()
			return
		}

		if !ev.Kind.Valid() {
			s.setErr(fmt.Errorf("unknown event kind %q", ev.Kind))
			_ = s.Close()
			return
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}
