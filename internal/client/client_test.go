package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/realtime"
	"github.com/hay-kot/guestbook/internal/server"
	"github.com/hay-kot/guestbook/internal/store/jsonfile"
)

// Compile-time checks: the client stands in for the realtime DB.
var (
	_ guestbook.Pusher = (*Client)(nil)
	_ guestbook.Feed   = (*Client)(nil)
)

func setup(t *testing.T) (*realtime.DB, *Client) {
	t.Helper()
	store := jsonfile.New(filepath.Join(t.TempDir(), "messages.json"))
	db := realtime.New(store, zerolog.Nop())
	srv := httptest.NewServer(server.New(db, nil, 12, zerolog.Nop()).Handler())
	t.Cleanup(func() {
		_ = db.Close(context.Background())
		srv.Close()
	})

	c, err := New(srv.URL, zerolog.Nop())
	require.NoError(t, err)
	return db, c
}

func next(t *testing.T, s guestbook.Stream) guestbook.Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "stream closed: %v", s.Err())
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return guestbook.Event{}
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("ftp://example.com", zerolog.Nop())
	assert.Error(t, err)
}

func TestPushAndTail(t *testing.T) {
	_, c := setup(t)
	ctx := context.Background()

	sent, err := c.Push(ctx, guestbook.Draft{Name: "Ada", Text: "hello there"})
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)

	msgs, err := c.Tail(ctx, 12)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID)
	assert.True(t, sent.Timestamp.Equal(msgs[0].Timestamp))
}

func TestPush_ValidationError(t *testing.T) {
	_, c := setup(t)

	_, err := c.Push(context.Background(), guestbook.Draft{Name: "Ada"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "text is required")
}

func TestSubscribe(t *testing.T) {
	db, c := setup(t)
	ctx := context.Background()

	first, err := c.Push(ctx, guestbook.Draft{Name: "a", Text: "first"})
	require.NoError(t, err)

	s, err := c.Subscribe(ctx, 12)
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	ev := next(t, s)
	assert.Equal(t, guestbook.EventAdded, ev.Kind)
	assert.Equal(t, first.ID, ev.Message.ID)

	require.NoError(t, db.Remove(ctx, first.ID))
	ev = next(t, s)
	assert.Equal(t, guestbook.EventRemoved, ev.Kind)
	assert.Equal(t, first.ID, ev.Message.ID)
}

func TestSubscribe_Listen(t *testing.T) {
	_, c := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := c.Subscribe(ctx, 12)
	require.NoError(t, err)

	added := make(chan guestbook.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- guestbook.Listen(ctx, s, guestbook.Listener{
			OnAdded: func(m guestbook.Message) { added <- m },
		})
	}()

	sent, err := c.Push(context.Background(), guestbook.Draft{Name: "a", Text: "hi"})
	require.NoError(t, err)

	select {
	case m := <-added:
		assert.Equal(t, sent.ID, m.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("listener not called")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSubscribe_ServerCloses(t *testing.T) {
	db, c := setup(t)

	s, err := c.Subscribe(context.Background(), 12)
	require.NoError(t, err)

	require.NoError(t, db.Close(context.Background()))

	select {
	case _, ok := <-s.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.ErrorContains(t, s.Err(), "database closed")
}

func TestSubscribe_BadLimit(t *testing.T) {
	_, c := setup(t)

	_, err := c.Subscribe(context.Background(), 100000)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}
