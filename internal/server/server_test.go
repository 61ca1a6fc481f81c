package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
	"github.com/hay-kot/guestbook/internal/core/toxicity/toxicitytest"
	"github.com/hay-kot/guestbook/internal/realtime"
	"github.com/hay-kot/guestbook/internal/store/jsonfile"
)

func setup(t *testing.T, handle *toxicity.Handle) (*realtime.DB, *httptest.Server) {
	t.Helper()
	store := jsonfile.New(filepath.Join(t.TempDir(), "messages.json"))
	db := realtime.New(store, zerolog.Nop())
	srv := httptest.NewServer(New(db, handle, 12, zerolog.Nop()).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = db.Close(context.Background())
	})
	return db, srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/messages", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestPostMessage(t *testing.T) {
	db, srv := setup(t, nil)

	resp := postJSON(t, srv.URL, `{"name":"Ada","text":"hello\nthere"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	msg := decode[guestbook.Message](t, resp)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "hello\nthere", msg.Text)
	assert.False(t, msg.Timestamp.IsZero())

	stored, err := db.Get(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.Name, stored.Name)
}

func TestPostMessage_LongText(t *testing.T) {
	_, srv := setup(t, nil)

	text := strings.Repeat("x", 5000)
	resp := postJSON(t, srv.URL, `{"name":"Ada","text":"`+text+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, text, decode[guestbook.Message](t, resp).Text)
}

func TestPostMessage_Invalid(t *testing.T) {
	_, srv := setup(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", `{"text":"hi"}`, "name is required"},
		{"bad json", `{"name":`, "decode body"},
		{"unknown field", `{"name":"a","text":"b","id":"x"}`, "unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decode[map[string]string](t, resp)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestTailMessages(t *testing.T) {
	db, srv := setup(t, nil)
	for _, text := range []string{"one", "two", "three"} {
		_, err := db.Push(context.Background(), guestbook.Draft{Name: "a", Text: text})
		require.NoError(t, err)
	}

	resp, err := http.Get(srv.URL + "/api/messages?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msgs := decode[[]guestbook.Message](t, resp)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Text)
	assert.Equal(t, "three", msgs[1].Text)
}

func TestTailMessages_BadLimit(t *testing.T) {
	_, srv := setup(t, nil)

	for _, q := range []string{"abc", "-1", "10000"} {
		resp, err := http.Get(srv.URL + "/api/messages?limit=" + q)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestHealth(t *testing.T) {
	handle := toxicity.NewHandle(toxicitytest.Clean().Loader(nil), toxicity.DefaultThreshold, zerolog.Nop())
	_, srv := setup(t, handle)

	get := func() map[string]string {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		return decode[map[string]string](t, resp)
	}

	assert.Equal(t, map[string]string{"status": "ok", "classifier": "loading"}, get())

	_, err := handle.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"status": "ok", "classifier": "ready"}, get())
}

func dialFeed(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/feed" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) guestbook.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev guestbook.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestFeed(t *testing.T) {
	db, srv := setup(t, nil)
	ctx := context.Background()

	first, err := db.Push(ctx, guestbook.Draft{Name: "a", Text: "first"})
	require.NoError(t, err)

	conn := dialFeed(t, srv, "?limit=1")

	assert.Equal(t, guestbook.Event{Kind: guestbook.EventAdded, Message: first}, readEvent(t, conn))

	second, err := db.Push(ctx, guestbook.Draft{Name: "b", Text: "second"})
	require.NoError(t, err)

	assert.Equal(t, guestbook.Event{Kind: guestbook.EventAdded, Message: second}, readEvent(t, conn))
	assert.Equal(t, guestbook.Event{Kind: guestbook.EventRemoved, Message: first}, readEvent(t, conn))

	require.NoError(t, db.Remove(ctx, second.ID))
	assert.Equal(t, guestbook.Event{Kind: guestbook.EventRemoved, Message: second}, readEvent(t, conn))
	assert.Equal(t, guestbook.Event{Kind: guestbook.EventAdded, Message: first}, readEvent(t, conn))
}

func TestFeed_ClosedWhenDatabaseCloses(t *testing.T) {
	db, srv := setup(t, nil)
	conn := dialFeed(t, srv, "")

	require.NoError(t, db.Close(context.Background()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()

	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseTryAgainLater, ce.Code)
	assert.Contains(t, ce.Text, "database closed")
}

func TestFeed_BadLimit(t *testing.T) {
	_, srv := setup(t, nil)

	resp, err := http.Get(srv.URL + "/api/feed?limit=x")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
