// Package client talks to a guestbook server over HTTP and websockets. A
// Client satisfies guestbook.Pusher and guestbook.Feed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

// Client is a guestbook API client.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	log    zerolog.Logger
}

// New creates a client for the server at serverURL.
func New(serverURL string, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must use http or https", serverURL)
	}

	return &Client{
		base:   base,
		http:   &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log,
	}, nil
}

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *Client) endpoint(path string, limit int) *url.URL {
	u := c.base.JoinPath(path)
	if limit >= 0 {
		u.RawQuery = url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	return u
}

// Push appends a message through the server.
func (c *Client) Push(ctx context.Context, draft guestbook.Draft) (guestbook.Message, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return guestbook.Message{}, fmt.Errorf("encode draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api/messages", -1).String(), bytes.NewReader(body))
	if err != nil {
		return guestbook.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var msg guestbook.Message
	if err := c.do(req, http.StatusCreated, &msg); err != nil {
		return guestbook.Message{}, fmt.Errorf("push: %w", err)
	}
	return msg, nil
}

// Tail returns the newest limit messages, oldest first. A limit of 0 returns
// every message.
func (c *Client) Tail(ctx context.Context, limit int) ([]guestbook.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api/messages", max(limit, 0)).String(), nil)
	if err != nil {
		return nil, err
	}

	var msgs []guestbook.Message
	if err := c.do(req, http.StatusOK, &msgs); err != nil {
		return nil, fmt.Errorf("tail: %w", err)
	}
	return msgs, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != want {
		return readAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = string(bytes.TrimSpace(data))
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}
