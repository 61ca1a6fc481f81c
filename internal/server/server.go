// Package server exposes a realtime guestbook over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
	"github.com/hay-kot/guestbook/internal/core/toxicity"
)

const (
	maxBodyBytes = 1 << 20
	maxTailLimit = 500
)

// Backend is the realtime database the server fronts.
type Backend interface {
	guestbook.Pusher
	guestbook.Feed
	Tail(ctx context.Context, limit int) ([]guestbook.Message, error)
}

// Server serves the guestbook API:
//
//	POST /api/messages        append a message
//	GET  /api/messages?limit  newest messages, oldest first
//	GET  /api/feed?limit      websocket tail feed
//	GET  /healthz             liveness and classifier state
type Server struct {
	backend   Backend
	handle    *toxicity.Handle
	tailLimit int
	log       zerolog.Logger
	validate  *validator.Validate
	upgrader  websocket.Upgrader

	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration
}

// New creates a Server. handle may be nil when moderation is disabled.
func New(backend Backend, handle *toxicity.Handle, tailLimit int, log zerolog.Logger) *Server {
	return &Server{
		backend:   backend,
		handle:    handle,
		tailLimit: tailLimit,
		log:       log,
		validate:  validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		pongWait:     60 * time.Second,
		writeWait:    5 * time.Second,
	}
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/messages", s.handlePost)
	mux.HandleFunc("GET /api/messages", s.handleTail)
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("server listening")
	if ready != nil {
		ready <- ln.Addr()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}

type tailQuery struct {
	Limit int `validate:"min=0,max=500"`
}

func (s *Server) parseLimit(r *http.Request) (int, error) {
	q := tailQuery{Limit: s.tailLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("limit must be a number")
		}
		q.Limit = n
	}
	if err := s.validate.Struct(q); err != nil {
		return 0, fmt.Errorf("limit must be between 0 and %d", maxTailLimit)
	}
	return q.Limit, nil
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var draft guestbook.Draft
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	msg, err := s.backend.Push(r.Context(), draft)
	if err != nil {
		var verr *guestbook.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error().Err(err).Msg("push message")
		writeError(w, http.StatusInternalServerError, errors.New("could not store message"))
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	limit, err := s.parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	messages, err := s.backend.Tail(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("tail messages")
		writeError(w, http.StatusInternalServerError, errors.New("could not read messages"))
		return
	}
	if messages == nil {
		messages = []guestbook.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := "disabled"
	if s.handle != nil {
		state = "loading"
		if s.handle.Ready() {
			state = "ready"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "classifier": state})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
