package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hay-kot/guestbook/internal/core/guestbook"
)

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	limit, err := s.parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	stream, err := s.backend.Subscribe(ctx, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("subscribe")
		writeError(w, http.StatusServiceUnavailable, errors.New("feed unavailable"))
		return
	}
	defer stream.Close() //nolint:errcheck

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close() //nolint:errcheck

	log := s.log.With().Str("remote", r.RemoteAddr).Int("limit", limit).Logger()
	log.Debug().Msg("feed opened")

	go s.readPump(conn, cancel)
	closeCode, reason := s.writePump(ctx, conn, stream)

	deadline := time.Now().Add(s.writeWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, reason), deadline)
	log.Debug().Int("code", closeCode).Str("reason", reason).Msg("feed closed")
}

// readPump discards client frames and keeps the read deadline fresh on
// pongs. It cancels the feed once the client goes away.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("feed client closed unexpectedly")
			}
			return
		}
	}
}

// writePump forwards stream events as JSON frames and pings the client. It
// returns the close code to send.
func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, stream guestbook.Stream) (int, string) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return websocket.CloseGoingAway, "server closing feed"

		case ev, ok := <-stream.Events():
			if !ok {
				if err := stream.Err(); err != nil {
					return websocket.CloseTryAgainLater, err.Error()
				}
				return websocket.CloseNormalClosure, ""
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return websocket.CloseInternalServerErr, ""
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeWait)); err != nil {
				return websocket.CloseInternalServerErr, ""
			}
		}
	}
}
