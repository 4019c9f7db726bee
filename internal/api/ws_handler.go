package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nullgrid/nullgrid/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is token-gated; cross-origin dials are expected.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientCommand is what a connected client may send upstream: channel
// subscription changes only. Everything else goes through the REST API.
type clientCommand struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
}

// HandleWS upgrades the connection and bridges the session outbox to the
// socket. Auth runs in front of this handler; the token rides the query
// string because browsers cannot set headers on websocket dials.
// GET /api/v1/ws
func (s *Server) HandleWS(c *gin.Context) {
	identity := middleware.Identity(c)
	role := middleware.Role(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "identity", identity, "err", err)
		return
	}

	sessionID := uuid.NewString()
	sess, err := s.sessions.Open(c.Request.Context(), sessionID, identity, role)
	if err != nil {
		_ = conn.Close()
		return
	}
	s.log.Info("websocket connected", "session", sessionID, "identity", identity)

	go s.writePump(conn, sess.Outbox, sessionID)
	s.readPump(conn, sessionID, identity)
}

// writePump drains the session outbox onto the socket and keeps the
// connection alive with pings. It exits when the outbox closes, which is
// how the tracker signals disconnection (overflow cut-off or ban).
func (s *Server) writePump(conn *websocket.Conn, outbox <-chan []byte, sessionID string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case payload, ok := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes client commands until the socket drops, then closes
// the session. Closing the session closes the outbox, which stops the
// write pump.
func (s *Server) readPump(conn *websocket.Conn, sessionID, identity string) {
	defer func() {
		_ = conn.Close()
		// Request context is gone once the handler unwinds; session
		// teardown must still reach the coordinator.
		if err := s.sessions.Close(context.Background(), sessionID); err != nil {
			s.log.Error("session teardown failed", "session", sessionID, "err", err)
		}
		s.log.Info("websocket disconnected", "session", sessionID, "identity", identity)
	}()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "tune":
			if err := s.sessions.Tune(context.Background(), sessionID, cmd.Channel); err != nil {
				s.log.Debug("tune rejected", "session", sessionID, "channel", cmd.Channel, "err", err)
			}
		case "detune":
			if err := s.sessions.Detune(context.Background(), sessionID, cmd.Channel); err != nil {
				s.log.Debug("detune rejected", "session", sessionID, "channel", cmd.Channel, "err", err)
			}
		}
	}
}
