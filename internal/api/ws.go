package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/foxholetools/artyplanner/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Stream upgrades to a websocket and pushes the session view after every
// change, starting with the current one. Client messages are ignored.
func (h *SessionHandler) Stream(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "session", s.ID, "error", err)
		return
	}
	defer conn.Close()

	ctx := logging.WithSession(c.Request.Context(), s.ID)
	updates, cancel := s.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go readPump(conn, done)

	if err := writeJSON(conn, s.View()); err != nil {
		return
	}
	h.log.DebugContext(ctx, "Websocket subscriber connected")

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := writeJSON(conn, v); err != nil {
				h.log.DebugContext(ctx, "Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			h.log.DebugContext(ctx, "Websocket subscriber disconnected")
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sameHost reports whether the Origin header names the host being requested.
func sameHost(r *http.Request) bool {
	u, err := url.Parse(r.Header.Get("Origin"))
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
