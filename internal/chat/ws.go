// ABOUTME: WebSocket transport for the chat coordinator
// ABOUTME: One reader and one writer goroutine per connection

package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/hearth/internal/identity"
)

const (
	writeTimeout = 10 * time.Second

	// maxMessageSize bounds inbound frames. Chat messages are short;
	// anything larger is a misbehaving client.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served same-origin; clients on other origins (curl,
	// scripts, the transcript page) are equally welcome.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame is a client frame before its data is interpreted.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeWS upgrades the request and runs the connection until the client
// goes away. The client's identity comes from the request's remote
// address (or X-Forwarded-For when a proxy fills it in).
func (c *Coordinator) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := identity.FromRequest(r)
	logger := c.logger.With("client", clientID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	events, connID := c.Subscribe(clientID)
	logger = logger.With("conn", connID)
	logger.Info("client connected")

	conn.SetReadLimit(maxMessageSize)

	go func() {
		for ev := range events {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Debug("write failed, closing connection", "error", err)
				conn.Close()
				return
			}
		}
		// Channel closed by Unsubscribe.
		conn.Close()
	}()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "error", err)
			}
			break
		}
		c.dispatch(clientID, connID, frame, logger)
	}

	c.Unsubscribe(clientID, connID)
	logger.Info("client disconnected")
}

// dispatch routes one inbound frame. Turns run in their own goroutine so
// the read loop stays responsive while the model is thinking.
func (c *Coordinator) dispatch(clientID, connID string, frame inboundFrame, logger *slog.Logger) {
	switch frame.Event {
	case EventChatMessage:
		var text string
		if err := json.Unmarshal(frame.Data, &text); err != nil {
			logger.Warn("malformed chat message frame", "error", err)
			return
		}
		if text == "" {
			return
		}
		go c.HandleMessage(clientID, connID, text)

	case EventRequestHistory:
		go c.HandleHistoryRequest(context.Background(), clientID, connID)

	default:
		logger.Debug("ignoring unknown event", "event", frame.Event)
	}
}
