package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hazyhaar/streamermode/kit"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// client is one websocket connection. Broadcasts are queued on send and
// written by writePump; a client that falls behind is dropped.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan Message
	logger *slog.Logger
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request.
		s.logger.Warn("relay: websocket upgrade", "error", err)
		return
	}

	c := &client{
		id:     s.clientID(),
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		logger: s.logger,
	}
	c.logger = s.logger.With("client", c.id)

	ctx, cancel := context.WithCancel(kit.WithTransport(s.base, "ws"))
	ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)

	unsubscribe := s.hub.Subscribe(func(msg Message) {
		select {
		case c.send <- msg:
		default:
			c.logger.Warn("relay: client too slow, dropping")
			cancel()
		}
	})
	c.logger.Info("relay: client connected", "remote_addr", r.RemoteAddr)

	go c.writePump(ctx)
	c.readPump(ctx, s.hub)

	unsubscribe()
	cancel()
	c.logger.Info("relay: client disconnected")
}

func (c *client) readPump(ctx context.Context, hub *Hub) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("relay: read", "error", err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("relay: malformed message", "error", err)
			continue
		}
		if err := hub.Handle(ctx, msg); err != nil {
			if errors.Is(err, ErrUnknownMessage) || errors.Is(err, ErrEmptyWord) {
				c.logger.Warn("relay: rejected message", "type", msg.Type, "error", err)
				continue
			}
			c.logger.Error("relay: handle", "type", msg.Type, "error", err)
		}
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("relay: write", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
