package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"soullink-backend/internal/domain"
	"soullink-backend/pkg/constants"
	"soullink-backend/pkg/logger"
)

// Client is one WebSocket session. It implements session.Sender so the
// presence directory, room router, and call relay can address it without
// knowing about the transport.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   string

	// Outbound frames; writePump is the only writer on the connection
	send chan []byte

	userID string // set by register_user, read on disconnect
}

// SessionID returns the transport-scoped session identifier
func (c *Client) SessionID() string {
	return c.id
}

// Send frames the event as an envelope and queues it for delivery. It never
// blocks: a session whose buffer is full loses the frame, which is acceptable
// for a realtime relay and keeps one slow client from stalling a broadcast.
func (c *Client) Send(event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to marshal outbound event",
			zap.String("event", event),
			zap.Error(err))
		return
	}
	frame, err := json.Marshal(domain.Envelope{Event: event, Data: raw})
	if err != nil {
		logger.Error("Failed to marshal envelope",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	select {
	case c.send <- frame:
	default:
		logger.Warn("Dropping frame for slow session",
			zap.String("session_id", c.id),
			zap.String("event", event))
	}
}

// readPump reads frames off the connection and hands them to the hub. It owns
// the read side; when it returns the session is torn down.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error",
					zap.String("session_id", c.id),
					zap.Error(err))
			}
			return
		}

		c.hub.metrics.WebSocketMessage("in")

		var env domain.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("Discarding malformed frame",
				zap.String("session_id", c.id),
				zap.Error(err))
			continue
		}

		c.hub.dispatch(c, env)
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval * 9 / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			c.hub.metrics.WebSocketMessage("out")

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
