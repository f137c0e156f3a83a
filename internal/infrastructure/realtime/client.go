package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"parceldesk/internal/shared/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Client is one authenticated websocket connection.
type Client struct {
	id        string
	accountID uint
	role      string
	conn      *websocket.Conn
	send      chan []byte
	rooms     map[string]bool
	hub       *Hub
	log       logger.Interface
}

// ID returns the connection identifier handed to the client on connect.
func (c *Client) ID() string {
	return c.id
}

// enqueue pushes an event to this client without blocking.
func (c *Client) enqueue(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		c.log.Errorw("failed to marshal event", "type", env.Type, "error", err)
		return
	}
	select {
	case c.send <- payload:
	default:
		c.log.Warnw("dropping event, send buffer full")
	}
}

// readPump consumes client messages until the connection drops. Only
// join-room and leave-room are meaningful; anything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	pongWait := time.Duration(c.hub.cfg.PingIntervalSeconds)*time.Second + writeWait
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warnw("unexpected close", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debugw("ignoring malformed client message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg clientMessage) {
	switch msg.Type {
	case clientJoinRoom:
		if msg.Room == "" {
			return
		}
		if !c.hub.canJoin(c, msg.Room) {
			c.log.Warnw("room join denied", "room", msg.Room)
			c.enqueue(NewEnvelope(EventNotification, map[string]any{
				"message": "not allowed to join room " + msg.Room,
			}))
			return
		}
		c.hub.joinRoom(c, msg.Room)
		c.log.Debugw("joined room", "room", msg.Room)
	case clientLeaveRoom:
		if msg.Room == "" {
			return
		}
		c.hub.leaveRoom(c, msg.Room)
		c.log.Debugw("left room", "room", msg.Room)
	default:
		c.log.Debugw("ignoring unknown client message", "type", msg.Type)
	}
}

// writePump drains the send buffer to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(time.Duration(c.hub.cfg.PingIntervalSeconds) * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
