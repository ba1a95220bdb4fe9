package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// Client is one websocket connection. userID and rooms are guarded by the hub's lock.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID string
	rooms  map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
}

// enqueue never blocks. It reports false when the client is not keeping up.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// handle applies one client frame. Frames with an unknown type or a malformed id are ignored.
func (c *Client) handle(in inbound) {
	id, err := uuid.Parse(in.Data)
	if err != nil {
		c.hub.logger.Debug("ignoring realtime frame", slog.String("type", in.Type), slog.String("data", in.Data))
		return
	}

	switch in.Type {
	case msgJoin:
		c.hub.identify(c, id.String())
	case msgJoinBlog:
		c.hub.joinRoom(c, id.String())
	case msgLeaveBlog:
		c.hub.leaveRoom(c, id.String())
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Error("websocket read failed", slog.String("error", err.Error()))
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			continue
		}

		c.handle(in)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
