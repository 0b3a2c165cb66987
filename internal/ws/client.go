package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/favbox/favbox/internal/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong/message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	// Outbound buffer per connection. When full, events are dropped for
	// that connection rather than blocking the broadcaster.
	sendBufferSize = 32
)

// Message types on the live channel.
const (
	MsgConnected = "connected"
	MsgPing      = "ping"
	MsgPong      = "pong"
)

type clientMessage struct {
	Type string `json:"type"`
}

// ConnectedMessage confirms a successful connection and reports how many
// connections the user currently holds.
type ConnectedMessage struct {
	Type        string `json:"type"`
	UserID      int64  `json:"user_id"`
	Connections int    `json:"connections"`
}

// Client is one live connection of a user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	logger logger.Logger

	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, log logger.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		logger: log,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Run registers the client, confirms the connection and blocks pumping
// messages until the connection drops.
func (c *Client) Run() {
	c.hub.register(c)

	hello := ConnectedMessage{
		Type:        MsgConnected,
		UserID:      c.userID,
		Connections: c.hub.ConnectionCount(c.userID),
	}
	if data, err := json.Marshal(hello); err == nil {
		c.trySend(data)
	}

	go c.writePump()
	c.readPump()
}

func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// readPump consumes client messages and keep-alive frames. It owns the
// read side of the connection and triggers cleanup when the peer goes
// away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed",
					logger.Int64("user_id", c.userID), logger.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MsgPing:
			if data, err := json.Marshal(clientMessage{Type: MsgPong}); err == nil {
				c.trySend(data)
			}
		case MsgPong:
			// Keep-alive reply, nothing to do.
		}
	}
}

// writePump writes queued events and periodic pings. One writer per
// connection; gorilla allows at most one concurrent writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
