package hub

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Monitors only send filter changes, which are short addresses.
	maxMessageSize = 512

	// At 60 Hz with a handful of sources this is a few seconds of backlog.
	sendBuffer = 1024
)

// Client is one monitor websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	filter atomic.Pointer[string]

	quit      chan struct{} // Closed by Run when the read side ends
	writeDone chan struct{} // Closed by writePump on exit
}

// NewClient registers a client that receives messages whose topic starts
// with filter. It returns nil if the hub has been stopped.
func NewClient(hub *Hub, conn *websocket.Conn, filter string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send:      make(chan Message, sendBuffer),
		quit:      make(chan struct{}),
		writeDone: make(chan struct{}),
	}
	c.SetFilter(filter)
	select {
	case hub.register <- c:
		return c
	case <-hub.done:
		return nil
	}
}

// Filter returns the current address prefix filter.
func (c *Client) Filter() string {
	return *c.filter.Load()
}

// SetFilter replaces the address prefix filter.
func (c *Client) SetFilter(prefix string) {
	prefix = strings.TrimSpace(prefix)
	c.filter.Store(&prefix)
}

// Run pumps messages until the connection closes. It blocks until both
// pumps have exited, so the caller may release conn once it returns.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
	close(c.quit)
	<-c.writeDone
}

// readPump treats each text frame as a new prefix filter.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind == websocket.TextMessage {
			c.SetFilter(string(data))
			c.hub.logger.Debug("client filter changed", "filter", c.Filter())
		}
	}
}

// writePump owns all writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close() // Unblocks readPump after a write error
		close(c.writeDone)
	}()

	for {
		select {
		case <-c.quit:
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
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
