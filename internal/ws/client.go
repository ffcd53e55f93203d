package ws

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tkdhub/chatcore/internal/config"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

// Client represents a single WebSocket connection. send is never closed;
// shutdown is signalled through done so publishers can never hit a closed channel.
type Client struct {
	ID     string
	UserID int64

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

// NewClient wraps a connection. conn may be nil for clients that are never pumped.
func NewClient(conn *websocket.Conn, userID int64, cfg config.WSConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}
	return &Client{
		ID:             uuid.NewString(),
		UserID:         userID,
		conn:           conn,
		send:           make(chan []byte, buffer),
		done:           make(chan struct{}),
		pongWait:       pongWait,
		pingPeriod:     (pongWait * 9) / 10,
		maxMessageSize: cfg.MaxMessageBytes,
	}
}

// Enqueue queues a frame without blocking. It reports false only when the
// send buffer is full; frames for a closed client are discarded.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close stops both pumps; WritePump then sends a close frame and releases
// the connection. Safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed once the client is closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump delivers inbound frames to handle, one at a time in arrival order.
// It returns when the peer goes away, stays silent past the pong wait, or the
// client is closed.
func (c *Client) ReadPump(handle func(data []byte)) {
	defer c.Close()

	if c.maxMessageSize > 0 {
		c.conn.SetReadLimit(c.maxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error on %s: %v", c.ID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		handle(message)
	}
}

// WritePump writes queued frames and keepalive pings. Each event is its own
// text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
