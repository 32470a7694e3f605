package realtime

import (
	"sync"
	"time"

	"auction-house/utils"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
	maxMessageSize = 512
)

// Client is one WebSocket connection watching a single item
type Client struct {
	id          string
	itemID      string
	conn        *websocket.Conn
	send        chan []byte   // outgoing messages
	rateLimiter *rate.Limiter // inbound messages; the feed is read-only so chatty clients are cut off
	closed      bool
	mu          sync.Mutex // protects closed and send
}

func newClient(id, itemID string, conn *websocket.Conn) *Client {
	return &Client{
		id:          id,
		itemID:      itemID,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		rateLimiter: rate.NewLimiter(1, 3),
	}
}

// enqueue hands payload to the write pump. It reports false when the buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close stops the write pump, which in turn closes the connection
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump drains inbound frames so pongs and close frames are processed
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unsubscribe(c)
		c.close()
		utils.Debug("live client disconnected", map[string]any{"item_id": c.itemID, "client": c.id})
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		if !c.rateLimiter.Allow() {
			utils.Warn("live client exceeded message rate", map[string]any{"item_id": c.itemID, "client": c.id})
			return
		}
	}
}

// writePump sends queued events and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				utils.Debug("live client write failed", map[string]any{"client": c.id, "error": err.Error()})
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
