package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sybui2004/SeaU-sub001/logger"
)

const (
	// writeWait bounds one websocket write; a peer that cannot drain a frame
	// within this window is treated as dead by the transport.
	writeWait = 5 * time.Second
	// pongWait / pingPeriod drive the keepalive cycle on the read side.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 64 * 1024
)

// Client represents one transport session connected to the gateway.
// A single user may have multiple devices/connections, each maintained
// separately; the user identity stays empty until the session announces
// itself and is read from other connections' goroutines, hence the lock.
type Client struct {
	ConnID string

	WS   *websocket.Conn // nil for in-process test clients
	Send chan []byte     // outbound queue, consumed by a single writer goroutine

	mu     sync.RWMutex
	userID string

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient creates a client session around an upgraded connection.
func NewClient(connID string, ws *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 256
	}
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// User returns the announced identity, empty before the announce.
func (c *Client) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetUser binds the announced identity to this session.
func (c *Client) SetUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// Enqueue hands a frame to the writer without blocking. A full queue means a
// slow consumer; the frame is dropped for this client only.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- payload:
		return true
	default:
		logger.Debugf("[client] send queue full, drop frame conn=%s user=%s", c.ConnID, c.User())
		return false
	}
}

// Close releases the session. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}

// writePump is the single writer for the connection: it drains the send
// queue and keeps the ping cycle going. Runs until Close or a write error.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			if err := c.writeMessage(websocket.TextMessage, payload); err != nil {
				logger.Debugf("[client] write failed conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeMessage(mt int, payload []byte) error {
	if err := c.WS.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.WS.WriteMessage(mt, payload)
}
