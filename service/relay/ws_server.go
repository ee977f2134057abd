package relay

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sybui2004/SeaU-sub001/logger"
	"github.com/sybui2004/SeaU-sub001/tools/ids"
	"github.com/sybui2004/SeaU-sub001/tools/safe"
)

// NewWSHandler returns the gin handler that upgrades GET /socket and runs the
// connection until the peer goes away. One goroutine reads, one writes; the
// read loop is the only place inbound events enter the dispatcher, so
// per-connection ordering is the arrival order on the wire.
func NewWSHandler(s *Server, originAllowed func(string) bool) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser client; the browser same-origin policy is
				// what CheckOrigin guards, so let these through.
				return true
			}
			return originAllowed(origin)
		},
	}

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Plain HTTP request or refused handshake; Upgrade already
			// replied to the peer.
			logger.Infof("[ws] upgrade failed remote=%s err=%v", c.Request.RemoteAddr, err)
			return
		}

		connID := ids.GenerateString()
		client := NewClient(connID, ws, s.conf.SendQueueSize)
		s.Reg().Add(client)
		logger.Infof("[ws] connected conn=%s remote=%s", connID, ws.RemoteAddr())

		safe.SafeGo(client.writePump)
		readLoop(s, client)

		ctx, cancel := context.WithTimeout(context.Background(), s.conf.StoreOpTimeout)
		defer cancel()
		s.Disconnect(ctx, client)
		logger.Infof("[ws] disconnected conn=%s user=%s", connID, client.User())
	}
}

func readLoop(s *Server, c *Client) {
	ws := c.WS
	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", c.ConnID, err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", c.ConnID, err)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", c.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		handleOne(s, data, c)
	}
}

// handleOne isolates a panicking handler to the frame that tripped it.
func handleOne(s *Server, data []byte, c *Client) {
	defer safe.Recover("ws.handleOne")
	ctx, cancel := context.WithTimeout(context.Background(), s.conf.StoreOpTimeout)
	defer cancel()
	s.HandleFrame(ctx, data, c)
}
