package relay

import (
	"context"
	"time"

	"github.com/sybui2004/SeaU-sub001/logger"
	"github.com/sybui2004/SeaU-sub001/service/storage"
)

// PresenceEvent is the change record handed to an optional out-of-process
// publisher whenever the presence table actually changes.
type PresenceEvent struct {
	Kind   string `json:"kind"` // "online" | "offline"
	UserID string `json:"userId"`
	ConnID string `json:"connectionId"`
	NodeID string `json:"nodeId"`
	TS     int64  `json:"ts"`
}

// PresencePublisher receives presence changes for external observers.
// Publishing is best effort; errors are logged by the server and never
// affect relay delivery.
type PresencePublisher interface {
	Publish(ctx context.Context, ev PresenceEvent) error
}

// ServerConf tunes the gateway; zero values get sensible defaults.
type ServerConf struct {
	SendQueueSize  int
	FanoutWorkers  int
	FanoutQueue    int
	StoreOpTimeout time.Duration
}

func (c *ServerConf) norm() {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.FanoutWorkers <= 0 {
		c.FanoutWorkers = 4
	}
	if c.FanoutQueue <= 0 {
		c.FanoutQueue = 1024
	}
	if c.StoreOpTimeout <= 0 {
		c.StoreOpTimeout = 3 * time.Second
	}
}

// Server wires the presence store, the transport registry, the event
// dispatcher, and the fanout pool into one relay gateway instance.
type Server struct {
	nodeID string
	conf   ServerConf

	store storage.Store
	reg   *Registry
	disp  *Dispatcher
	fan   *Fanout
	pub   PresencePublisher // nil => disabled
}

func NewServer(nodeID string, store storage.Store, conf ServerConf) *Server {
	conf.norm()
	return &Server{
		nodeID: nodeID,
		conf:   conf,
		store:  store,
		reg:    NewRegistry(),
		disp:   NewDispatcher(),
		fan:    NewFanout(conf.FanoutWorkers, conf.FanoutQueue),
	}
}

// SetPublisher installs the optional presence feed. Call before serving.
func (s *Server) SetPublisher(p PresencePublisher) { s.pub = p }

func (s *Server) NodeID() string { return s.nodeID }

func (s *Server) Store() storage.Store { return s.store }

func (s *Server) Reg() *Registry { return s.reg }

func (s *Server) Disp() *Dispatcher { return s.disp }

// Close tears down the fanout pool and every live session.
func (s *Server) Close() {
	for _, c := range s.reg.ListAll() {
		c.Close()
	}
	s.fan.Close()
	if err := s.store.Close(); err != nil {
		logger.Warnf("[server] store close: %v", err)
	}
}

// HandleFrame parses and dispatches one inbound frame. Every error here is
// a recovered condition: logged, connection stays up, nothing echoes back.
func (s *Server) HandleFrame(ctx context.Context, raw []byte, c *Client) {
	f, err := ParseFrame(raw)
	if err != nil {
		sample := raw
		if len(sample) > 256 {
			sample = sample[:256]
		}
		logger.Infof("[relay] bad frame conn=%s err=%v sample=%q len=%d",
			c.ConnID, err, sample, len(raw))
		return
	}
	if err := s.disp.Dispatch(ctx, &Context{S: s}, f, c); err != nil {
		logger.Infof("[relay] dispatch event=%s conn=%s err=%v", f.Event, c.ConnID, err)
	}
}

// Announce binds a user identity to an announced connection and, when the
// presence table changed, broadcasts the new snapshot to everyone.
func (s *Server) Announce(ctx context.Context, userID string, c *Client) error {
	changed, err := s.store.Announce(ctx, userID, c.ConnID)
	if err != nil {
		return err
	}
	c.SetUser(userID)
	if !changed {
		// Duplicate announce on the same connection: tolerated, no-op.
		return nil
	}
	logger.Infof("[relay] online user=%s conn=%s", userID, c.ConnID)
	s.publish(ctx, PresenceEvent{Kind: "online", UserID: userID, ConnID: c.ConnID})
	s.BroadcastPresence(ctx)
	return nil
}

// Disconnect removes a closed connection from both indexes and broadcasts
// the shrunken presence set to the remaining clients. Safe for connections
// that never announced.
func (s *Server) Disconnect(ctx context.Context, c *Client) {
	s.reg.Remove(c.ConnID)
	c.Close()

	changed, err := s.store.Forget(ctx, c.ConnID)
	if err != nil {
		logger.Warnf("[relay] forget conn=%s err=%v", c.ConnID, err)
		return
	}
	if !changed {
		return
	}
	user := c.User()
	logger.Infof("[relay] offline user=%s conn=%s", user, c.ConnID)
	s.publish(ctx, PresenceEvent{Kind: "offline", UserID: user, ConnID: c.ConnID})
	s.BroadcastPresence(ctx)
}

// BroadcastPresence pushes the current presence snapshot to every session.
func (s *Server) BroadcastPresence(ctx context.Context) {
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		logger.Warnf("[relay] presence snapshot: %v", err)
		return
	}
	payload, err := BuildPresenceFrame(entries)
	if err != nil {
		logger.Warnf("[relay] presence frame: %v", err)
		return
	}
	s.fan.Broadcast(s.reg.ListAll(), payload)
}

// DeliverToUser forwards one payload to every live connection of a user.
// Returns how many sessions the frame was queued to; zero means the target
// is offline and the frame is silently gone.
func (s *Server) DeliverToUser(ctx context.Context, userID string, payload []byte) int {
	conns, err := s.store.Resolve(ctx, userID)
	if err != nil {
		logger.Warnf("[relay] resolve user=%s err=%v", userID, err)
		return 0
	}
	n := 0
	for _, connID := range conns {
		c := s.reg.Get(connID)
		if c == nil {
			// Store entry outlived the transport (reconnect race); skip,
			// the pending Forget will reconcile it.
			continue
		}
		if c.Enqueue(payload) {
			n++
		}
	}
	return n
}

// BroadcastExcept fans one payload out to every session but the sender's.
func (s *Server) BroadcastExcept(senderConnID string, payload []byte) {
	s.fan.Broadcast(s.reg.ListExcept(senderConnID), payload)
}

func (s *Server) publish(ctx context.Context, ev PresenceEvent) {
	if s.pub == nil {
		return
	}
	ev.NodeID = s.nodeID
	ev.TS = time.Now().UnixMilli()
	if err := s.pub.Publish(ctx, ev); err != nil {
		logger.Warnf("[relay] presence publish kind=%s user=%s err=%v", ev.Kind, ev.UserID, err)
	}
}
