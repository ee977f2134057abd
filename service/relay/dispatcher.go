package relay

import (
	"context"
)

// Handler processes one inbound event kind.
type Handler interface {
	Event() string
	Handle(ctx context.Context, rc *Context, f *Frame, c *Client) error
}

// Context carries the gateway services a handler may touch.
type Context struct {
	S *Server
}

// Dispatcher maps inbound event names to their handlers. Registration
// happens once during boot; Dispatch is then read-only and safe to call
// from every connection's read loop.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

func (d *Dispatcher) Dispatch(ctx context.Context, rc *Context, f *Frame, c *Client) error {
	h, ok := d.handlers[f.Event]
	if !ok {
		return ErrUnknownEvent(f.Event)
	}
	return h.Handle(ctx, rc, f, c)
}
