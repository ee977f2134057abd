package relay

import (
	"sync"
)

// Registry is the transport index: connID -> live client session. The logical
// presence table (user -> conns) lives in the storage.Store; this map only
// exists so the dispatcher can turn a resolved connID into a writable client.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{byConn: make(map[string]*Client)}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byConn[c.ConnID] = c
}

func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byConn, connID)
}

func (r *Registry) Get(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// ListAll returns every live session (presence broadcast targets).
func (r *Registry) ListAll() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// ListExcept returns every live session but the given one (thread fan-out).
func (r *Registry) ListExcept(connID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for id, c := range r.byConn {
		if id == connID {
			continue
		}
		out = append(out, c)
	}
	return out
}
