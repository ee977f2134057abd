package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// Global singleton + once
var (
	globalMgr *MiddlewareManager
	once      sync.Once
)

// MiddlewareManager allows registering/removing middleware at runtime.
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []gin.HandlerFunc
}

// NewManager creates a fresh instance (tests use this to stay isolated).
func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Manager returns the global instance (lazy init, thread safe).
func Manager() *MiddlewareManager {
	once.Do(func() {
		if globalMgr == nil {
			globalMgr = NewManager()
		}
	})
	return globalMgr
}

// Add registers one middleware.
func (m *MiddlewareManager) Add(h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = append(m.mids, h)
}

// Clear removes all middleware.
func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
}

// Use returns one gin.HandlerFunc that runs the whole registered chain,
// mounted on the Engine as the single entry point.
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		mids := make([]gin.HandlerFunc, len(m.mids))
		copy(mids, m.mids)
		m.mu.RUnlock()

		for _, h := range mids {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
