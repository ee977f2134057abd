package storage

import (
	"context"
	"sync"
)

// Entry is one live session: a logical user bound to one transport connection.
// Neither field is validated here; the gateway trusts upstream identity.
type Entry struct {
	UserID string `json:"userId"`
	ConnID string `json:"connectionId"`
}

// Store is the presence table contract: who is online, on which connection(s).
//
// Invariants every implementation must keep:
//   - no two entries share a ConnID;
//   - the same UserID may appear under many ConnIDs (multi-tab, multi-device);
//   - Announce is idempotent per (user, conn) pair, Forget per conn.
//
// The in-memory implementation below is the default. A shared implementation
// (redis_store.go) satisfies the same contract for deployments that want the
// table to survive the process or be visible across nodes.
type Store interface {
	// Announce records (userID, connID). Returns true when the table changed.
	Announce(ctx context.Context, userID, connID string) (bool, error)
	// Forget drops whatever entry holds connID. Returns true when the table changed.
	Forget(ctx context.Context, connID string) (bool, error)
	// Resolve lists the live connection IDs of a user. Empty slice when offline.
	Resolve(ctx context.Context, userID string) ([]string, error)
	// Snapshot returns the full presence table.
	Snapshot(ctx context.Context) ([]Entry, error)
	Close() error
}

// MemoryStore keeps the presence table in process memory, insertion-ordered.
// All methods are safe for concurrent use; none of them ever return an error.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry                        // insertion order, one per conn
	byConn  map[string]string              // connID -> userID
	byUser  map[string]map[string]struct{} // userID -> set of connID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byConn: make(map[string]string),
		byUser: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Announce(_ context.Context, userID, connID string) (bool, error) {
	if connID == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byConn[connID]; ok {
		if owner == userID {
			// Re-announce on the same connection: no-op.
			return false, nil
		}
		// Same connection announcing a different user: rebind, the conn
		// uniqueness invariant wins over the stale identity.
		s.dropLocked(connID, owner)
	}

	s.entries = append(s.entries, Entry{UserID: userID, ConnID: connID})
	s.byConn[connID] = userID
	set := s.byUser[userID]
	if set == nil {
		set = make(map[string]struct{})
		s.byUser[userID] = set
	}
	set[connID] = struct{}{}
	return true, nil
}

func (s *MemoryStore) Forget(_ context.Context, connID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.byConn[connID]
	if !ok {
		// Disconnect before any announce, or double disconnect: no-op.
		return false, nil
	}
	s.dropLocked(connID, owner)
	return true, nil
}

func (s *MemoryStore) Resolve(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byUser[userID]
	if len(set) == 0 {
		return nil, nil
	}
	// Walk the ordered slice so multi-device delivery order is stable.
	out := make([]string, 0, len(set))
	for _, e := range s.entries {
		if _, ok := set[e.ConnID]; ok {
			out = append(out, e.ConnID)
		}
	}
	return out, nil
}

func (s *MemoryStore) Snapshot(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

// dropLocked removes one entry; caller holds the write lock.
func (s *MemoryStore) dropLocked(connID, owner string) {
	delete(s.byConn, connID)
	if set := s.byUser[owner]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(s.byUser, owner)
		}
	}
	for i, e := range s.entries {
		if e.ConnID == connID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
}
