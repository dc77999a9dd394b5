package notification

import (
	"sync"
)

// PresenceRegistry maps a user to its live connection id. It is volatile
// by design: nothing is persisted and the mapping is rebuilt as clients
// reconnect. Implementations must be safe for concurrent use.
type PresenceRegistry interface {
	// Set binds the user to a connection, replacing any previous binding.
	Set(userID, connID string)
	// Get returns the user's current connection id, if any.
	Get(userID string) (string, bool)
	// Delete unbinds the user only when the bound connection still is
	// connID, so a stale disconnect can't evict a fresh connection.
	Delete(userID, connID string)
}

// MemoryRegistry is the in-process PresenceRegistry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]string
}

// NewMemoryRegistry builds an empty in-process registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{conns: make(map[string]string)}
}

func (r *MemoryRegistry) Set(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
}

func (r *MemoryRegistry) Get(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

func (r *MemoryRegistry) Delete(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.conns[userID]; ok && cur == connID {
		delete(r.conns, userID)
	}
}
