// Package presence tracks which live connection, if any, currently represents
// each user. State is held in memory for the lifetime of the process.
package presence

import "sync"

// Registry maps a user id to the connection id most recently registered for it.
// A second registration for the same user replaces the first; only the newest
// connection is reachable afterwards.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]string // userID -> connID
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]string)}
}

// Register inserts or overwrites the mapping for userID.
func (r *Registry) Register(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = connID
}

// Unregister removes the mapping for userID. It is a no-op when absent.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, userID)
}

// Resolve returns the connection id registered for userID.
func (r *Registry) Resolve(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	return connID, ok
}

// Do resolves userID and, when present, calls fn with the connection id while
// holding the read lock. Register and Unregister cannot interleave with fn, so
// fn never acts on a mapping that was removed after the lookup. fn must not
// call back into the registry.
func (r *Registry) Do(userID string, fn func(connID string)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.conns[userID]
	if !ok {
		return false
	}
	fn(connID)
	return true
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
