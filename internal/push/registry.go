// Package push delivers real-time events to connected users.
package push

import (
	"context"
	"sync"
)

// Conn is a live connection that can receive named events.
type Conn interface {
	Send(ctx context.Context, event string, data any) error
}

// Registry maps a user id to their live connection.
type Registry interface {
	Register(userID string, c Conn)
	// Unregister removes the entry only if it still points at c, so a
	// late disconnect never evicts a newer connection.
	Unregister(userID string, c Conn)
	Lookup(userID string) (Conn, bool)
}

// MemoryRegistry is a process-local Registry. Lookups never block
// registrations.
type MemoryRegistry struct {
	conns sync.Map // userID -> Conn
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

// Register makes c the live connection for userID, replacing any earlier one.
func (r *MemoryRegistry) Register(userID string, c Conn) {
	r.conns.Store(userID, c)
}

// Unregister removes c if it is still the connection for userID.
func (r *MemoryRegistry) Unregister(userID string, c Conn) {
	r.conns.CompareAndDelete(userID, c)
}

// Lookup returns the live connection for userID, if any.
func (r *MemoryRegistry) Lookup(userID string) (Conn, bool) {
	v, ok := r.conns.Load(userID)
	if !ok {
		return nil, false
	}
	return v.(Conn), true
}

// Len returns the number of registered users.
func (r *MemoryRegistry) Len() int {
	n := 0
	r.conns.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
