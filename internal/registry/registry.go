package registry

import (
	"sync"

	"github.com/pscheid92/reciyap-relay/internal/domain"
)

// Registry tracks at most one connection per user id.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]domain.Connection
}

func New() *Registry {
	return &Registry{entries: make(map[string]domain.Connection)}
}

// Register inserts or replaces the entry for userID and returns the handle it
// replaced, or nil. Closing the replaced handle is up to the caller.
func (r *Registry) Register(userID string, conn domain.Connection) domain.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.entries[userID]
	r.entries[userID] = conn
	if previous == conn {
		return nil
	}
	return previous
}

// Deregister removes the entry for userID. Absent ids are a no-op.
func (r *Registry) Deregister(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[userID]; !ok {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Release removes the entry for userID only if it still holds conn.
// A connection that was replaced can therefore never evict its successor.
func (r *Registry) Release(userID string, conn domain.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.entries[userID]
	if !ok || current != conn {
		return false
	}
	delete(r.entries, userID)
	return true
}

// Get returns the connection registered for userID.
func (r *Registry) Get(userID string) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.entries[userID]
	return conn, ok
}

// Snapshot returns a point-in-time copy of all entries.
func (r *Registry) Snapshot() []domain.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.Entry, 0, len(r.entries))
	for userID, conn := range r.entries {
		entries = append(entries, domain.Entry{UserID: userID, Conn: conn})
	}
	return entries
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Drain removes and returns every entry. Used on shutdown.
func (r *Registry) Drain() []domain.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]domain.Entry, 0, len(r.entries))
	for userID, conn := range r.entries {
		entries = append(entries, domain.Entry{UserID: userID, Conn: conn})
	}
	r.entries = make(map[string]domain.Connection)
	return entries
}
