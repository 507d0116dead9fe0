// Package roomregistry implements the process-wide room-id-to-actor-handle
// mapping. Access goes through a single read-write lock (shared for lookups,
// exclusive for mutation) held only during the map access itself, never
// during a channel send, so one slow
// room can never stall another's registry lookup.
package roomregistry

import (
	"sync"

	"github.com/ashbrook/roomengine/internal/roomcore"
)

// Handle bundles the four channel ends a caller outside the actor needs:
// the two priority ingress senders, the control sender, and the stats
// sender. Cancel tears the actor down: Go channels carry no sender
// reference count to observe, so closing a room is signalled by an
// explicit cancellation instead.
type Handle struct {
	ID         string
	HighPrio   chan<- roomcore.Ingress
	NormalPrio chan<- roomcore.Ingress
	Control    chan<- roomcore.Control
	Stats      chan<- roomcore.StatsQuery
	Cancel     func()
}

// Registry is the process-wide room lookup table.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Handle
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{rooms: make(map[string]*Handle)}
}

// Insert adds a handle for a freshly spawned room actor.
func (r *Registry) Insert(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[h.ID] = h
}

// Get clones a handle's channel ends for a caller. The lock is released
// before the caller ever sends on the returned channels.
func (r *Registry) Get(roomID string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.rooms[roomID]
	return h, ok
}

// Remove deletes the registry entry for roomID and returns the removed
// handle, if any. The caller is responsible for calling Cancel on it.
func (r *Registry) Remove(roomID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	return h, ok
}

// Len reports the number of live rooms, for metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// IDs returns a snapshot of every live room id.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	return ids
}
