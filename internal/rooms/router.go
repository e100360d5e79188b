// Package rooms manages named broadcast groups of live sessions.
package rooms

import (
	"sync"

	"soullink-backend/internal/session"
)

// Router owns room membership. A session may belong to any number of rooms;
// a room with zero members is dropped from the map and has no effect.
type Router struct {
	mu    sync.RWMutex
	rooms map[string]map[string]session.Sender
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{
		rooms: make(map[string]map[string]session.Sender),
	}
}

// Join adds the session to a room. Idempotent: joining twice is a no-op.
func (r *Router) Join(roomID string, s session.Sender) {
	if roomID == "" {
		return
	}
	r.mu.Lock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]session.Sender)
		r.rooms[roomID] = members
	}
	members[s.SessionID()] = s
	r.mu.Unlock()
}

// Leave removes the session from a room. Idempotent.
func (r *Router) Leave(roomID, sessionID string) {
	r.mu.Lock()
	if members, ok := r.rooms[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	r.mu.Unlock()
}

// Contains reports whether the session is currently joined to the room
func (r *Router) Contains(roomID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[sessionID]
	return ok
}

// Broadcast delivers an event to every member of the room except the
// optionally excluded session (pass "" to include everyone). Delivery order
// across calls matches call order; Send itself never blocks.
func (r *Router) Broadcast(roomID, event string, data interface{}, excludeSessionID string) {
	r.mu.RLock()
	members := r.rooms[roomID]
	targets := make([]session.Sender, 0, len(members))
	for id, s := range members {
		if id == excludeSessionID {
			continue
		}
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	for _, s := range targets {
		s.Send(event, data)
	}
}

// RemoveSession removes the session from every room it joined. Called on
// transport disconnect.
func (r *Router) RemoveSession(sessionID string) {
	r.mu.Lock()
	for roomID, members := range r.rooms {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	r.mu.Unlock()
}

// ActiveRooms returns the number of rooms with at least one member
func (r *Router) ActiveRooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
