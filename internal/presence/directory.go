// Package presence maps user identities to their live transport sessions.
package presence

import (
	"sync"

	"soullink-backend/internal/session"
)

// Directory owns the userID -> live session mapping. It is the only writer of
// that state; all mutation happens through Register and Unregister.
type Directory struct {
	mu     sync.RWMutex
	byUser map[string]session.Sender
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		byUser: make(map[string]session.Sender),
	}
}

// Register binds userID to the given session. Last writer wins: an existing
// mapping for the same userID is silently overwritten, orphaning the previous
// session's registration.
func (d *Directory) Register(userID string, s session.Sender) {
	if userID == "" {
		return
	}
	d.mu.Lock()
	d.byUser[userID] = s
	d.mu.Unlock()
}

// Lookup resolves userID to its live session. The second return is false when
// the user has no registered session; callers treat that as peer unreachable
// and must not retry.
func (d *Directory) Lookup(userID string) (session.Sender, bool) {
	d.mu.RLock()
	s, ok := d.byUser[userID]
	d.mu.RUnlock()
	return s, ok
}

// Unregister removes every user mapped to the given session and returns the
// removed user IDs. Linear scan; the map is bounded by concurrent sessions.
func (d *Directory) Unregister(sessionID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var removed []string
	for userID, s := range d.byUser {
		if s.SessionID() == sessionID {
			delete(d.byUser, userID)
			removed = append(removed, userID)
		}
	}
	return removed
}

// OnlineUsers returns the currently registered user IDs
func (d *Directory) OnlineUsers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]string, 0, len(d.byUser))
	for userID := range d.byUser {
		users = append(users, userID)
	}
	return users
}
