// Package session defines the transport-session contract shared by the
// presence directory, the room router, and the call relay. A session is one
// live client connection; the WebSocket client is the production
// implementation.
package session

// Sender is a live transport session that events can be pushed to.
// Send must never block the caller; slow consumers are the transport's
// problem, not the relay's.
type Sender interface {
	SessionID() string
	Send(event string, data interface{})
}
