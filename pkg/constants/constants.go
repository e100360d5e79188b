// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout bounds a single WebSocket write
	WebSocketWriteTimeout = 10 * time.Second
)

// WebSocket buffer constants
const (
	// ClientSendBuffer is the per-session outbound frame buffer size
	ClientSendBuffer = 256

	// ReadBufferSize is the WebSocket read buffer size in bytes
	ReadBufferSize = 1024

	// WriteBufferSize is the WebSocket write buffer size in bytes
	WriteBufferSize = 1024
)

// Call-related constants
const (
	// CallStatusIdle indicates no call exists for a room
	CallStatusIdle = "idle"

	// CallStatusRinging indicates a call is waiting to be answered
	CallStatusRinging = "ringing"

	// CallStatusAccepted indicates a call is in progress
	CallStatusAccepted = "accepted"

	// CallStatusRejected indicates the callee declined the call
	CallStatusRejected = "rejected"

	// CallStatusEnded indicates a call has ended
	CallStatusEnded = "ended"

	// DefaultRingTimeout bounds how long a call may stay ringing; zero disables the timer
	DefaultRingTimeout = 60 * time.Second
)

// JWT-related constants
const (
	// AccessTokenExpiry is the default access token lifetime
	AccessTokenExpiry = 15 * time.Minute
)

// Presence constants
const (
	// PresenceTTL is how long a Redis presence key lives without a refresh
	PresenceTTL = 5 * time.Minute
)

// Message constants
const (
	// MaxMessageLength is the maximum allowed message length
	MaxMessageLength = 10000
)
