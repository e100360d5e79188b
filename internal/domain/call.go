package domain

import (
	"time"
)

// CallSession tracks the explicit state of a two-party call, keyed by room.
// Status moves idle -> ringing -> accepted -> ended, or ringing -> rejected;
// end is also valid straight from ringing (hang up before answer).
type CallSession struct {
	RoomID          string    `json:"room_id"`
	CallerID        string    `json:"caller_id"`
	CalleeID        string    `json:"callee_id"`
	CallerSessionID string    `json:"-"`
	CalleeSessionID string    `json:"-"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
}
