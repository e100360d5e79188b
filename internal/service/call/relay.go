// Package call routes the two-party call lifecycle and relays WebRTC
// signaling payloads without interpreting them.
package call

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"soullink-backend/internal/domain"
	"soullink-backend/internal/session"
	"soullink-backend/pkg/constants"
	"soullink-backend/pkg/logger"
)

// Directory resolves a user identity to its live session
type Directory interface {
	Lookup(userID string) (session.Sender, bool)
}

// Rooms is the broadcast-group surface the relay needs
type Rooms interface {
	Join(roomID string, s session.Sender)
	Leave(roomID, sessionID string)
	Contains(roomID, sessionID string) bool
	Broadcast(roomID, event string, data interface{}, excludeSessionID string)
}

// Recorder receives call metrics. May be satisfied by pkg/metrics.Metrics.
type Recorder interface {
	CallEvent(event string)
	UnreachablePeer()
}

type noopRecorder struct{}

func (noopRecorder) CallEvent(string) {}
func (noopRecorder) UnreachablePeer() {}

// callState is the relay's view of one call: the domain session plus the
// transport sessions of both parties and the ring timer
type callState struct {
	domain.CallSession
	caller session.Sender
	callee session.Sender
	timer  *time.Timer
}

// Relay mediates call setup between exactly two sessions. Call state is
// explicit per room so out-of-order events (accept without ringing, double
// end) become deterministic no-ops instead of half-applied transitions.
type Relay struct {
	directory   Directory
	rooms       Rooms
	ringTimeout time.Duration
	recorder    Recorder

	mu    sync.Mutex
	calls map[string]*callState
}

// NewRelay creates a call relay. ringTimeout of zero disables the ringing
// timer; recorder may be nil.
func NewRelay(directory Directory, rooms Rooms, ringTimeout time.Duration, recorder Recorder) *Relay {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Relay{
		directory:   directory,
		rooms:       rooms,
		ringTimeout: ringTimeout,
		recorder:    recorder,
		calls:       make(map[string]*callState),
	}
}

// CallUser starts a call: idle -> ringing. The callee must resolve to a live
// session; otherwise the request is dropped silently and the caller sees no
// effect (the callee's presence is not disclosed).
func (r *Relay) CallUser(caller session.Sender, callerUserID string, p domain.CallUserPayload) {
	if p.ToUserID == "" || p.RoomID == "" {
		return
	}

	target, ok := r.directory.Lookup(p.ToUserID)
	if !ok {
		logger.Debug("Call target has no live session",
			zap.String("room_id", p.RoomID),
			zap.String("to_user_id", p.ToUserID))
		r.recorder.UnreachablePeer()
		return
	}

	r.mu.Lock()
	if existing, exists := r.calls[p.RoomID]; exists {
		r.mu.Unlock()
		logger.Warn("Ignoring call_user for room with call in progress",
			zap.String("room_id", p.RoomID),
			zap.String("status", existing.Status))
		r.recorder.CallEvent("invalid")
		return
	}

	state := &callState{
		CallSession: domain.CallSession{
			RoomID:          p.RoomID,
			CallerID:        callerUserID,
			CalleeID:        p.ToUserID,
			CallerSessionID: caller.SessionID(),
			CalleeSessionID: target.SessionID(),
			Status:          constants.CallStatusRinging,
			StartedAt:       time.Now(),
		},
		caller: caller,
		callee: target,
	}
	if r.ringTimeout > 0 {
		roomID := p.RoomID
		state.timer = time.AfterFunc(r.ringTimeout, func() { r.expire(roomID) })
	}
	r.calls[p.RoomID] = state
	r.mu.Unlock()

	r.recorder.CallEvent("initiated")
	target.Send(domain.EventIncomingCall, domain.IncomingCallEvent{
		RoomID: p.RoomID,
		Caller: p.Caller,
	})
}

// Accept transitions ringing -> accepted. The accepting session joins the
// room and the notification reaches the caller whether or not the caller has
// joined the room yet.
func (r *Relay) Accept(callee session.Sender, p domain.AcceptCallPayload) {
	r.mu.Lock()
	state, exists := r.calls[p.RoomID]
	if !exists || state.Status != constants.CallStatusRinging {
		r.mu.Unlock()
		r.invalidTransition(p.RoomID, state, "accept_call")
		return
	}
	state.Status = constants.CallStatusAccepted
	state.callee = callee
	state.CalleeSessionID = callee.SessionID()
	stopTimer(state)
	callerSessionID := state.CallerSessionID
	callerSender := state.caller
	r.mu.Unlock()

	r.rooms.Join(p.RoomID, callee)

	event := domain.CallStatusEvent{RoomID: p.RoomID}
	r.rooms.Broadcast(p.RoomID, domain.EventCallAccepted, event, callee.SessionID())

	// The caller may not have joined the room yet; target it directly so the
	// acceptance is never lost to room-join timing
	if !r.rooms.Contains(p.RoomID, callerSessionID) {
		callerSender.Send(domain.EventCallAccepted, event)
	}

	r.recorder.CallEvent("accepted")
}

// Reject transitions ringing -> rejected. Only the caller is notified,
// directly; the room never sees a rejection.
func (r *Relay) Reject(callee session.Sender, p domain.RejectCallPayload) {
	if p.ToUserID == "" {
		return
	}

	r.mu.Lock()
	var state *callState
	for _, cs := range r.calls {
		if cs.CallerID == p.ToUserID && cs.Status == constants.CallStatusRinging {
			state = cs
			break
		}
	}
	if state == nil {
		r.mu.Unlock()
		logger.Warn("Ignoring reject_call without ringing call",
			zap.String("to_user_id", p.ToUserID))
		r.recorder.CallEvent("invalid")
		return
	}
	state.Status = constants.CallStatusRejected
	stopTimer(state)
	delete(r.calls, state.RoomID)
	caller := state.caller
	roomID := state.RoomID
	r.mu.Unlock()

	caller.Send(domain.EventCallRejected, domain.CallStatusEvent{RoomID: roomID})
	r.recorder.CallEvent("rejected")
}

// End terminates a call from ringing or accepted (hanging up before the
// answer is valid). The room is notified and both parties leave it.
func (r *Relay) End(s session.Sender, p domain.EndCallPayload) {
	r.mu.Lock()
	state, exists := r.calls[p.RoomID]
	if !exists || (state.Status != constants.CallStatusRinging && state.Status != constants.CallStatusAccepted) {
		r.mu.Unlock()
		r.invalidTransition(p.RoomID, state, "end_call")
		return
	}
	state.Status = constants.CallStatusEnded
	stopTimer(state)
	delete(r.calls, p.RoomID)
	callerSessionID := state.CallerSessionID
	calleeSessionID := state.CalleeSessionID
	r.mu.Unlock()

	r.rooms.Broadcast(p.RoomID, domain.EventCallEnded, domain.CallStatusEvent{RoomID: p.RoomID}, s.SessionID())
	r.rooms.Leave(p.RoomID, callerSessionID)
	r.rooms.Leave(p.RoomID, calleeSessionID)

	r.recorder.CallEvent("ended")
}

// Forward relays an opaque signaling payload (offer, answer, or ICE
// candidate) to the rest of the room, excluding the sender. Payload contents
// are never inspected.
func (r *Relay) Forward(s session.Sender, event string, p domain.SignalPayload) {
	if p.RoomID == "" {
		return
	}
	r.rooms.Broadcast(p.RoomID, event, p.Payload, s.SessionID())
}

// HandleDisconnect ends every call the session is a party to
func (r *Relay) HandleDisconnect(sessionID string) {
	r.mu.Lock()
	var ended []*callState
	for roomID, state := range r.calls {
		if state.CallerSessionID != sessionID && state.CalleeSessionID != sessionID {
			continue
		}
		state.Status = constants.CallStatusEnded
		stopTimer(state)
		delete(r.calls, roomID)
		ended = append(ended, state)
	}
	r.mu.Unlock()

	for _, state := range ended {
		r.rooms.Broadcast(state.RoomID, domain.EventCallEnded, domain.CallStatusEvent{RoomID: state.RoomID}, sessionID)
		r.rooms.Leave(state.RoomID, state.CallerSessionID)
		r.rooms.Leave(state.RoomID, state.CalleeSessionID)
		r.recorder.CallEvent("ended")
	}
}

// ActiveCalls reports the number of tracked calls
func (r *Relay) ActiveCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// expire fires when a call stays ringing past the configured timeout
func (r *Relay) expire(roomID string) {
	r.mu.Lock()
	state, exists := r.calls[roomID]
	if !exists || state.Status != constants.CallStatusRinging {
		r.mu.Unlock()
		return
	}
	state.Status = constants.CallStatusEnded
	delete(r.calls, roomID)
	r.mu.Unlock()

	event := domain.CallStatusEvent{RoomID: roomID}
	state.caller.Send(domain.EventCallEnded, event)
	state.callee.Send(domain.EventCallEnded, event)
	r.rooms.Leave(roomID, state.CallerSessionID)
	r.rooms.Leave(roomID, state.CalleeSessionID)

	logger.Debug("Ringing call timed out", zap.String("room_id", roomID))
	r.recorder.CallEvent("timeout")
}

func (r *Relay) invalidTransition(roomID string, state *callState, event string) {
	status := constants.CallStatusIdle
	if state != nil {
		status = state.Status
	}
	logger.Warn("Ignoring call event in invalid state",
		zap.String("room_id", roomID),
		zap.String("event", event),
		zap.String("status", status))
	r.recorder.CallEvent("invalid")
}

func stopTimer(state *callState) {
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
}
