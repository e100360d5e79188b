package domain

import "encoding/json"

// Inbound event names (client -> server)
const (
	EventRegisterUser = "register_user"
	EventJoinChat     = "join_chat"
	EventSendMessage  = "send_message"
	EventCallUser     = "call_user"
	EventAcceptCall   = "accept_call"
	EventRejectCall   = "reject_call"
	EventEndCall      = "end_call"
	EventWebRTCOffer  = "webrtc_offer"
	EventWebRTCAnswer = "webrtc_answer"
	EventWebRTCICE    = "webrtc_ice"
	EventSendEmoji    = "send_emoji"
	EventSendEmotion  = "send_emotion"
)

// Outbound event names (server -> client)
const (
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventReceiveMessage = "receive_message"
	EventIncomingCall   = "incoming_call"
	EventCallAccepted   = "call_accepted"
	EventCallRejected   = "call_rejected"
	EventCallEnded      = "call_ended"
	EventReceiveEmoji   = "receive_emoji"
	EventReceiveEmotion = "receive_emotion"
)

// Envelope frames every WebSocket message in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterUserPayload binds a user identity to the current session
type RegisterUserPayload struct {
	UserID string `json:"userId"`
}

// JoinChatPayload joins the session to a room
type JoinChatPayload struct {
	RoomID string `json:"roomId"`
}

// ChatMessagePayload is the message object carried by send_message and echoed
// verbatim to the room as receive_message
type ChatMessagePayload struct {
	SenderID      string `json:"sender_id"`
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

// SendMessagePayload carries a chat message for a room
type SendMessagePayload struct {
	RoomID  string             `json:"roomId"`
	Message ChatMessagePayload `json:"message"`
}

// CallUserPayload initiates a call. Caller is opaque profile data relayed to
// the callee untouched.
type CallUserPayload struct {
	ToUserID string          `json:"toUserId"`
	RoomID   string          `json:"roomId"`
	Caller   json.RawMessage `json:"caller,omitempty"`
}

// IncomingCallEvent is delivered to the callee's session
type IncomingCallEvent struct {
	RoomID string          `json:"roomId"`
	Caller json.RawMessage `json:"caller,omitempty"`
}

// AcceptCallPayload accepts a ringing call
type AcceptCallPayload struct {
	RoomID string `json:"roomId"`
}

// RejectCallPayload rejects a ringing call; toUserId names the caller
type RejectCallPayload struct {
	ToUserID string `json:"toUserId"`
}

// EndCallPayload ends a ringing or accepted call
type EndCallPayload struct {
	RoomID string `json:"roomId"`
}

// CallStatusEvent notifies call lifecycle transitions
type CallStatusEvent struct {
	RoomID string `json:"roomId"`
}

// SignalPayload carries an opaque WebRTC offer/answer/candidate for a room
type SignalPayload struct {
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// UserPresenceEvent announces a user coming online or going offline
type UserPresenceEvent struct {
	UserID string `json:"userId"`
}

// PresenceTransitionEvent is the pub/sub form of a presence change, published
// for cross-instance consumers
type PresenceTransitionEvent struct {
	UserID string `json:"userId"`
	Status string `json:"status"` // "online" or "offline"
}

// SendEmojiPayload is an ephemeral emoji reaction for a room
type SendEmojiPayload struct {
	RoomID string `json:"roomId"`
	Emoji  string `json:"emoji"`
}

// SendEmotionPayload carries classifier output for a room
type SendEmotionPayload struct {
	RoomID     string  `json:"roomId"`
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// EmotionEvent is the fan-out form of SendEmotionPayload with a
// server-stamped delivery time in epoch milliseconds
type EmotionEvent struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Time       int64   `json:"time"`
}
