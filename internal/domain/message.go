package domain

import (
	"github.com/google/uuid"
)

// Message represents one chat message row
// Maps to the Cassandra room_messages table; created_at is epoch milliseconds,
// the canonical timestamp form for storage, wire payloads, and delete matching
type Message struct {
	MessageID     uuid.UUID `json:"message_id"`
	RoomID        string    `json:"room_id"`
	SenderID      string    `json:"sender_id"`
	Content       string    `json:"content"`
	AttachmentURL string    `json:"attachment_url,omitempty"`
	CreatedAt     int64     `json:"created_at"`
}

// BundleMessage is a single entry inside a MessageBundle
type BundleMessage struct {
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

// MessageBundle is the persisted aggregate of one sender's messages in one
// room. At most one bundle accumulates per (roomId, senderId); appends land in
// the existing bundle when present.
type MessageBundle struct {
	RoomID    string          `json:"room_id"`
	SenderID  string          `json:"sender_id"`
	Messages  []BundleMessage `json:"messages"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

// MessageResponse is the flattened history entry returned to REST clients.
// Field names match the mobile client contract.
type MessageResponse struct {
	SenderID      string `json:"sender_id"`
	Content       string `json:"content"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}
