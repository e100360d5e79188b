// Package reaction fans ephemeral reactions out to a room. Nothing here is
// persisted; a reaction missed is a reaction lost.
package reaction

import (
	"time"

	"soullink-backend/internal/domain"
	"soullink-backend/internal/session"
)

// Rooms is the broadcast surface reactions need
type Rooms interface {
	Broadcast(roomID, event string, data interface{}, excludeSessionID string)
}

// Recorder counts delivered reactions by kind; may be nil
type Recorder interface {
	Reaction(kind string)
}

type noopRecorder struct{}

func (noopRecorder) Reaction(string) {}

// Broadcaster relays emoji and emotion reactions
type Broadcaster struct {
	rooms    Rooms
	recorder Recorder
	now      func() time.Time
}

// NewBroadcaster creates a reaction broadcaster
func NewBroadcaster(rooms Rooms, recorder Recorder) *Broadcaster {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Broadcaster{
		rooms:    rooms,
		recorder: recorder,
		now:      time.Now,
	}
}

// Emoji relays an emoji to every session in the room, the sender included,
// so the sender's own UI renders it through the same path as everyone else's
func (b *Broadcaster) Emoji(s session.Sender, p domain.SendEmojiPayload) {
	if p.RoomID == "" || p.Emoji == "" {
		return
	}
	b.rooms.Broadcast(p.RoomID, domain.EventReceiveEmoji, p.Emoji, "")
	b.recorder.Reaction("emoji")
}

// Emotion relays classifier output to every session in the room, the sender
// included, with the delivery time stamped server-side in epoch milliseconds
func (b *Broadcaster) Emotion(s session.Sender, p domain.SendEmotionPayload) {
	if p.RoomID == "" || p.Emotion == "" {
		return
	}
	b.rooms.Broadcast(p.RoomID, domain.EventReceiveEmotion, domain.EmotionEvent{
		Emotion:    p.Emotion,
		Confidence: p.Confidence,
		Time:       b.now().UnixMilli(),
	}, "")
	b.recorder.Reaction("emotion")
}
