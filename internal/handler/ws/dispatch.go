package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"soullink-backend/internal/domain"
	"soullink-backend/pkg/logger"
)

// dispatch routes one inbound envelope to its service. A panic while handling
// a frame is recovered here so a bad payload cannot take the session down.
func (h *Hub) dispatch(c *Client, env domain.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered from panic handling frame",
				zap.String("session_id", c.id),
				zap.String("event", env.Event),
				zap.Any("panic", r))
		}
	}()

	switch env.Event {
	case domain.EventRegisterUser:
		var p domain.RegisterUserPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.registerUser(c, p)

	case domain.EventJoinChat:
		var p domain.JoinChatPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.rooms.Join(p.RoomID, c)
		h.metrics.SetActiveRooms(h.rooms.ActiveRooms())

	case domain.EventSendMessage:
		var p domain.SendMessagePayload
		if !h.decode(c, env, &p) {
			return
		}
		err := h.chat.SendMessage(context.Background(), p.RoomID, c.id, p.Message)
		h.metrics.MessagePersisted(err == nil)
		if err != nil {
			logger.Error("Failed to handle send_message",
				zap.String("room_id", p.RoomID),
				zap.Error(err))
		}

	case domain.EventCallUser:
		var p domain.CallUserPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.calls.CallUser(c, c.userID, p)

	case domain.EventAcceptCall:
		var p domain.AcceptCallPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.calls.Accept(c, p)

	case domain.EventRejectCall:
		var p domain.RejectCallPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.calls.Reject(c, p)

	case domain.EventEndCall:
		var p domain.EndCallPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.calls.End(c, p)

	case domain.EventWebRTCOffer, domain.EventWebRTCAnswer, domain.EventWebRTCICE:
		var p domain.SignalPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.calls.Forward(c, env.Event, p)

	case domain.EventSendEmoji:
		var p domain.SendEmojiPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.reactions.Emoji(c, p)

	case domain.EventSendEmotion:
		var p domain.SendEmotionPayload
		if !h.decode(c, env, &p) {
			return
		}
		h.reactions.Emotion(c, p)

	default:
		logger.Warn("Ignoring unknown event",
			zap.String("session_id", c.id),
			zap.String("event", env.Event))
	}
}

// registerUser binds the user identity to this session and announces it
func (h *Hub) registerUser(c *Client, p domain.RegisterUserPayload) {
	if p.UserID == "" {
		return
	}

	h.directory.Register(p.UserID, c)
	c.userID = p.UserID

	h.broadcastAll(domain.EventUserOnline, domain.UserPresenceEvent{UserID: p.UserID}, c.id)

	if h.mirror != nil {
		if err := h.mirror.SetUserOnline(context.Background(), p.UserID); err != nil {
			logger.Warn("Failed to mirror online status",
				zap.String("user_id", p.UserID),
				zap.Error(err))
		}
	}
	h.publishPresence(p.UserID, "online")

	logger.Info("User registered",
		zap.String("user_id", p.UserID),
		zap.String("session_id", c.id))
}

// decode unmarshals the envelope payload, dropping the frame on failure
func (h *Hub) decode(c *Client, env domain.Envelope, out interface{}) bool {
	if err := json.Unmarshal(env.Data, out); err != nil {
		logger.Warn("Discarding frame with malformed payload",
			zap.String("session_id", c.id),
			zap.String("event", env.Event),
			zap.Error(err))
		return false
	}
	return true
}
