package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"soullink-backend/internal/domain"
	"soullink-backend/pkg/constants"
	apperrors "soullink-backend/pkg/errors"
	"soullink-backend/pkg/logger"
)

// MessageRepository is the durable bundle store
type MessageRepository interface {
	Append(ctx context.Context, message *domain.Message) error
	ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error)
	DeleteAt(ctx context.Context, roomID, senderID string, createdAt int64) error
}

// Broadcaster fans an event out to a room's live sessions
type Broadcaster interface {
	Broadcast(roomID, event string, data interface{}, excludeSessionID string)
}

// Publisher publishes to a pub/sub channel for cross-instance consumers
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// Recorder counts publish outcomes. May be satisfied by pkg/metrics.Metrics.
type Recorder interface {
	RedisPublish(ok bool)
}

type noopRecorder struct{}

func (noopRecorder) RedisPublish(bool) {}

// Service handles chat message persistence and delivery
type Service struct {
	repo      MessageRepository
	rooms     Broadcaster
	publisher Publisher // optional
	recorder  Recorder
}

// NewService creates a new chat service. publisher may be nil when no Redis
// is configured; recorder may be nil.
func NewService(repo MessageRepository, rooms Broadcaster, publisher Publisher, recorder Recorder) *Service {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		repo:      repo,
		rooms:     rooms,
		publisher: publisher,
		recorder:  recorder,
	}
}

// SendMessage durably appends the message to its (roomId, senderId) bundle,
// then fans it out to the room, excluding the sending session.
//
// Ordering here is the contract: the broadcast must never happen before the
// write is confirmed, or a receiver could see a live message missing from a
// history replay issued moments later. A failed write suppresses the
// broadcast entirely.
func (s *Service) SendMessage(ctx context.Context, roomID, senderSessionID string, message domain.ChatMessagePayload) error {
	if roomID == "" || message.Content == "" {
		return apperrors.InvalidInputError("roomId and message content are required")
	}
	if len(message.Content) > constants.MaxMessageLength {
		return apperrors.ValidationError("message content too long")
	}

	msg := &domain.Message{
		RoomID:        roomID,
		SenderID:      message.SenderID,
		Content:       message.Content,
		AttachmentURL: message.AttachmentURL,
		CreatedAt:     message.CreatedAt,
	}

	if err := s.repo.Append(ctx, msg); err != nil {
		return apperrors.PersistenceError(err)
	}

	// Write confirmed; the room may now see it
	s.rooms.Broadcast(roomID, domain.EventReceiveMessage, message, senderSessionID)

	if s.publisher != nil {
		channel := fmt.Sprintf("chat:%s", roomID)
		err := s.publisher.Publish(ctx, channel, msg)
		s.recorder.RedisPublish(err == nil)
		if err != nil {
			// Local delivery already succeeded; publish is best-effort
			logger.Warn("Failed to publish message to Redis",
				zap.String("room_id", roomID),
				zap.Error(err))
		}
	}

	return nil
}

// RoomHistory returns every message in the room, flattened across sender
// bundles and sorted ascending by timestamp. Replay order is authoritative.
func (s *Service) RoomHistory(ctx context.Context, roomID string) ([]*domain.MessageResponse, error) {
	if roomID == "" {
		return nil, apperrors.MissingFieldError("roomId")
	}

	messages, err := s.repo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, apperrors.PersistenceError(err)
	}

	responses := make([]*domain.MessageResponse, len(messages))
	for i, m := range messages {
		responses[i] = &domain.MessageResponse{
			SenderID:      m.SenderID,
			Content:       m.Content,
			AttachmentURL: m.AttachmentURL,
			CreatedAt:     m.CreatedAt,
		}
	}

	return responses, nil
}

// DeleteMessage removes every message in the sender's bundle whose timestamp
// equals createdAt exactly. Timestamp collisions remove all matching entries.
func (s *Service) DeleteMessage(ctx context.Context, roomID, senderID string, createdAt int64) error {
	if roomID == "" || senderID == "" {
		return apperrors.InvalidInputError("roomId and senderId are required")
	}

	if err := s.repo.DeleteAt(ctx, roomID, senderID, createdAt); err != nil {
		return apperrors.PersistenceError(err)
	}

	return nil
}
