package cassandra

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"soullink-backend/internal/database"
	"soullink-backend/internal/domain"
)

// BundleRepository stores chat messages in Cassandra.
//
// Schema:
//
//	CREATE TABLE room_messages (
//	    room_id        text,
//	    sender_id      text,
//	    created_at     bigint,
//	    message_id     uuid,
//	    content        text,
//	    attachment_url text,
//	    PRIMARY KEY ((room_id), sender_id, created_at, message_id)
//	);
//
// A bundle is the (room_id, sender_id) clustering slice, so appends for the
// same sender in the same room always land in the same partition range and
// history is a single-partition read.
type BundleRepository struct {
	db *database.CassandraDB
}

// NewBundleRepository creates a new BundleRepository
func NewBundleRepository(db *database.CassandraDB) *BundleRepository {
	return &BundleRepository{db: db}
}

// Append inserts one message into the sender's bundle
func (r *BundleRepository) Append(ctx context.Context, message *domain.Message) error {
	if message.MessageID == uuid.Nil {
		message.MessageID = uuid.New()
	}

	query := `
		INSERT INTO room_messages (
			room_id, sender_id, created_at, message_id, content, attachment_url
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := r.db.ExecWithContext(ctx, query,
		message.RoomID,
		message.SenderID,
		message.CreatedAt,
		message.MessageID,
		message.Content,
		message.AttachmentURL,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// ListByRoom gathers every bundle for the room, flattens them, and returns
// the messages sorted ascending by timestamp. History sizes are bounded by a
// single conversation, so the result is fully materialized.
func (r *BundleRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	query := `
		SELECT room_id, sender_id, created_at, message_id, content, attachment_url
		FROM room_messages
		WHERE room_id = ?
	`

	iter := r.db.QueryWithContext(ctx, query, roomID).Iter()

	var messages []*domain.Message
	for {
		message := &domain.Message{}
		if !iter.Scan(
			&message.RoomID,
			&message.SenderID,
			&message.CreatedAt,
			&message.MessageID,
			&message.Content,
			&message.AttachmentURL,
		) {
			break
		}
		messages = append(messages, message)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list room messages: %w", err)
	}

	// Clustering order is (sender_id, created_at); replay order is by timestamp
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})

	return messages, nil
}

// DeleteAt removes every message in the sender's bundle whose timestamp
// equals createdAt exactly. The range delete covers all message_ids at that
// timestamp, so granularity collisions remove all matching entries.
func (r *BundleRepository) DeleteAt(ctx context.Context, roomID, senderID string, createdAt int64) error {
	query := `DELETE FROM room_messages WHERE room_id = ? AND sender_id = ? AND created_at = ?`

	if err := r.db.ExecWithContext(ctx, query, roomID, senderID, createdAt); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}
