// Package memory provides an in-memory bundle store with the same semantics
// as the Cassandra repository. Used by tests and Cassandra-less dev runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"soullink-backend/internal/domain"
)

type bundleKey struct {
	roomID   string
	senderID string
}

// BundleRepository keeps bundles keyed by (roomId, senderId)
type BundleRepository struct {
	mu      sync.RWMutex
	bundles map[bundleKey][]*domain.Message
}

// NewBundleRepository creates an empty in-memory store
func NewBundleRepository() *BundleRepository {
	return &BundleRepository{
		bundles: make(map[bundleKey][]*domain.Message),
	}
}

// Append adds the message to the existing (roomId, senderId) bundle, creating
// the bundle on first send
func (r *BundleRepository) Append(ctx context.Context, message *domain.Message) error {
	if message.MessageID == uuid.Nil {
		message.MessageID = uuid.New()
	}

	key := bundleKey{roomID: message.RoomID, senderID: message.SenderID}
	copied := *message

	r.mu.Lock()
	r.bundles[key] = append(r.bundles[key], &copied)
	r.mu.Unlock()

	return nil
}

// ListByRoom flattens every bundle for the room and sorts ascending by timestamp
func (r *BundleRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	r.mu.RLock()
	var messages []*domain.Message
	for key, bundle := range r.bundles {
		if key.roomID != roomID {
			continue
		}
		for _, m := range bundle {
			copied := *m
			messages = append(messages, &copied)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt < messages[j].CreatedAt
	})

	return messages, nil
}

// DeleteAt removes all messages with exactly the given timestamp from the
// sender's bundle. The emptied bundle remains, matching the persisted-store
// behavior of leaving the document in place.
func (r *BundleRepository) DeleteAt(ctx context.Context, roomID, senderID string, createdAt int64) error {
	key := bundleKey{roomID: roomID, senderID: senderID}

	r.mu.Lock()
	defer r.mu.Unlock()

	bundle, ok := r.bundles[key]
	if !ok {
		return nil
	}

	kept := bundle[:0]
	for _, m := range bundle {
		if m.CreatedAt != createdAt {
			kept = append(kept, m)
		}
	}
	r.bundles[key] = kept

	return nil
}

// BundleCount reports the number of bundles, for tests
func (r *BundleRepository) BundleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bundles)
}
