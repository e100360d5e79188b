package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soullink-backend/internal/domain"
)

func msg(roomID, senderID, content string, createdAt int64) *domain.Message {
	return &domain.Message{
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: createdAt,
	}
}

func TestAppendAccumulatesInOneBundle(t *testing.T) {
	repo := NewBundleRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "a", 1)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "b", 2)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u2", "c", 3)))

	// One bundle per (room, sender)
	assert.Equal(t, 2, repo.BundleCount())
}

func TestListByRoomSortedAscending(t *testing.T) {
	repo := NewBundleRepository()
	ctx := context.Background()

	// Interleaved senders, out-of-order timestamps
	require.NoError(t, repo.Append(ctx, msg("r1", "u2", "second", 200)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "third", 300)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "first", 100)))
	require.NoError(t, repo.Append(ctx, msg("r2", "u1", "other room", 150)))

	messages, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)
	assert.Equal(t, "u2", messages[1].SenderID)
}

func TestListByRoomEmpty(t *testing.T) {
	repo := NewBundleRepository()

	messages, err := repo.ListByRoom(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDeleteAtRemovesExactMatchesOnly(t *testing.T) {
	repo := NewBundleRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "keep-early", 100)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "drop", 200)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "keep-late", 300)))

	require.NoError(t, repo.DeleteAt(ctx, "r1", "u1", 200))

	messages, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "keep-early", messages[0].Content)
	assert.Equal(t, "keep-late", messages[1].Content)
}

func TestDeleteAtRemovesAllTimestampCollisions(t *testing.T) {
	repo := NewBundleRepository()
	ctx := context.Background()

	// Two messages sharing one millisecond; exact-match delete takes both
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "dup-a", 200)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "dup-b", 200)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "keep", 300)))

	require.NoError(t, repo.DeleteAt(ctx, "r1", "u1", 200))

	messages, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "keep", messages[0].Content)
}

func TestDeleteAtLeavesOtherSendersAndRooms(t *testing.T) {
	repo := NewBundleRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "target", 100)))
	require.NoError(t, repo.Append(ctx, msg("r1", "u2", "same time other sender", 100)))
	require.NoError(t, repo.Append(ctx, msg("r2", "u1", "same time other room", 100)))

	require.NoError(t, repo.DeleteAt(ctx, "r1", "u1", 100))

	r1, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.Equal(t, "u2", r1[0].SenderID)

	r2, err := repo.ListByRoom(ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, r2, 1)
}

func TestDeleteAtUnknownBundleIsNoop(t *testing.T) {
	repo := NewBundleRepository()

	assert.NoError(t, repo.DeleteAt(context.Background(), "r1", "u1", 100))
}

func TestDeleteAtLeavesEmptyBundleInPlace(t *testing.T) {
	repo := NewBundleRepository()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, msg("r1", "u1", "only", 100)))
	require.NoError(t, repo.DeleteAt(ctx, "r1", "u1", 100))

	messages, err := repo.ListByRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, 1, repo.BundleCount())
}
