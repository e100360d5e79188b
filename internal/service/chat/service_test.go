package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"soullink-backend/internal/domain"
	apperrors "soullink-backend/pkg/errors"
	"soullink-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	m.Run()
}

// Mocks

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) DeleteAt(ctx context.Context, roomID, senderID string, createdAt int64) error {
	args := m.Called(ctx, roomID, senderID, createdAt)
	return args.Error(0)
}

type broadcastCall struct {
	RoomID    string
	Event     string
	Data      interface{}
	Excluded  string
	CalledAt  time.Time
	Persisted bool
}

// recordingBroadcaster captures Broadcast calls and, via the persisted
// pointer, whether the repository write had completed when each arrived
type recordingBroadcaster struct {
	mu        sync.Mutex
	calls     []broadcastCall
	persisted *bool
}

func (b *recordingBroadcaster) Broadcast(roomID, event string, data interface{}, excludeSessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := broadcastCall{
		RoomID:   roomID,
		Event:    event,
		Data:     data,
		Excluded: excludeSessionID,
		CalledAt: time.Now(),
	}
	if b.persisted != nil {
		call.Persisted = *b.persisted
	}
	b.calls = append(b.calls, call)
}

// slowRepo confirms the write only after an artificial delay
type slowRepo struct {
	delay     time.Duration
	persisted bool
	err       error
}

func (r *slowRepo) Append(ctx context.Context, message *domain.Message) error {
	time.Sleep(r.delay)
	if r.err != nil {
		return r.err
	}
	r.persisted = true
	return nil
}

func (r *slowRepo) ListByRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	return nil, nil
}

func (r *slowRepo) DeleteAt(ctx context.Context, roomID, senderID string, createdAt int64) error {
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

func TestSendMessagePersistsThenBroadcasts(t *testing.T) {
	repo := &slowRepo{delay: 50 * time.Millisecond}
	broadcaster := &recordingBroadcaster{persisted: &repo.persisted}
	service := NewService(repo, broadcaster, nil, nil)

	msg := domain.ChatMessagePayload{SenderID: "u1", Content: "hello", CreatedAt: 1000}
	err := service.SendMessage(context.Background(), "r1", "sess-a", msg)
	require.NoError(t, err)

	require.Len(t, broadcaster.calls, 1)
	call := broadcaster.calls[0]
	assert.Equal(t, "r1", call.RoomID)
	assert.Equal(t, domain.EventReceiveMessage, call.Event)
	assert.Equal(t, msg, call.Data)
	assert.Equal(t, "sess-a", call.Excluded)
	// The write must have been confirmed before the broadcast fired
	assert.True(t, call.Persisted)
}

func TestSendMessagePersistenceFailureSuppressesBroadcast(t *testing.T) {
	repo := &slowRepo{err: errors.New("write timeout")}
	broadcaster := &recordingBroadcaster{}
	service := NewService(repo, broadcaster, nil, nil)

	err := service.SendMessage(context.Background(), "r1", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", Content: "hello", CreatedAt: 1000})

	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, apperrors.ErrCodePersistence, appErr.Code)
	assert.Empty(t, broadcaster.calls)
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	repo := new(MockMessageRepository)
	broadcaster := &recordingBroadcaster{}
	service := NewService(repo, broadcaster, nil, nil)

	err := service.SendMessage(context.Background(), "r1", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", CreatedAt: 1000})

	require.Error(t, err)
	assert.Empty(t, broadcaster.calls)
	repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSendMessagePublishesAfterPersist(t *testing.T) {
	repo := new(MockMessageRepository)
	broadcaster := &recordingBroadcaster{}
	publisher := new(mockPublisher)
	service := NewService(repo, broadcaster, publisher, nil)

	ctx := context.Background()
	repo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).Return(nil)
	publisher.On("Publish", ctx, "chat:r1", mock.Anything).Return(nil)

	err := service.SendMessage(ctx, "r1", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", Content: "hi", CreatedAt: 1000})
	require.NoError(t, err)

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSendMessagePublishErrorDoesNotFail(t *testing.T) {
	repo := new(MockMessageRepository)
	broadcaster := &recordingBroadcaster{}
	publisher := new(mockPublisher)
	service := NewService(repo, broadcaster, publisher, nil)

	ctx := context.Background()
	repo.On("Append", ctx, mock.Anything).Return(nil)
	publisher.On("Publish", ctx, "chat:r1", mock.Anything).Return(errors.New("redis down"))

	err := service.SendMessage(ctx, "r1", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", Content: "hi", CreatedAt: 1000})

	assert.NoError(t, err)
	assert.Len(t, broadcaster.calls, 1)
}

type fakeRecorder struct {
	publishes []bool
}

func (r *fakeRecorder) RedisPublish(ok bool) {
	r.publishes = append(r.publishes, ok)
}

func TestSendMessageRecordsPublishOutcome(t *testing.T) {
	repo := new(MockMessageRepository)
	publisher := new(mockPublisher)
	recorder := &fakeRecorder{}
	service := NewService(repo, &recordingBroadcaster{}, publisher, recorder)

	ctx := context.Background()
	repo.On("Append", ctx, mock.Anything).Return(nil)
	publisher.On("Publish", ctx, "chat:r1", mock.Anything).Return(nil).Once()
	publisher.On("Publish", ctx, "chat:r2", mock.Anything).Return(errors.New("redis down")).Once()

	require.NoError(t, service.SendMessage(ctx, "r1", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", Content: "hi", CreatedAt: 1000}))
	require.NoError(t, service.SendMessage(ctx, "r2", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", Content: "hi", CreatedAt: 1001}))

	assert.Equal(t, []bool{true, false}, recorder.publishes)
}

func TestSendMessageWithoutPublisherRecordsNothing(t *testing.T) {
	repo := new(MockMessageRepository)
	recorder := &fakeRecorder{}
	service := NewService(repo, &recordingBroadcaster{}, nil, recorder)

	ctx := context.Background()
	repo.On("Append", ctx, mock.Anything).Return(nil)

	require.NoError(t, service.SendMessage(ctx, "r1", "sess-a",
		domain.ChatMessagePayload{SenderID: "u1", Content: "hi", CreatedAt: 1000}))

	assert.Empty(t, recorder.publishes)
}

func TestRoomHistoryMapsAndPreservesOrder(t *testing.T) {
	repo := new(MockMessageRepository)
	service := NewService(repo, &recordingBroadcaster{}, nil, nil)

	ctx := context.Background()
	stored := []*domain.Message{
		{RoomID: "r1", SenderID: "u1", Content: "m1", CreatedAt: 100},
		{RoomID: "r1", SenderID: "u2", Content: "m2", CreatedAt: 200},
		{RoomID: "r1", SenderID: "u1", Content: "m3", CreatedAt: 300},
	}
	repo.On("ListByRoom", ctx, "r1").Return(stored, nil)

	history, err := service.RoomHistory(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "m1", history[0].Content)
	assert.Equal(t, "u2", history[1].SenderID)
	assert.Equal(t, int64(300), history[2].CreatedAt)
}

func TestRoomHistoryRepoError(t *testing.T) {
	repo := new(MockMessageRepository)
	service := NewService(repo, &recordingBroadcaster{}, nil, nil)

	ctx := context.Background()
	repo.On("ListByRoom", ctx, "r1").Return(nil, errors.New("read failed"))

	_, err := service.RoomHistory(ctx, "r1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePersistence, apperrors.GetAppError(err).Code)
}

func TestDeleteMessage(t *testing.T) {
	repo := new(MockMessageRepository)
	service := NewService(repo, &recordingBroadcaster{}, nil, nil)

	ctx := context.Background()
	repo.On("DeleteAt", ctx, "r1", "u1", int64(200)).Return(nil)

	require.NoError(t, service.DeleteMessage(ctx, "r1", "u1", 200))
	repo.AssertExpectations(t)
}

func TestDeleteMessageValidation(t *testing.T) {
	repo := new(MockMessageRepository)
	service := NewService(repo, &recordingBroadcaster{}, nil, nil)

	err := service.DeleteMessage(context.Background(), "", "u1", 200)
	require.Error(t, err)
	repo.AssertNotCalled(t, "DeleteAt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
