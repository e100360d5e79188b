package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soullink-backend/internal/domain"
	"soullink-backend/internal/presence"
	"soullink-backend/internal/repository/memory"
	"soullink-backend/internal/rooms"
	"soullink-backend/internal/service/call"
	"soullink-backend/internal/service/chat"
	"soullink-backend/internal/service/reaction"
	"soullink-backend/pkg/constants"
	"soullink-backend/pkg/logger"
	"soullink-backend/pkg/metrics"
)

func TestMain(m *testing.M) {
	logger.InitDefault()
	m.Run()
}

type testHub struct {
	hub  *Hub
	repo *memory.BundleRepository
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	directory := presence.NewDirectory()
	router := rooms.NewRouter()
	repo := memory.NewBundleRepository()
	m := metrics.NewMetrics("test")
	chatService := chat.NewService(repo, router, nil, nil)
	relay := call.NewRelay(directory, router, 0, m)
	reactions := reaction.NewBroadcaster(router, m)
	return &testHub{
		hub:  NewHub(directory, router, chatService, relay, reactions, nil, nil, m),
		repo: repo,
	}
}

// session creates a client wired to the hub without a real connection
func (th *testHub) session(id string) *Client {
	c := &Client{
		hub:  th.hub,
		id:   id,
		send: make(chan []byte, constants.ClientSendBuffer),
	}
	th.hub.mu.Lock()
	th.hub.clients[id] = c
	th.hub.mu.Unlock()
	return c
}

func envelope(t *testing.T, event string, payload interface{}) domain.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Envelope{Event: event, Data: raw}
}

// drain decodes every frame queued for the client
func drain(t *testing.T, c *Client) []domain.Envelope {
	t.Helper()
	var out []domain.Envelope
	for {
		select {
		case frame := <-c.send:
			var env domain.Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func requireEvent(t *testing.T, envs []domain.Envelope, event string) domain.Envelope {
	t.Helper()
	for _, env := range envs {
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("no %q among %d frames", event, len(envs))
	return domain.Envelope{}
}

func TestRegisterUserAnnouncesToOthers(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	bob := th.session("sess-b")

	th.hub.dispatch(alice, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))

	got := requireEvent(t, drain(t, bob), domain.EventUserOnline)
	var p domain.UserPresenceEvent
	require.NoError(t, json.Unmarshal(got.Data, &p))
	assert.Equal(t, "alice", p.UserID)

	// The registering session never hears its own announcement
	assert.Empty(t, drain(t, alice))
}

func TestSendMessagePersistsAndFansOut(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	bob := th.session("sess-b")
	th.hub.dispatch(alice, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))
	th.hub.dispatch(bob, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))

	th.hub.dispatch(alice, envelope(t, domain.EventSendMessage, domain.SendMessagePayload{
		RoomID:  "r1",
		Message: domain.ChatMessagePayload{SenderID: "alice", Content: "hey", CreatedAt: 1000},
	}))

	got := requireEvent(t, drain(t, bob), domain.EventReceiveMessage)
	var msg domain.ChatMessagePayload
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Equal(t, "hey", msg.Content)
	assert.Equal(t, int64(1000), msg.CreatedAt)

	// Sender excluded from its own fan-out
	assert.Empty(t, drain(t, alice))

	stored, err := th.repo.ListByRoom(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hey", stored[0].Content)
}

func TestMalformedPayloadDropped(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")

	th.hub.dispatch(alice, domain.Envelope{
		Event: domain.EventJoinChat,
		Data:  json.RawMessage(`{"roomId":`),
	})

	assert.Equal(t, 0, th.hub.rooms.ActiveRooms())
}

func TestUnknownEventIgnored(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")

	th.hub.dispatch(alice, envelope(t, "upgrade_to_premium", map[string]string{"plan": "gold"}))

	assert.Empty(t, drain(t, alice))
}

func TestCallAcceptAndSignalingScenario(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	bob := th.session("sess-b")

	th.hub.dispatch(alice, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))
	th.hub.dispatch(bob, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "bob"}))
	drain(t, alice)
	drain(t, bob)

	// Alice calls bob; only bob rings
	th.hub.dispatch(alice, envelope(t, domain.EventCallUser, domain.CallUserPayload{
		ToUserID: "bob",
		RoomID:   "r1",
		Caller:   json.RawMessage(`{"name":"Alice"}`),
	}))
	incoming := requireEvent(t, drain(t, bob), domain.EventIncomingCall)
	var inc domain.IncomingCallEvent
	require.NoError(t, json.Unmarshal(incoming.Data, &inc))
	assert.Equal(t, "r1", inc.RoomID)
	assert.Empty(t, drain(t, alice))

	// Bob accepts; alice is told even though she never joined the room
	th.hub.dispatch(bob, envelope(t, domain.EventAcceptCall, domain.AcceptCallPayload{RoomID: "r1"}))
	requireEvent(t, drain(t, alice), domain.EventCallAccepted)

	// Alice joins and sends an offer; bob receives it, alice does not
	th.hub.dispatch(alice, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))
	offer := json.RawMessage(`{"sdp":"v=0..."}`)
	th.hub.dispatch(alice, envelope(t, domain.EventWebRTCOffer, domain.SignalPayload{RoomID: "r1", Payload: offer}))

	got := requireEvent(t, drain(t, bob), domain.EventWebRTCOffer)
	assert.JSONEq(t, string(offer), string(got.Data))
	assert.Empty(t, drain(t, alice))
}

func TestCallOfflineUserSilentForCaller(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	th.hub.dispatch(alice, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))

	th.hub.dispatch(alice, envelope(t, domain.EventCallUser, domain.CallUserPayload{ToUserID: "ghost", RoomID: "r1"}))

	assert.Empty(t, drain(t, alice))
}

func TestEmojiRoundTrip(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	bob := th.session("sess-b")
	th.hub.dispatch(alice, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))
	th.hub.dispatch(bob, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))

	th.hub.dispatch(alice, envelope(t, domain.EventSendEmoji, domain.SendEmojiPayload{RoomID: "r1", Emoji: "💜"}))

	// Emoji reaches the whole room, sender included
	got := requireEvent(t, drain(t, bob), domain.EventReceiveEmoji)
	var emoji string
	require.NoError(t, json.Unmarshal(got.Data, &emoji))
	assert.Equal(t, "💜", emoji)
	requireEvent(t, drain(t, alice), domain.EventReceiveEmoji)
}

func TestEmotionStampedAndReachesWholeRoom(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	bob := th.session("sess-b")
	th.hub.dispatch(alice, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))
	th.hub.dispatch(bob, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))

	th.hub.dispatch(alice, envelope(t, domain.EventSendEmotion, domain.SendEmotionPayload{
		RoomID:     "r1",
		Emotion:    "happy",
		Confidence: 0.88,
	}))

	got := requireEvent(t, drain(t, bob), domain.EventReceiveEmotion)
	var e domain.EmotionEvent
	require.NoError(t, json.Unmarshal(got.Data, &e))
	assert.Equal(t, "happy", e.Emotion)
	assert.Positive(t, e.Time)
	requireEvent(t, drain(t, alice), domain.EventReceiveEmotion)
}

func TestDisconnectCleansUpEverything(t *testing.T) {
	th := newTestHub(t)
	alice := th.session("sess-a")
	bob := th.session("sess-b")

	th.hub.dispatch(alice, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))
	th.hub.dispatch(bob, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "bob"}))
	th.hub.dispatch(alice, envelope(t, domain.EventJoinChat, domain.JoinChatPayload{RoomID: "r1"}))
	th.hub.dispatch(alice, envelope(t, domain.EventCallUser, domain.CallUserPayload{ToUserID: "bob", RoomID: "r1"}))
	drain(t, alice)
	drain(t, bob)

	th.hub.handleDisconnect(alice)

	// Bob hears both the call ending and alice going offline
	events := drain(t, bob)
	requireEvent(t, events, domain.EventUserOffline)

	assert.Equal(t, 1, th.hub.ConnectedSessions())
	assert.Equal(t, 0, th.hub.rooms.ActiveRooms())
	_, online := th.hub.directory.Lookup("alice")
	assert.False(t, online)

	// A second disconnect for the same session is a no-op
	th.hub.handleDisconnect(alice)
	assert.Equal(t, 1, th.hub.ConnectedSessions())
}

type publishedMessage struct {
	Channel string
	Payload interface{}
}

type recordingPublisher struct {
	published []publishedMessage
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	p.published = append(p.published, publishedMessage{Channel: channel, Payload: payload})
	return p.err
}

func TestPresenceTransitionsPublished(t *testing.T) {
	th := newTestHub(t)
	publisher := &recordingPublisher{}
	th.hub.publisher = publisher
	alice := th.session("sess-a")

	th.hub.dispatch(alice, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "presence:events", publisher.published[0].Channel)
	online, ok := publisher.published[0].Payload.(domain.PresenceTransitionEvent)
	require.True(t, ok)
	assert.Equal(t, domain.PresenceTransitionEvent{UserID: "alice", Status: "online"}, online)

	th.hub.handleDisconnect(alice)

	require.Len(t, publisher.published, 2)
	offline, ok := publisher.published[1].Payload.(domain.PresenceTransitionEvent)
	require.True(t, ok)
	assert.Equal(t, domain.PresenceTransitionEvent{UserID: "alice", Status: "offline"}, offline)
}

func TestPresencePublishErrorDoesNotBlockRegistration(t *testing.T) {
	th := newTestHub(t)
	th.hub.publisher = &recordingPublisher{err: errors.New("redis down")}
	alice := th.session("sess-a")

	th.hub.dispatch(alice, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))

	_, ok := th.hub.directory.Lookup("alice")
	assert.True(t, ok)
}

func TestRegisterUserLastWriteWins(t *testing.T) {
	th := newTestHub(t)
	phone := th.session("sess-phone")
	tablet := th.session("sess-tablet")

	th.hub.dispatch(phone, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))
	th.hub.dispatch(tablet, envelope(t, domain.EventRegisterUser, domain.RegisterUserPayload{UserID: "alice"}))

	s, ok := th.hub.directory.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "sess-tablet", s.SessionID())
}
