// Package ws is the WebSocket transport: it upgrades connections, frames
// events, and routes them into the presence, chat, call, and reaction
// services.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"soullink-backend/internal/domain"
	"soullink-backend/internal/presence"
	"soullink-backend/internal/rooms"
	"soullink-backend/internal/service/call"
	"soullink-backend/internal/service/chat"
	"soullink-backend/internal/service/reaction"
	"soullink-backend/pkg/constants"
	"soullink-backend/pkg/logger"
	"soullink-backend/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  constants.ReadBufferSize,
	WriteBufferSize: constants.WriteBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced at the HTTP layer
	},
}

// PresenceMirror pushes online/offline status to an external store. Optional;
// failures are logged and never affect in-process delivery.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// presenceEventsChannel carries presence transitions to cross-instance
// consumers
const presenceEventsChannel = "presence:events"

// Hub owns all live WebSocket sessions and fans inbound events out to the
// services
type Hub struct {
	directory *presence.Directory
	rooms     *rooms.Router
	chat      *chat.Service
	calls     *call.Relay
	reactions *reaction.Broadcaster
	mirror    PresenceMirror // optional
	publisher chat.Publisher // optional
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub wired to the given services. mirror and publisher may
// be nil.
func NewHub(
	directory *presence.Directory,
	router *rooms.Router,
	chatService *chat.Service,
	callRelay *call.Relay,
	reactions *reaction.Broadcaster,
	mirror PresenceMirror,
	publisher chat.Publisher,
	m *metrics.Metrics,
) *Hub {
	return &Hub{
		directory: directory,
		rooms:     router,
		chat:      chatService,
		calls:     callRelay,
		reactions: reactions,
		mirror:    mirror,
		publisher: publisher,
		metrics:   m,
		clients:   make(map[string]*Client),
	}
}

// ServeWS upgrades the request and starts the session's pumps
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		id:   uuid.New().String(),
		send: make(chan []byte, constants.ClientSendBuffer),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.metrics.WebSocketConnected()
	logger.Debug("WebSocket session opened", zap.String("session_id", client.id))

	go client.writePump()
	go client.readPump()
}

// broadcastAll sends an event to every connected session except the excluded
// one. Used for presence announcements, which are global rather than roomed.
func (h *Hub) broadcastAll(event string, data interface{}, excludeSessionID string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		if id == excludeSessionID {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		client.Send(event, data)
	}
}

// handleDisconnect tears down everything the session touched: calls it was a
// party to, rooms it joined, and any user registrations it held
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	h.mu.Unlock()

	// End calls first so call_ended reaches rooms before membership is gone
	h.calls.HandleDisconnect(c.id)
	h.rooms.RemoveSession(c.id)

	for _, userID := range h.directory.Unregister(c.id) {
		h.broadcastAll(domain.EventUserOffline, domain.UserPresenceEvent{UserID: userID}, c.id)
		if h.mirror != nil {
			if err := h.mirror.SetUserOffline(context.Background(), userID); err != nil {
				logger.Warn("Failed to mirror offline status",
					zap.String("user_id", userID),
					zap.Error(err))
			}
		}
		h.publishPresence(userID, "offline")
	}

	h.metrics.WebSocketDisconnected()
	h.metrics.SetActiveRooms(h.rooms.ActiveRooms())
	logger.Debug("WebSocket session closed",
		zap.String("session_id", c.id),
		zap.String("user_id", c.userID))
}

// publishPresence pushes the transition onto the presence:events channel for
// cross-instance consumers. Best-effort like the mirror.
func (h *Hub) publishPresence(userID, status string) {
	if h.publisher == nil {
		return
	}
	event := domain.PresenceTransitionEvent{UserID: userID, Status: status}
	err := h.publisher.Publish(context.Background(), presenceEventsChannel, event)
	h.metrics.RedisPublish(err == nil)
	if err != nil {
		logger.Warn("Failed to publish presence transition",
			zap.String("user_id", userID),
			zap.String("status", status),
			zap.Error(err))
	}
}

// ConnectedSessions reports the number of live sessions
func (h *Hub) ConnectedSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
