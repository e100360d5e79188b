// Package chat exposes the message history REST surface consumed by mobile
// clients alongside the WebSocket relay.
package chat

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"soullink-backend/internal/domain"
	apperrors "soullink-backend/pkg/errors"
	"soullink-backend/pkg/metrics"
	"soullink-backend/pkg/response"
)

// ChatService is the history and delete surface the handler needs
type ChatService interface {
	RoomHistory(ctx context.Context, roomID string) ([]*domain.MessageResponse, error)
	DeleteMessage(ctx context.Context, roomID, senderID string, createdAt int64) error
}

// Handler handles chat HTTP requests
type Handler struct {
	chatService ChatService
	metrics     *metrics.Metrics
}

// NewHandler creates a new chat handler
func NewHandler(chatService ChatService, m *metrics.Metrics) *Handler {
	return &Handler{
		chatService: chatService,
		metrics:     m,
	}
}

// DeleteMessageRequest identifies a message bundle entry by its exact
// timestamp in epoch milliseconds
type DeleteMessageRequest struct {
	RoomID    string `json:"roomId" binding:"required"`
	SenderID  string `json:"senderId" binding:"required"`
	CreatedAt int64  `json:"createdAt" binding:"required"`
}

// GetRoomHistory returns every message in the room sorted ascending by
// timestamp. The body is the bare array; clients feed it straight into their
// message list.
// GET /v1/chat/:roomId
func (h *Handler) GetRoomHistory(c *gin.Context) {
	roomID := c.Param("roomId")

	messages, err := h.chatService.RoomHistory(c.Request.Context(), roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Empty history is an empty array, never null
	if messages == nil {
		messages = []*domain.MessageResponse{}
	}

	c.JSON(http.StatusOK, messages)
}

// DeleteMessage removes every message in the sender's bundle matching the
// timestamp exactly
// DELETE /v1/chat/message
func (h *Handler) DeleteMessage(c *gin.Context) {
	var req DeleteMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	if err := h.chatService.DeleteMessage(c.Request.Context(), req.RoomID, req.SenderID, req.CreatedAt); err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.MessageDeleted()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
}
