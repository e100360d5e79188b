// Package presence exposes the Redis presence mirror over REST so sibling
// services can read online status without a socket. The in-process directory
// stays authoritative for event targeting; this is the cross-service view.
package presence

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "soullink-backend/pkg/errors"
)

// Store is the read surface of the presence mirror
type Store interface {
	IsUserOnline(ctx context.Context, userID string) (bool, error)
	OnlineUsers(ctx context.Context) ([]string, error)
}

// Handler handles presence HTTP requests
type Handler struct {
	store Store
}

// NewHandler creates a new presence handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// OnlineUsers returns the set of currently online user IDs
// GET /v1/presence/online
func (h *Handler) OnlineUsers(c *gin.Context) {
	users, err := h.store.OnlineUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UserStatus reports whether one user is currently online
// GET /v1/presence/:userId
func (h *Handler) UserStatus(c *gin.Context) {
	userID := c.Param("userId")

	online, err := h.store.IsUserOnline(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message})
}
