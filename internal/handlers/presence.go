package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
)

// PresenceLookup is the read side of the presence registry.
type PresenceLookup interface {
	OnlineUserIDs() []string
	IsOnline(userID string) bool
}

// PresenceHandler exposes who is online over HTTP, for clients that load the
// list before their socket connects.
type PresenceHandler struct {
	presence PresenceLookup
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(presence PresenceLookup) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// OnlineUsersResponse lists the users with a live connection.
type OnlineUsersResponse struct {
	OnlineUsers []string `json:"onlineUsers"`
	Count       int      `json:"count"`
}

// UserPresenceResponse is the presence of a single user.
type UserPresenceResponse struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// GetPresence handles GET /api/presence.
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	online := h.presence.OnlineUserIDs()
	if online == nil {
		online = []string{}
	}
	return c.JSON(http.StatusOK, OnlineUsersResponse{OnlineUsers: online, Count: len(online)})
}

// GetUserPresence handles GET /api/presence/:userId.
func (h *PresenceHandler) GetUserPresence(c echo.Context) error {
	id, err := domain.ParseID(c.Param("userId"), domain.TableUser)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserPresenceResponse{
		UserID: id.String(),
		Online: h.presence.IsOnline(id.String()),
	})
}
