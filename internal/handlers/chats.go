package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/filestore"
	"github.com/nfrund/parley/internal/middleware"
)

// ChatHandler serves the /api/chats, /api/messages and /api/status routes.
type ChatHandler struct {
	chats   ChatService
	uploads Uploader
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats ChatService, uploads Uploader) *ChatHandler {
	return &ChatHandler{chats: chats, uploads: uploads}
}

// AccessChat handles POST /api/chats. It answers 201 when the chat is new.
func (h *ChatHandler) AccessChat(c echo.Context) error {
	var req accessChatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	other, err := domain.ParseID(req.UserID, domain.TableUser)
	if err != nil {
		return err
	}
	chat, created, err := h.chats.AccessChat(c.Request().Context(), middleware.UserID(c), other)
	if err != nil {
		return err
	}
	if created {
		return c.JSON(http.StatusCreated, chat)
	}
	return c.JSON(http.StatusOK, chat)
}

// ListChats handles GET /api/chats.
func (h *ChatHandler) ListChats(c echo.Context) error {
	chats, err := h.chats.ListChats(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chats)
}

// CreateGroup handles POST /api/chats/group.
func (h *ChatHandler) CreateGroup(c echo.Context) error {
	var req createGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	members := make([]*domain.ID, 0, len(req.Users))
	for _, raw := range req.Users {
		id, err := domain.ParseID(raw, domain.TableUser)
		if err != nil {
			return err
		}
		members = append(members, id)
	}
	chat, err := h.chats.CreateGroup(c.Request().Context(), middleware.UserID(c), req.ChatName, members)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, chat)
}

// RenameGroup handles PUT /api/chats/rename.
func (h *ChatHandler) RenameGroup(c echo.Context) error {
	var req renameGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chatID, err := domain.ParseID(req.ChatID, domain.TableChat)
	if err != nil {
		return err
	}
	chat, err := h.chats.RenameGroup(c.Request().Context(), middleware.UserID(c), chatID, req.ChatName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

// AddToGroup handles PUT /api/chats/groupadd.
func (h *ChatHandler) AddToGroup(c echo.Context) error {
	return h.changeMember(c, h.chats.AddToGroup)
}

// RemoveFromGroup handles PUT /api/chats/groupremove.
func (h *ChatHandler) RemoveFromGroup(c echo.Context) error {
	return h.changeMember(c, h.chats.RemoveFromGroup)
}

// ExitGroup handles PUT /api/chats/groupexit.
func (h *ChatHandler) ExitGroup(c echo.Context) error {
	var req chatIDRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chatID, err := domain.ParseID(req.ChatID, domain.TableChat)
	if err != nil {
		return err
	}
	chat, err := h.chats.ExitGroup(c.Request().Context(), middleware.UserID(c), chatID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

type memberChange func(ctx context.Context, me, chatID, userID *domain.ID) (*domain.Chat, error)

func (h *ChatHandler) changeMember(c echo.Context, change memberChange) error {
	var req groupMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chatID, err := domain.ParseID(req.ChatID, domain.TableChat)
	if err != nil {
		return err
	}
	userID, err := domain.ParseID(req.UserID, domain.TableUser)
	if err != nil {
		return err
	}
	chat, err := change(c.Request().Context(), middleware.UserID(c), chatID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chat)
}

// SendMessage handles POST /api/messages. The body carries chatId and
// content; a multipart "media" file is optional.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chatID, err := domain.ParseID(req.ChatID, domain.TableChat)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	header, file, err := formFile(c, "media")
	if err != nil {
		return err
	}
	var media *domain.Media
	if file != nil {
		defer file.Close()
		uploaded, err := h.uploads.Upload(ctx, filestore.MessageMedia, file, header.Size)
		if err != nil {
			return err
		}
		media = &uploaded
	}

	msg, err := h.chats.SendMessage(ctx, middleware.UserID(c), chatID, req.Content, media)
	if err != nil {
		if media != nil {
			_ = h.uploads.Delete(ctx, *media)
		}
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// ListMessages handles GET /api/messages/:chatId.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	chatID, err := domain.ParseID(c.Param("chatId"), domain.TableChat)
	if err != nil {
		return err
	}
	messages, err := h.chats.ListMessages(c.Request().Context(), middleware.UserID(c), chatID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

// PostStatus handles POST /api/status with a required "media" file.
func (h *ChatHandler) PostStatus(c echo.Context) error {
	ctx := c.Request().Context()
	header, file, err := formFile(c, "media")
	if err != nil {
		return err
	}
	if file == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "A status needs an image or video file")
	}
	defer file.Close()

	media, err := h.uploads.Upload(ctx, filestore.StatusMedia, file, header.Size)
	if err != nil {
		return err
	}
	status, err := h.chats.PostStatus(ctx, middleware.UserID(c), media)
	if err != nil {
		_ = h.uploads.Delete(ctx, media)
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Status uploaded successfully",
		"status":  status,
	})
}

// StatusFeed handles GET /api/status.
func (h *ChatHandler) StatusFeed(c echo.Context) error {
	feed, err := h.chats.StatusFeed(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, feed)
}

// DeleteStatus handles DELETE /api/status/:statusId.
func (h *ChatHandler) DeleteStatus(c echo.Context) error {
	statusID, err := domain.ParseID(c.Param("statusId"), domain.TableStatus)
	if err != nil {
		return err
	}
	if err := h.chats.DeleteStatus(c.Request().Context(), middleware.UserID(c), statusID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Status deleted successfully"})
}
