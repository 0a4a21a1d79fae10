// Package chat implements conversations, messages and statuses on top of the
// storage contracts in domain.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nfrund/parley/internal/domain"
	"github.com/samber/lo"
)

// MediaRemover deletes uploaded objects that are no longer referenced.
type MediaRemover interface {
	Delete(ctx context.Context, media domain.Media) error
}

// Service holds the chat use cases. Every method takes the acting user's id
// and enforces membership itself.
type Service struct {
	users    domain.UserRepository
	chats    domain.ChatRepository
	messages domain.MessageRepository
	statuses domain.StatusRepository
	media    MediaRemover
	logger   *slog.Logger
}

// NewService creates the chat service.
func NewService(
	users domain.UserRepository,
	chats domain.ChatRepository,
	messages domain.MessageRepository,
	statuses domain.StatusRepository,
	media MediaRemover,
) *Service {
	return &Service{
		users:    users,
		chats:    chats,
		messages: messages,
		statuses: statuses,
		media:    media,
		logger:   slog.Default().With("component", "chat"),
	}
}

// AccessChat returns the one-to-one chat between me and other, creating it on
// first contact. created reports whether a new chat was made.
func (s *Service) AccessChat(ctx context.Context, me, other *domain.ID) (chat *domain.Chat, created bool, err error) {
	if other == nil || me.Equal(other) {
		return nil, false, fmt.Errorf("%w: cannot open a chat with yourself", domain.ErrInvalidInput)
	}
	if _, err := s.users.FindByID(ctx, other); err != nil {
		return nil, false, err
	}

	chat, err = s.chats.FindDirect(ctx, me, other)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	chat, err = s.chats.CreateDirect(ctx, me, other)
	if err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

// ListChats returns my chats, most recently active first. In every chat I am
// listed first; in groups the admin follows.
func (s *Service) ListChats(ctx context.Context, me *domain.ID) ([]domain.Chat, error) {
	chats, err := s.chats.ListForUser(ctx, me)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].IsGroupChat && chats[i].GroupAdmin != nil {
			chats[i].MoveToFront(chats[i].GroupAdmin.ID)
		}
		chats[i].MoveToFront(me)
	}
	return chats, nil
}

// CreateGroup makes me the admin of a new group with members. A group needs
// more than two people including me, and names are unique.
func (s *Service) CreateGroup(ctx context.Context, me *domain.ID, name string, members []*domain.ID) (*domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: chatName is required", domain.ErrInvalidInput)
	}

	users := lo.UniqBy(append([]*domain.ID{me}, members...), func(id *domain.ID) string {
		return id.String()
	})
	if len(users) <= 2 {
		return nil, domain.ErrGroupTooSmall
	}
	if err := s.ensureNameFree(ctx, name, nil); err != nil {
		return nil, err
	}

	return s.chats.CreateGroup(ctx, domain.NewGroup{
		Name:  name,
		Users: users,
		Admin: me,
		Image: domain.DefaultGroupImage,
	})
}

// RenameGroup changes a group's name. Any member may rename.
func (s *Service) RenameGroup(ctx context.Context, me, chatID *domain.ID, name string) (*domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: chatName is required", domain.ErrInvalidInput)
	}
	chat, err := s.loadGroup(ctx, me, chatID)
	if err != nil {
		return nil, err
	}
	if chat.ChatName == name {
		return chat, nil
	}
	if err := s.ensureNameFree(ctx, name, chatID); err != nil {
		return nil, err
	}
	return s.chats.Rename(ctx, chatID, name)
}

// AddToGroup adds userID to a group I administer. Adding an existing member
// is a no-op.
func (s *Service) AddToGroup(ctx context.Context, me, chatID, userID *domain.ID) (*domain.Chat, error) {
	chat, err := s.loadAdminGroup(ctx, me, chatID)
	if err != nil {
		return nil, err
	}
	if chat.HasMember(userID) {
		return chat, nil
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.chats.AddUser(ctx, chatID, userID)
}

// RemoveFromGroup removes userID from a group I administer. Removing myself
// is the same as leaving.
func (s *Service) RemoveFromGroup(ctx context.Context, me, chatID, userID *domain.ID) (*domain.Chat, error) {
	if me.Equal(userID) {
		return s.ExitGroup(ctx, me, chatID)
	}
	chat, err := s.loadAdminGroup(ctx, me, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, domain.ErrNotChatMember
	}
	return s.chats.RemoveUser(ctx, chatID, userID)
}

// ExitGroup removes me from a group. When the admin leaves, the first
// remaining member takes over; the last member out leaves an empty group
// without an admin.
func (s *Service) ExitGroup(ctx context.Context, me, chatID *domain.ID) (*domain.Chat, error) {
	chat, err := s.loadGroup(ctx, me, chatID)
	if err != nil {
		return nil, err
	}

	remaining := lo.Reject(chat.MemberIDs(), func(id *domain.ID, _ int) bool {
		return id.Equal(me)
	})

	var admin *domain.ID
	if chat.GroupAdmin != nil {
		admin = chat.GroupAdmin.ID
	}
	if admin == nil || admin.Equal(me) {
		admin = nil
		if len(remaining) > 0 {
			admin = remaining[0]
		}
	}

	s.logger.InfoContext(ctx, "User left group", "chat_id", chatID.String(), "user_id", me.String())
	return s.chats.SetMembers(ctx, chatID, remaining, admin)
}

func (s *Service) ensureNameFree(ctx context.Context, name string, self *domain.ID) error {
	existing, err := s.chats.FindByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case self != nil && existing.ID.Equal(self):
		return nil
	default:
		return domain.ErrChatNameTaken
	}
}

// loadMember fetches a chat and checks that me belongs to it.
func (s *Service) loadMember(ctx context.Context, me, chatID *domain.ID) (*domain.Chat, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(me) {
		return nil, domain.ErrNotChatMember
	}
	return chat, nil
}

func (s *Service) loadGroup(ctx context.Context, me, chatID *domain.ID) (*domain.Chat, error) {
	chat, err := s.loadMember(ctx, me, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroupChat {
		return nil, domain.ErrNotGroupChat
	}
	return chat, nil
}

func (s *Service) loadAdminGroup(ctx context.Context, me, chatID *domain.ID) (*domain.Chat, error) {
	chat, err := s.loadGroup(ctx, me, chatID)
	if err != nil {
		return nil, err
	}
	if chat.GroupAdmin == nil || !chat.GroupAdmin.ID.Equal(me) {
		return nil, fmt.Errorf("%w: only the group admin can change members", domain.ErrForbidden)
	}
	return chat, nil
}
