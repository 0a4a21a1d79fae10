package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Tables for conversations and their messages.
const (
	TableChat    = "chat"
	TableMessage = "message"
)

// DefaultGroupImage is assigned to every new group chat.
var DefaultGroupImage = Media{
	URL:      "https://png.pngtree.com/png-clipart/20230915/original/pngtree-linear-group-icon-for-customer-service-icon-white-manager-vector-png-image_12180690.png",
	FileType: "image",
}

// Chat is a one-to-one or group conversation with its members populated.
type Chat struct {
	ID            *ID                           `json:"_id,omitempty"`
	ChatName      string                        `json:"chatName,omitempty"`
	IsGroupChat   bool                          `json:"isGroupChat"`
	Users         []User                        `json:"users"`
	GroupAdmin    *User                         `json:"groupAdmin,omitempty"`
	GroupImage    *Media                        `json:"groupImage,omitempty"`
	LatestMessage *Message                      `json:"latestMessage,omitempty"`
	CreatedAt     *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
	UpdatedAt     *surrealmodels.CustomDateTime `json:"updatedAt,omitempty"`
}

// HasMember reports whether the user belongs to the chat.
func (c *Chat) HasMember(userID *ID) bool {
	for i := range c.Users {
		if c.Users[i].ID.Equal(userID) {
			return true
		}
	}
	return false
}

// MemberIDs returns the ids of all members in order.
func (c *Chat) MemberIDs() []*ID {
	ids := make([]*ID, 0, len(c.Users))
	for i := range c.Users {
		ids = append(ids, c.Users[i].ID)
	}
	return ids
}

// MoveToFront reorders Users so the given member comes first. Unknown ids
// leave the order untouched.
func (c *Chat) MoveToFront(userID *ID) {
	for i := range c.Users {
		if c.Users[i].ID.Equal(userID) {
			u := c.Users[i]
			copy(c.Users[1:i+1], c.Users[:i])
			c.Users[0] = u
			return
		}
	}
}

// Message is a chat message with its sender and chat populated, the shape
// clients forward on the realtime channel.
type Message struct {
	ID        *ID                           `json:"_id,omitempty"`
	Sender    *User                         `json:"senderId,omitempty"`
	Chat      *Chat                         `json:"chatId,omitempty"`
	Content   string                        `json:"content"`
	Media     *Media                        `json:"media,omitempty"`
	CreatedAt *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
	UpdatedAt *surrealmodels.CustomDateTime `json:"updatedAt,omitempty"`
}

// NewGroup describes a group chat to create.
type NewGroup struct {
	Name  string
	Users []*ID
	Admin *ID
	Image Media
}

// NewMessage describes a message to store.
type NewMessage struct {
	Sender  *ID
	Chat    *ID
	Content string
	Media   *Media
}

// ChatRepository is the storage contract for conversations.
type ChatRepository interface {
	FindByID(ctx context.Context, id *ID) (*Chat, error)
	// FindDirect returns the one-to-one chat between a and b, or ErrNotFound.
	FindDirect(ctx context.Context, a, b *ID) (*Chat, error)
	// FindByName returns the group chat with this name, or ErrNotFound.
	FindByName(ctx context.Context, name string) (*Chat, error)
	// ListForUser returns the user's chats, most recently updated first.
	ListForUser(ctx context.Context, userID *ID) ([]Chat, error)
	CreateDirect(ctx context.Context, a, b *ID) (*Chat, error)
	CreateGroup(ctx context.Context, g NewGroup) (*Chat, error)
	Rename(ctx context.Context, id *ID, name string) (*Chat, error)
	AddUser(ctx context.Context, id, userID *ID) (*Chat, error)
	RemoveUser(ctx context.Context, id, userID *ID) (*Chat, error)
	// SetMembers replaces the member list and admin in one write.
	SetMembers(ctx context.Context, id *ID, users []*ID, admin *ID) (*Chat, error)
	SetLatestMessage(ctx context.Context, id, messageID *ID) error
}

// MessageRepository is the storage contract for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, m NewMessage) (*Message, error)
	// ListByChat returns messages oldest first.
	ListByChat(ctx context.Context, chatID *ID) ([]Message, error)
}
