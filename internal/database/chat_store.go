package database

import (
	"context"
	"strings"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
	"github.com/samber/lo"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// chatFetch populates the links a chat listing renders.
const chatFetch = " FETCH users, groupAdmin, latestMessage, latestMessage.senderId"

// chatRow is a chat as returned by a query ending in chatFetch.
type chatRow struct {
	ID            *domain.ID                    `cbor:"id,omitempty"`
	ChatName      string                        `cbor:"chatName"`
	IsGroupChat   bool                          `cbor:"isGroupChat"`
	Users         []domain.User                 `cbor:"users"`
	GroupAdmin    *domain.User                  `cbor:"groupAdmin"`
	GroupImage    *domain.Media                 `cbor:"groupImage"`
	LatestMessage *latestMessageRow             `cbor:"latestMessage"`
	CreatedAt     *surrealmodels.CustomDateTime `cbor:"createdAt"`
	UpdatedAt     *surrealmodels.CustomDateTime `cbor:"updatedAt"`
}

// latestMessageRow is a message fetched through a chat, chat left as a link.
type latestMessageRow struct {
	ID        *domain.ID                    `cbor:"id,omitempty"`
	Sender    *domain.User                  `cbor:"senderId"`
	Content   string                        `cbor:"content"`
	Media     *domain.Media                 `cbor:"media"`
	CreatedAt *surrealmodels.CustomDateTime `cbor:"createdAt"`
}

func (r chatRow) toDomain() domain.Chat {
	chat := domain.Chat{
		ID:          r.ID,
		ChatName:    r.ChatName,
		IsGroupChat: r.IsGroupChat,
		Users:       presentUsers(r.Users),
		GroupAdmin:  r.GroupAdmin,
		GroupImage:  r.GroupImage,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if m := r.LatestMessage; m != nil && m.ID != nil {
		chat.LatestMessage = &domain.Message{
			ID:        m.ID,
			Sender:    m.Sender,
			Content:   m.Content,
			Media:     m.Media,
			CreatedAt: m.CreatedAt,
		}
	}
	if chat.GroupAdmin != nil && chat.GroupAdmin.ID == nil {
		chat.GroupAdmin = nil
	}
	return chat
}

// presentUsers drops entries whose linked record no longer exists.
func presentUsers(users []domain.User) []domain.User {
	return lo.Filter(users, func(u domain.User, _ int) bool { return u.ID != nil })
}

// ChatStore implements domain.ChatRepository on SurrealDB.
type ChatStore struct {
	client Client[chatRow]
}

var _ domain.ChatRepository = (*ChatStore)(nil)

// NewChatStore creates a chat repository on db.
func NewChatStore(db Runner, cfg config.Provider, opts ...ClientOption[chatRow]) (*ChatStore, error) {
	c, err := NewClient[chatRow](db, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ChatStore{client: c}, nil
}

// FindByID returns a chat with its members populated.
func (s *ChatStore) FindByID(ctx context.Context, id *domain.ID) (*domain.Chat, error) {
	if id == nil {
		return nil, NewDBError(ErrInvalidInput, "chat id is required")
	}
	return s.findOne(ctx, "SELECT * FROM $id"+chatFetch, map[string]any{"id": id}, "failed to get chat")
}

// FindDirect returns the one-to-one chat between a and b.
func (s *ChatStore) FindDirect(ctx context.Context, a, b *domain.ID) (*domain.Chat, error) {
	query := "SELECT * FROM chat WHERE isGroupChat = false AND users CONTAINS $a AND users CONTAINS $b LIMIT 1" + chatFetch
	return s.findOne(ctx, query, map[string]any{"a": a, "b": b}, "failed to find direct chat")
}

// FindByName returns the group chat called name.
func (s *ChatStore) FindByName(ctx context.Context, name string) (*domain.Chat, error) {
	query := "SELECT * FROM chat WHERE isGroupChat = true AND chatName = $name LIMIT 1" + chatFetch
	return s.findOne(ctx, query, map[string]any{"name": strings.TrimSpace(name)}, "failed to find group chat")
}

// ListForUser returns every chat the user belongs to, most recently updated first.
func (s *ChatStore) ListForUser(ctx context.Context, userID *domain.ID) ([]domain.Chat, error) {
	query := "SELECT * FROM chat WHERE users CONTAINS $user ORDER BY updatedAt DESC" + chatFetch
	rows, err := s.client.Query(ctx, query, map[string]any{"user": userID})
	if err != nil {
		return nil, WrapError(err, "failed to list chats")
	}
	return lo.Map(rows, func(r chatRow, _ int) domain.Chat { return r.toDomain() }), nil
}

// CreateDirect starts a one-to-one chat.
func (s *ChatStore) CreateDirect(ctx context.Context, a, b *domain.ID) (*domain.Chat, error) {
	query := `CREATE chat SET
		chatName = "sender", isGroupChat = false, users = $users,
		createdAt = time::now(), updatedAt = time::now()
		RETURN id`
	return s.createThenFetch(ctx, query, map[string]any{"users": []*domain.ID{a, b}}, "failed to create chat")
}

// CreateGroup starts a group chat.
func (s *ChatStore) CreateGroup(ctx context.Context, g domain.NewGroup) (*domain.Chat, error) {
	query := `CREATE chat SET
		chatName = $name, isGroupChat = true, users = $users, groupAdmin = $admin, groupImage = $image,
		createdAt = time::now(), updatedAt = time::now()
		RETURN id`
	return s.createThenFetch(ctx, query, map[string]any{
		"name":  strings.TrimSpace(g.Name),
		"users": g.Users,
		"admin": g.Admin,
		"image": g.Image,
	}, "failed to create group chat")
}

// Rename changes a chat's name.
func (s *ChatStore) Rename(ctx context.Context, id *domain.ID, name string) (*domain.Chat, error) {
	query := "UPDATE $id SET chatName = $name, updatedAt = time::now() RETURN id"
	return s.updateThenFetch(ctx, query, map[string]any{"id": id, "name": strings.TrimSpace(name)}, "failed to rename chat")
}

// AddUser adds a member unless already present.
func (s *ChatStore) AddUser(ctx context.Context, id, userID *domain.ID) (*domain.Chat, error) {
	query := "UPDATE $id SET users = array::union(users, [$user]), updatedAt = time::now() RETURN id"
	return s.updateThenFetch(ctx, query, map[string]any{"id": id, "user": userID}, "failed to add user to chat")
}

// RemoveUser removes a member.
func (s *ChatStore) RemoveUser(ctx context.Context, id, userID *domain.ID) (*domain.Chat, error) {
	query := "UPDATE $id SET users -= $user, updatedAt = time::now() RETURN id"
	return s.updateThenFetch(ctx, query, map[string]any{"id": id, "user": userID}, "failed to remove user from chat")
}

// SetMembers replaces members and admin. A nil admin clears it.
func (s *ChatStore) SetMembers(ctx context.Context, id *domain.ID, users []*domain.ID, admin *domain.ID) (*domain.Chat, error) {
	params := map[string]any{"id": id, "users": users}
	query := "UPDATE $id SET users = $users, groupAdmin = NONE, updatedAt = time::now() RETURN id"
	if admin != nil {
		query = "UPDATE $id SET users = $users, groupAdmin = $admin, updatedAt = time::now() RETURN id"
		params["admin"] = admin
	}
	return s.updateThenFetch(ctx, query, params, "failed to update chat members")
}

// SetLatestMessage points the chat at its newest message and bumps updatedAt
// so the chat list reorders.
func (s *ChatStore) SetLatestMessage(ctx context.Context, id, messageID *domain.ID) error {
	query := "UPDATE $id SET latestMessage = $message, updatedAt = time::now() RETURN NONE"
	err := s.client.Execute(ctx, query, map[string]any{"id": id, "message": messageID})
	return WrapError(err, "failed to set latest message")
}

func (s *ChatStore) findOne(ctx context.Context, query string, params map[string]any, op string) (*domain.Chat, error) {
	row, err := s.client.QueryOne(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, op)
	}
	if row == nil {
		return nil, NewDBError(ErrNotFound, "chat not found")
	}
	chat := row.toDomain()
	return &chat, nil
}

func (s *ChatStore) createThenFetch(ctx context.Context, query string, params map[string]any, op string) (*domain.Chat, error) {
	created, err := s.client.QueryOne(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, op)
	}
	if created == nil || created.ID == nil {
		return nil, NewDBError(ErrQueryFailed, op+": no id returned")
	}
	return s.FindByID(ctx, created.ID)
}

func (s *ChatStore) updateThenFetch(ctx context.Context, query string, params map[string]any, op string) (*domain.Chat, error) {
	updated, err := s.client.QueryOne(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, op)
	}
	if updated == nil || updated.ID == nil {
		return nil, NewDBError(ErrNotFound, "chat not found")
	}
	return s.FindByID(ctx, updated.ID)
}
