package database

import (
	"context"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
	"github.com/samber/lo"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// messageFetch populates the sender and the chat with its members, the
// shape the realtime fanout routes on.
const messageFetch = " FETCH senderId, chatId, chatId.users"

type messageRow struct {
	ID        *domain.ID                    `cbor:"id,omitempty"`
	Sender    *domain.User                  `cbor:"senderId"`
	Chat      *messageChatRow               `cbor:"chatId"`
	Content   string                        `cbor:"content"`
	Media     *domain.Media                 `cbor:"media"`
	CreatedAt *surrealmodels.CustomDateTime `cbor:"createdAt"`
	UpdatedAt *surrealmodels.CustomDateTime `cbor:"updatedAt"`
}

// messageChatRow is a chat fetched through a message; its admin and latest
// message stay links.
type messageChatRow struct {
	ID          *domain.ID                    `cbor:"id,omitempty"`
	ChatName    string                        `cbor:"chatName"`
	IsGroupChat bool                          `cbor:"isGroupChat"`
	Users       []domain.User                 `cbor:"users"`
	GroupAdmin  *domain.ID                    `cbor:"groupAdmin"`
	GroupImage  *domain.Media                 `cbor:"groupImage"`
	CreatedAt   *surrealmodels.CustomDateTime `cbor:"createdAt"`
	UpdatedAt   *surrealmodels.CustomDateTime `cbor:"updatedAt"`
}

func (r messageRow) toDomain() domain.Message {
	msg := domain.Message{
		ID:        r.ID,
		Sender:    r.Sender,
		Content:   r.Content,
		Media:     r.Media,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if c := r.Chat; c != nil {
		msg.Chat = &domain.Chat{
			ID:          c.ID,
			ChatName:    c.ChatName,
			IsGroupChat: c.IsGroupChat,
			Users:       presentUsers(c.Users),
			GroupImage:  c.GroupImage,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
		if c.GroupAdmin != nil {
			msg.Chat.GroupAdmin = &domain.User{ID: c.GroupAdmin}
		}
	}
	return msg
}

// MessageStore implements domain.MessageRepository on SurrealDB.
type MessageStore struct {
	client Client[messageRow]
}

var _ domain.MessageRepository = (*MessageStore)(nil)

// NewMessageStore creates a message repository on db.
func NewMessageStore(db Runner, cfg config.Provider, opts ...ClientOption[messageRow]) (*MessageStore, error) {
	c, err := NewClient[messageRow](db, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &MessageStore{client: c}, nil
}

// Create stores a message and returns it populated.
func (s *MessageStore) Create(ctx context.Context, m domain.NewMessage) (*domain.Message, error) {
	params := map[string]any{
		"sender":  m.Sender,
		"chat":    m.Chat,
		"content": m.Content,
	}
	query := `CREATE message SET
		senderId = $sender, chatId = $chat, content = $content,
		createdAt = time::now(), updatedAt = time::now()
		RETURN id`
	if m.Media != nil {
		query = `CREATE message SET
		senderId = $sender, chatId = $chat, content = $content, media = $media,
		createdAt = time::now(), updatedAt = time::now()
		RETURN id`
		params["media"] = *m.Media
	}

	created, err := s.client.QueryOne(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, "failed to create message")
	}
	if created == nil || created.ID == nil {
		return nil, NewDBError(ErrQueryFailed, "failed to create message: no id returned")
	}

	row, err := s.client.QueryOne(ctx, "SELECT * FROM $id"+messageFetch, map[string]any{"id": created.ID})
	if err != nil {
		return nil, WrapError(err, "failed to load created message")
	}
	if row == nil {
		return nil, NewDBError(ErrNotFound, "message not found")
	}
	msg := row.toDomain()
	return &msg, nil
}

// ListByChat returns a chat's messages oldest first.
func (s *MessageStore) ListByChat(ctx context.Context, chatID *domain.ID) ([]domain.Message, error) {
	query := "SELECT * FROM message WHERE chatId = $chat ORDER BY createdAt ASC" + messageFetch
	rows, err := s.client.Query(ctx, query, map[string]any{"chat": chatID})
	if err != nil {
		return nil, WrapError(err, "failed to list messages")
	}
	return lo.Map(rows, func(r messageRow, _ int) domain.Message { return r.toDomain() }), nil
}
