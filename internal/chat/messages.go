package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/nfrund/parley/internal/domain"
)

// SendMessage stores a message from me in chatID and makes it the chat's
// latest message. A message needs content, media, or both.
func (s *Service) SendMessage(ctx context.Context, me, chatID *domain.ID, content string, media *domain.Media) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if media != nil && media.IsZero() {
		media = nil
	}
	if content == "" && media == nil {
		return nil, fmt.Errorf("%w: a message needs content or media", domain.ErrInvalidInput)
	}
	if _, err := s.loadMember(ctx, me, chatID); err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, domain.NewMessage{
		Sender:  me,
		Chat:    chatID,
		Content: content,
		Media:   media,
	})
	if err != nil {
		return nil, err
	}

	if err := s.chats.SetLatestMessage(ctx, chatID, msg.ID); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the history of a chat I belong to, oldest first.
func (s *Service) ListMessages(ctx context.Context, me, chatID *domain.ID) ([]domain.Message, error) {
	if _, err := s.loadMember(ctx, me, chatID); err != nil {
		return nil, err
	}
	return s.messages.ListByChat(ctx, chatID)
}
