package chat

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/nfrund/parley/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func uid(key string) *domain.ID { return domain.NewID(domain.TableUser, key) }

// fakeStore backs every repository the service needs with plain maps.
type fakeStore struct {
	users    map[string]domain.User
	chats    []*chatRecord
	messages []domain.Message
	statuses []domain.Status
	removed  []domain.Media
	seq      int
}

type chatRecord struct {
	id      *domain.ID
	name    string
	group   bool
	users   []*domain.ID
	admin   *domain.ID
	latest  *domain.ID
	updated time.Time
}

func newFakeStore(userKeys ...string) *fakeStore {
	f := &fakeStore{users: map[string]domain.User{}}
	for _, k := range userKeys {
		f.users[uid(k).String()] = domain.User{ID: uid(k), FullName: k, IsVerified: true}
	}
	return f
}

func (f *fakeStore) next(table string) *domain.ID {
	f.seq++
	return domain.NewID(table, fmt.Sprintf("%s%d", table, f.seq))
}

func (f *fakeStore) toChat(r *chatRecord) *domain.Chat {
	c := &domain.Chat{ID: r.id, ChatName: r.name, IsGroupChat: r.group}
	for _, id := range r.users {
		c.Users = append(c.Users, f.users[id.String()])
	}
	if r.admin != nil {
		u := f.users[r.admin.String()]
		c.GroupAdmin = &u
	}
	if r.latest != nil {
		c.LatestMessage = &domain.Message{ID: r.latest}
	}
	return c
}

func (f *fakeStore) find(id *domain.ID) *chatRecord {
	for _, r := range f.chats {
		if r.id.Equal(id) {
			return r
		}
	}
	return nil
}

// UserRepository

func (f *fakeStore) FindByID(_ context.Context, id *domain.ID) (*domain.User, error) {
	u, ok := f.users[id.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}
func (f *fakeStore) FindByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeStore) SaveOTP(context.Context, string, string, time.Time) error { return nil }
func (f *fakeStore) CompleteSignup(context.Context, *domain.ID, domain.Signup) (*domain.User, error) {
	return nil, nil
}
func (f *fakeStore) Search(context.Context, string, *domain.ID) ([]domain.User, error) {
	return nil, nil
}
func (f *fakeStore) List(context.Context) ([]domain.User, error) { return nil, nil }
func (f *fakeStore) UpdateProfile(context.Context, *domain.ID, domain.ProfileUpdate) (*domain.User, error) {
	return nil, nil
}
func (f *fakeStore) SetResetToken(context.Context, *domain.ID, string, time.Time) error { return nil }
func (f *fakeStore) ResetPassword(context.Context, string, string, time.Time) (*domain.User, error) {
	return nil, nil
}
func (f *fakeStore) Delete(context.Context, *domain.ID) error               { return nil }
func (f *fakeStore) TouchLastSeen(context.Context, string, time.Time) error { return nil }

// chatRepo adapts fakeStore to ChatRepository; FindByID clashes with users.
type chatRepo struct{ *fakeStore }

func (c chatRepo) FindByID(_ context.Context, id *domain.ID) (*domain.Chat, error) {
	r := c.find(id)
	if r == nil {
		return nil, domain.ErrNotFound
	}
	return c.toChat(r), nil
}

func (c chatRepo) FindDirect(_ context.Context, a, b *domain.ID) (*domain.Chat, error) {
	for _, r := range c.chats {
		if !r.group && len(r.users) == 2 &&
			slices.ContainsFunc(r.users, a.Equal) && slices.ContainsFunc(r.users, b.Equal) {
			return c.toChat(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c chatRepo) FindByName(_ context.Context, name string) (*domain.Chat, error) {
	for _, r := range c.chats {
		if r.group && r.name == name {
			return c.toChat(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c chatRepo) ListForUser(_ context.Context, userID *domain.ID) ([]domain.Chat, error) {
	var out []domain.Chat
	for i := len(c.chats) - 1; i >= 0; i-- {
		if slices.ContainsFunc(c.chats[i].users, userID.Equal) {
			out = append(out, *c.toChat(c.chats[i]))
		}
	}
	return out, nil
}

func (c chatRepo) CreateDirect(_ context.Context, a, b *domain.ID) (*domain.Chat, error) {
	r := &chatRecord{id: c.next(domain.TableChat), users: []*domain.ID{a, b}}
	c.chats = append(c.chats, r)
	return c.toChat(r), nil
}

func (c chatRepo) CreateGroup(_ context.Context, g domain.NewGroup) (*domain.Chat, error) {
	r := &chatRecord{id: c.next(domain.TableChat), name: g.Name, group: true, users: g.Users, admin: g.Admin}
	c.chats = append(c.chats, r)
	return c.toChat(r), nil
}

func (c chatRepo) Rename(_ context.Context, id *domain.ID, name string) (*domain.Chat, error) {
	r := c.find(id)
	r.name = name
	return c.toChat(r), nil
}

func (c chatRepo) AddUser(_ context.Context, id, userID *domain.ID) (*domain.Chat, error) {
	r := c.find(id)
	r.users = append(r.users, userID)
	return c.toChat(r), nil
}

func (c chatRepo) RemoveUser(_ context.Context, id, userID *domain.ID) (*domain.Chat, error) {
	r := c.find(id)
	r.users = slices.DeleteFunc(r.users, userID.Equal)
	return c.toChat(r), nil
}

func (c chatRepo) SetMembers(_ context.Context, id *domain.ID, users []*domain.ID, admin *domain.ID) (*domain.Chat, error) {
	r := c.find(id)
	r.users = users
	r.admin = admin
	return c.toChat(r), nil
}

func (c chatRepo) SetLatestMessage(_ context.Context, id, messageID *domain.ID) error {
	r := c.find(id)
	if r == nil {
		return domain.ErrNotFound
	}
	r.latest = messageID
	return nil
}

// messageRepo adapts fakeStore to MessageRepository.
type messageRepo struct{ *fakeStore }

func (m messageRepo) Create(_ context.Context, nm domain.NewMessage) (*domain.Message, error) {
	sender := m.users[nm.Sender.String()]
	msg := domain.Message{
		ID:      m.next(domain.TableMessage),
		Sender:  &sender,
		Chat:    &domain.Chat{ID: nm.Chat},
		Content: nm.Content,
		Media:   nm.Media,
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m messageRepo) ListByChat(_ context.Context, chatID *domain.ID) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.Chat.ID.Equal(chatID) {
			out = append(out, msg)
		}
	}
	return out, nil
}

// statusRepo adapts fakeStore to StatusRepository. Statuses are kept newest
// first, matching the store's List order.
type statusRepo struct{ *fakeStore }

func (s statusRepo) Create(_ context.Context, userID *domain.ID, media domain.Media) (*domain.Status, error) {
	u := s.users[userID.String()]
	st := domain.Status{
		ID:        s.next(domain.TableStatus),
		User:      &u,
		Media:     media,
		CreatedAt: &surrealmodels.CustomDateTime{Time: time.Now()},
	}
	s.statuses = append([]domain.Status{st}, s.statuses...)
	return &st, nil
}

func (s statusRepo) FindByID(_ context.Context, id *domain.ID) (*domain.Status, error) {
	for _, st := range s.statuses {
		if st.ID.Equal(id) {
			return &st, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s statusRepo) List(context.Context) ([]domain.Status, error) {
	return slices.Clone(s.statuses), nil
}

func (s statusRepo) Delete(_ context.Context, id *domain.ID) error {
	s.statuses = slices.DeleteFunc(s.statuses, func(st domain.Status) bool { return st.ID.Equal(id) })
	return nil
}

type mediaRecorder struct{ *fakeStore }

func (m mediaRecorder) Delete(_ context.Context, media domain.Media) error {
	m.removed = append(m.removed, media)
	return nil
}

func newTestService(userKeys ...string) (*Service, *fakeStore) {
	f := newFakeStore(userKeys...)
	return NewService(f, chatRepo{f}, messageRepo{f}, statusRepo{f}, mediaRecorder{f}), f
}
