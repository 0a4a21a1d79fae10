package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nfrund/parley/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// memUsers is an in-memory UserRepository keyed by email.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	resets  map[string]time.Time
	nextID  int
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*domain.User{}, resets: map[string]time.Time{}}
}

func (m *memUsers) FindByID(_ context.Context, id *domain.ID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID.Equal(id) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SaveOTP(_ context.Context, email, otpHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		m.nextID++
		u = &domain.User{ID: domain.NewID(domain.TableUser, fmt.Sprintf("u%d", m.nextID)), Email: email}
		m.byEmail[email] = u
	}
	u.OTP = otpHash
	u.OTPExpiration = &surrealmodels.CustomDateTime{Time: expires}
	return nil
}

func (m *memUsers) CompleteSignup(_ context.Context, id *domain.ID, s domain.Signup) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID.Equal(id) {
			u.FullName = s.FullName
			u.Password = s.PasswordHash
			u.Gender = s.Gender
			u.DateOfBirth = s.DateOfBirth
			u.IsVerified = true
			u.OTP = ""
			u.OTPExpiration = nil
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) Search(context.Context, string, *domain.ID) ([]domain.User, error) {
	return nil, nil
}
func (m *memUsers) List(context.Context) ([]domain.User, error) { return nil, nil }
func (m *memUsers) UpdateProfile(context.Context, *domain.ID, domain.ProfileUpdate) (*domain.User, error) {
	return nil, nil
}
func (m *memUsers) Delete(context.Context, *domain.ID) error               { return nil }
func (m *memUsers) TouchLastSeen(context.Context, string, time.Time) error { return nil }

func (m *memUsers) SetResetToken(_ context.Context, id *domain.ID, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID.Equal(id) {
			u.ResetPasswordToken = tokenHash
			m.resets[tokenHash] = expires
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memUsers) ResetPassword(_ context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ResetPasswordToken == tokenHash && now.Before(m.resets[tokenHash]) {
			u.Password = passwordHash
			u.ResetPasswordToken = ""
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memBlacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

func newMemBlacklist() *memBlacklist { return &memBlacklist{tokens: map[string]time.Time{}} }

func (b *memBlacklist) Add(_ context.Context, token string, expires time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = expires
	return nil
}

func (b *memBlacklist) Contains(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.tokens[token]
	return ok, nil
}

func (b *memBlacklist) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for tok, exp := range b.tokens {
		if exp.Before(now) {
			delete(b.tokens, tok)
			n++
		}
	}
	return n, nil
}

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMailer) last() sentMail {
	return f.sent[len(f.sent)-1]
}

func testNow() time.Time { return time.Now().Add(otpTTL) }
