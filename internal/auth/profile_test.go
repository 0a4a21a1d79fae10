package auth

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileUsers extends memUsers with profile writes.
type profileUsers struct {
	*memUsers
	deleted []*domain.ID
}

func (p *profileUsers) UpdateProfile(_ context.Context, id *domain.ID, up domain.ProfileUpdate) (*domain.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for email, u := range p.byEmail {
		if u.ID.Equal(id) {
			delete(p.byEmail, email)
			u.FullName, u.Email, u.Gender, u.DateOfBirth = up.FullName, up.Email, up.Gender, up.DateOfBirth
			if up.ProfileImage != nil {
				u.ProfileImage = *up.ProfileImage
			}
			p.byEmail[u.Email] = u
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (p *profileUsers) Delete(_ context.Context, id *domain.ID) error {
	p.deleted = append(p.deleted, id)
	return nil
}

type fakeImages struct {
	replaced []domain.Media
	deleted  []domain.Media
}

func (f *fakeImages) Replace(_ context.Context, policy filestore.Policy, old domain.Media, r io.Reader, _ int64) (domain.Media, error) {
	data, _ := io.ReadAll(r)
	f.replaced = append(f.replaced, old)
	return domain.Media{FileID: policy.Prefix + "/" + string(data), URL: "/media/x", FileType: "image"}, nil
}

func (f *fakeImages) Delete(_ context.Context, m domain.Media) error {
	f.deleted = append(f.deleted, m)
	return nil
}

func seedUser(t *testing.T, users *memUsers, email string) *domain.User {
	t.Helper()
	require.NoError(t, users.SaveOTP(context.Background(), email, "h", testNow()))
	u, err := users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	users.byEmail[email].FullName = "Original"
	users.byEmail[email].Gender = "other"
	users.byEmail[email].ProfileImage = domain.DefaultProfileImage
	return u
}

func TestProfileUpdate(t *testing.T) {
	ctx := context.Background()
	users := &profileUsers{memUsers: newMemUsers()}
	images := &fakeImages{}
	svc := NewProfileService(users, images)

	ada := seedUser(t, users.memUsers, "ada@example.com")
	seedUser(t, users.memUsers, "bob@example.com")

	updated, err := svc.Update(ctx, ada.ID, domain.ProfileUpdate{FullName: "Ada L."}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.FullName)
	assert.Equal(t, "ada@example.com", updated.Email)
	assert.Equal(t, "other", updated.Gender)
	assert.Empty(t, images.replaced)

	_, err = svc.Update(ctx, ada.ID, domain.ProfileUpdate{Email: "BOB@example.com"}, nil)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	updated, err = svc.Update(ctx, ada.ID, domain.ProfileUpdate{Email: "ada@new.example"}, &Upload{Body: bytes.NewReader([]byte("pic")), Size: 3})
	require.NoError(t, err)
	assert.Equal(t, "ada@new.example", updated.Email)
	assert.Equal(t, "profiles/pic", updated.ProfileImage.FileID)
	assert.Equal(t, []domain.Media{domain.DefaultProfileImage}, images.replaced)

	require.NoError(t, svc.Delete(ctx, ada.ID))
	assert.Len(t, users.deleted, 1)
	assert.Equal(t, "profiles/pic", images.deleted[0].FileID)
}
