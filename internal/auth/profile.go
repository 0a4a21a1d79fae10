package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/filestore"
)

// ImageStore uploads and removes profile pictures.
type ImageStore interface {
	Replace(ctx context.Context, policy filestore.Policy, old domain.Media, r io.Reader, size int64) (domain.Media, error)
	Delete(ctx context.Context, media domain.Media) error
}

// Upload is a file sent along with a form.
type Upload struct {
	Body io.Reader
	Size int64
}

// ProfileService manages an account once it exists: lookups, edits and
// deletion.
type ProfileService struct {
	users  domain.UserRepository
	images ImageStore
	logger *slog.Logger
}

// NewProfileService creates the profile service.
func NewProfileService(users domain.UserRepository, images ImageStore) *ProfileService {
	return &ProfileService{
		users:  users,
		images: images,
		logger: slog.Default().With("component", "profile"),
	}
}

// Me returns the signed-in user.
func (s *ProfileService) Me(ctx context.Context, me *domain.ID) (*domain.User, error) {
	return s.users.FindByID(ctx, me)
}

// Search finds other users by name or email.
func (s *ProfileService) Search(ctx context.Context, me *domain.ID, keyword string) ([]domain.User, error) {
	return s.users.Search(ctx, keyword, me)
}

// All lists every verified user.
func (s *ProfileService) All(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// Update applies the non-empty fields of p and, when image is set, replaces
// the profile picture. Moving to an email another account holds fails with
// ErrUserAlreadyExists.
func (s *ProfileService) Update(ctx context.Context, me *domain.ID, p domain.ProfileUpdate, image *Upload) (*domain.User, error) {
	current, err := s.users.FindByID(ctx, me)
	if err != nil {
		return nil, err
	}

	merged := domain.ProfileUpdate{
		FullName:    firstNonEmpty(p.FullName, current.FullName),
		Email:       firstNonEmpty(strings.ToLower(strings.TrimSpace(p.Email)), current.Email),
		Gender:      firstNonEmpty(p.Gender, current.Gender),
		DateOfBirth: firstNonEmpty(p.DateOfBirth, current.DateOfBirth),
	}

	if merged.Email != current.Email {
		other, err := s.users.FindByEmail(ctx, merged.Email)
		switch {
		case err == nil && !other.ID.Equal(me):
			return nil, domain.ErrUserAlreadyExists
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	if image != nil {
		media, err := s.images.Replace(ctx, filestore.ProfileImage, current.ProfileImage, image.Body, image.Size)
		if err != nil {
			return nil, err
		}
		merged.ProfileImage = &media
	}

	return s.users.UpdateProfile(ctx, me, merged)
}

// Delete removes the account and its profile picture.
func (s *ProfileService) Delete(ctx context.Context, me *domain.ID) error {
	current, err := s.users.FindByID(ctx, me)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, me); err != nil {
		return err
	}
	if err := s.images.Delete(ctx, current.ProfileImage); err != nil {
		s.logger.WarnContext(ctx, "Failed to delete profile image", "user_id", me.String(), "error", err)
	}
	return nil
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
