package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfrund/parley/internal/domain"
)

// sniffLen is how much of an upload is buffered for MIME detection.
const sniffLen = 3072

// Policy restricts what an upload may contain and where it is stored.
type Policy struct {
	// Prefix is the storage directory for this kind of upload.
	Prefix  string
	MaxSize int64
	Allowed []string
}

// Upload policies for each kind of attachment.
var (
	ProfileImage = Policy{
		Prefix:  "profiles",
		MaxSize: 2 << 20,
		Allowed: []string{"image/jpeg", "image/png", "image/jpg", "image/webp"},
	}
	MessageMedia = Policy{
		Prefix:  "messages",
		MaxSize: 20 << 20,
		Allowed: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml",
			"video/mp4", "video/webm", "video/ogg",
			"text/plain", "application/json", "application/pdf",
		},
	}
	StatusMedia = Policy{
		Prefix:  "status",
		MaxSize: 20 << 20,
		Allowed: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml", "image/avif",
			"video/mp4", "video/x-msvideo", "video/mpeg", "video/ogg", "video/webm", "video/3gpp",
		},
	}
)

// Service validates uploads and hands them to an object store.
type Service struct {
	store  domain.ObjectStore
	logger *slog.Logger
}

// NewService creates a new upload service.
func NewService(store domain.ObjectStore) *Service {
	return &Service{
		store:  store,
		logger: slog.Default().With("component", "filestore"),
	}
}

// Upload checks r against policy and stores it under a fresh name. size is the
// length the client declared; the content is cut off one byte past the limit
// regardless so an understated size cannot slip through.
func (s *Service) Upload(ctx context.Context, policy Policy, r io.Reader, size int64) (domain.Media, error) {
	if size > policy.MaxSize {
		return domain.Media{}, fmt.Errorf("%w: limit is %d MB", domain.ErrFileTooLarge, policy.MaxSize>>20)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.Media{}, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), policy.Allowed...) {
		return domain.Media{}, fmt.Errorf("%w: %s", domain.ErrInvalidFileType, mtype.String())
	}

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), r), remaining: policy.MaxSize}
	key := path.Join(policy.Prefix, uuid.NewString()+mtype.Extension())
	if err := s.store.Put(ctx, key, body, size, mtype.String()); err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) || body.exceeded {
			_ = s.store.Delete(ctx, key)
			return domain.Media{}, fmt.Errorf("%w: limit is %d MB", domain.ErrFileTooLarge, policy.MaxSize>>20)
		}
		return domain.Media{}, fmt.Errorf("store upload: %w", err)
	}

	s.logger.Debug("Stored upload", "key", key, "type", mtype.String())
	return domain.Media{
		FileID:   key,
		URL:      s.store.URL(key),
		FileType: domain.MajorType(mtype.String()),
	}, nil
}

// Replace uploads a new file and then removes old. Failure to delete the old
// object is logged, not returned, since the new media is already stored.
func (s *Service) Replace(ctx context.Context, policy Policy, old domain.Media, r io.Reader, size int64) (domain.Media, error) {
	media, err := s.Upload(ctx, policy, r, size)
	if err != nil {
		return domain.Media{}, err
	}
	if err := s.Delete(ctx, old); err != nil {
		s.logger.Warn("Failed to delete replaced upload", "key", old.FileID, "error", err)
	}
	return media, nil
}

// Delete removes the object behind media. Media without a file id, such as
// the default images, is ignored.
func (s *Service) Delete(ctx context.Context, media domain.Media) error {
	if media.FileID == "" {
		return nil
	}
	return s.store.Delete(ctx, media.FileID)
}

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, domain.ErrFileTooLarge
	}
	return n, err
}
