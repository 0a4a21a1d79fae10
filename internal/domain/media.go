package domain

import (
	"context"
	"io"
	"strings"
)

// Media points at an uploaded object.
type Media struct {
	FileID   string `json:"fileId" validate:"safepath"`
	URL      string `json:"url"`
	FileType string `json:"fileType"`
}

// IsZero reports whether no file is attached.
func (m Media) IsZero() bool {
	return m.FileID == "" && m.URL == ""
}

// Validate checks the storage key is safe to hand to an object store.
func (m Media) Validate() error {
	return validatorInstance.Struct(m)
}

// MajorType returns the part of a MIME type before the slash ("image" for
// "image/png").
func MajorType(mimeType string) string {
	major, _, _ := strings.Cut(mimeType, "/")
	return major
}

// ObjectStore persists uploaded bytes. Keys are relative, slash-separated
// paths; URL returns where clients can fetch the object.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// EmailSender delivers transactional mail (OTP codes, reset links).
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}
