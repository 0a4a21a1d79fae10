package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/auth"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/filestore"
)

// AccountService is the sign-up and sign-in surface the user routes need.
type AccountService interface {
	SendOTP(ctx context.Context, email string) error
	Signup(ctx context.Context, in auth.SignupInput) (*auth.Session, error)
	Signin(ctx context.Context, email, password string) (*auth.Session, error)
	Signout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) (*domain.User, error)
	TokenTTL() time.Duration
}

// ProfileService manages existing accounts.
type ProfileService interface {
	Me(ctx context.Context, me *domain.ID) (*domain.User, error)
	Search(ctx context.Context, me *domain.ID, keyword string) ([]domain.User, error)
	All(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, me *domain.ID, p domain.ProfileUpdate, image *auth.Upload) (*domain.User, error)
	Delete(ctx context.Context, me *domain.ID) error
}

// ChatService covers chats, messages and statuses.
type ChatService interface {
	AccessChat(ctx context.Context, me, other *domain.ID) (*domain.Chat, bool, error)
	ListChats(ctx context.Context, me *domain.ID) ([]domain.Chat, error)
	CreateGroup(ctx context.Context, me *domain.ID, name string, members []*domain.ID) (*domain.Chat, error)
	RenameGroup(ctx context.Context, me, chatID *domain.ID, name string) (*domain.Chat, error)
	AddToGroup(ctx context.Context, me, chatID, userID *domain.ID) (*domain.Chat, error)
	RemoveFromGroup(ctx context.Context, me, chatID, userID *domain.ID) (*domain.Chat, error)
	ExitGroup(ctx context.Context, me, chatID *domain.ID) (*domain.Chat, error)

	SendMessage(ctx context.Context, me, chatID *domain.ID, content string, media *domain.Media) (*domain.Message, error)
	ListMessages(ctx context.Context, me, chatID *domain.ID) ([]domain.Message, error)

	PostStatus(ctx context.Context, me *domain.ID, media domain.Media) (*domain.Status, error)
	StatusFeed(ctx context.Context, me *domain.ID) ([]domain.Status, error)
	DeleteStatus(ctx context.Context, me, statusID *domain.ID) error
}

// Uploader stores validated attachments.
type Uploader interface {
	Upload(ctx context.Context, policy filestore.Policy, r io.Reader, size int64) (domain.Media, error)
	Delete(ctx context.Context, media domain.Media) error
}

// formFile opens the multipart file in field. It returns a nil header when
// the field is absent.
func formFile(c echo.Context, field string) (*multipart.FileHeader, multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file").SetInternal(err)
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file").SetInternal(err)
	}
	return header, f, nil
}
