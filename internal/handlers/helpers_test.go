package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/auth"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/filestore"
	"github.com/nfrund/parley/internal/middleware"
	"github.com/stretchr/testify/require"
)

var me = domain.NewID(domain.TableUser, "ada")

// newTestEcho wires the validator and error handler the server uses. authed
// routes see `me` as the signed-in user.
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	return e
}

func asMe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(middleware.UserIDContextKey, me)
		c.Set(middleware.TokenContextKey, "tok-ada")
		return next(c)
	}
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doMultipart(t *testing.T, e *echo.Echo, method, path string, fields map[string]string, fileField string, file []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, "upload.bin")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// mockAccounts records calls and returns canned results.
type mockAccounts struct {
	otpEmails  []string
	signupIn   auth.SignupInput
	signedOut  []string
	resetCalls []string
	err        error
}

func (m *mockAccounts) SendOTP(_ context.Context, email string) error {
	m.otpEmails = append(m.otpEmails, email)
	return m.err
}

func (m *mockAccounts) Signup(_ context.Context, in auth.SignupInput) (*auth.Session, error) {
	m.signupIn = in
	if m.err != nil {
		return nil, m.err
	}
	return &auth.Session{User: &domain.User{ID: me, FullName: in.FullName, Email: in.Email, IsVerified: true}, Token: "tok-new"}, nil
}

func (m *mockAccounts) Signin(_ context.Context, email, password string) (*auth.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &auth.Session{User: &domain.User{ID: me, Email: email, Password: "secret-hash"}, Token: "tok-signin"}, nil
}

func (m *mockAccounts) Signout(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return nil
}

func (m *mockAccounts) ForgotPassword(_ context.Context, email string) error { return m.err }

func (m *mockAccounts) ResetPassword(_ context.Context, token, password string) (*domain.User, error) {
	m.resetCalls = append(m.resetCalls, token)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.User{ID: me}, nil
}

func (m *mockAccounts) TokenTTL() time.Duration { return time.Hour }

type mockProfiles struct {
	update  domain.ProfileUpdate
	image   []byte
	deleted bool
	search  string
}

func (m *mockProfiles) Me(_ context.Context, id *domain.ID) (*domain.User, error) {
	return &domain.User{ID: id, FullName: "Ada"}, nil
}

func (m *mockProfiles) Search(_ context.Context, _ *domain.ID, keyword string) ([]domain.User, error) {
	m.search = keyword
	return []domain.User{{ID: domain.NewID(domain.TableUser, "bob"), FullName: "Bob"}}, nil
}

func (m *mockProfiles) All(context.Context) ([]domain.User, error) { return []domain.User{}, nil }

func (m *mockProfiles) Update(_ context.Context, id *domain.ID, p domain.ProfileUpdate, image *auth.Upload) (*domain.User, error) {
	m.update = p
	if image != nil {
		m.image, _ = io.ReadAll(image.Body)
	}
	return &domain.User{ID: id, FullName: p.FullName}, nil
}

func (m *mockProfiles) Delete(context.Context, *domain.ID) error {
	m.deleted = true
	return nil
}

type mockUploads struct {
	uploads []string
	deleted []domain.Media
	err     error
}

func (m *mockUploads) Upload(_ context.Context, policy filestore.Policy, r io.Reader, _ int64) (domain.Media, error) {
	if m.err != nil {
		return domain.Media{}, m.err
	}
	data, _ := io.ReadAll(r)
	m.uploads = append(m.uploads, policy.Prefix)
	return domain.Media{FileID: policy.Prefix + "/f", URL: "/media/" + policy.Prefix + "/f", FileType: strings.TrimSpace(string(data))}, nil
}

func (m *mockUploads) Delete(_ context.Context, media domain.Media) error {
	m.deleted = append(m.deleted, media)
	return nil
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
