package database

import (
	"context"
	"strings"
	"time"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
)

// UserStore implements domain.UserRepository on SurrealDB.
type UserStore struct {
	client Client[domain.User]
}

var _ domain.UserRepository = (*UserStore)(nil)

// NewUserStore creates a user repository on db.
func NewUserStore(db Runner, cfg config.Provider, opts ...ClientOption[domain.User]) (*UserStore, error) {
	c, err := NewClient[domain.User](db, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &UserStore{client: c}, nil
}

// FindByID retrieves a user by their record id.
func (s *UserStore) FindByID(ctx context.Context, id *domain.ID) (*domain.User, error) {
	if id == nil {
		return nil, NewDBError(ErrInvalidInput, "user id is required")
	}
	user, err := s.client.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, WrapError(err, "failed to get user")
	}
	if user == nil {
		return nil, NewDBError(ErrNotFound, "user not found")
	}
	return user, nil
}

// FindByEmail retrieves a user by their email address.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := "SELECT * FROM user WHERE email = $email LIMIT 1"
	user, err := s.client.QueryOne(ctx, query, map[string]any{"email": normalizeEmail(email)})
	if err != nil {
		return nil, WrapError(err, "failed to get user by email")
	}
	if user == nil {
		return nil, NewDBError(ErrNotFound, "user not found")
	}
	return user, nil
}

// SaveOTP stores the OTP hash on the account for email, creating a pending
// account on first contact.
func (s *UserStore) SaveOTP(ctx context.Context, email, otpHash string, expires time.Time) error {
	params := map[string]any{
		"email":   normalizeEmail(email),
		"otp":     otpHash,
		"expires": datetime(expires),
	}

	existing, err := s.FindByEmail(ctx, email)
	switch {
	case err == nil:
		params["id"] = existing.ID
		query := "UPDATE $id SET otp = $otp, otpExpiration = type::datetime($expires), updatedAt = time::now() RETURN NONE"
		return WrapError(s.client.Execute(ctx, query, params), "failed to save otp")
	case IsNotFound(err):
		params["image"] = domain.DefaultProfileImage
		query := `CREATE user SET
			email = $email, fullName = "", isVerified = false, profileImage = $image,
			otp = $otp, otpExpiration = type::datetime($expires),
			createdAt = time::now(), updatedAt = time::now()
			RETURN NONE`
		return WrapError(s.client.Execute(ctx, query, params), "failed to create pending user")
	default:
		return err
	}
}

// CompleteSignup fills in a pending account and marks it verified.
func (s *UserStore) CompleteSignup(ctx context.Context, id *domain.ID, su domain.Signup) (*domain.User, error) {
	query := `UPDATE $id SET
		fullName = $fullName, password = $password, gender = $gender, dateOfBirth = $dob,
		isVerified = true, otp = NONE, otpExpiration = NONE, updatedAt = time::now()`
	return s.updateOne(ctx, query, map[string]any{
		"id":       id,
		"fullName": strings.TrimSpace(su.FullName),
		"password": su.PasswordHash,
		"gender":   su.Gender,
		"dob":      su.DateOfBirth,
	}, "failed to complete signup")
}

// Search matches the keyword against name and email, case-insensitively.
func (s *UserStore) Search(ctx context.Context, keyword string, exclude *domain.ID) ([]domain.User, error) {
	params := map[string]any{"exclude": exclude}
	query := "SELECT * FROM user WHERE isVerified = true AND id != $exclude"
	if kw := strings.ToLower(strings.TrimSpace(keyword)); kw != "" {
		query += " AND (string::lowercase(fullName) CONTAINS $kw OR string::lowercase(email) CONTAINS $kw)"
		params["kw"] = kw
	}
	query += " ORDER BY fullName"

	users, err := s.client.Query(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, "failed to search users")
	}
	return nonNil(users), nil
}

// List returns every verified account.
func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.client.Query(ctx, "SELECT * FROM user WHERE isVerified = true ORDER BY fullName", nil)
	if err != nil {
		return nil, WrapError(err, "failed to list users")
	}
	return nonNil(users), nil
}

// UpdateProfile writes the editable profile fields.
func (s *UserStore) UpdateProfile(ctx context.Context, id *domain.ID, p domain.ProfileUpdate) (*domain.User, error) {
	params := map[string]any{
		"id":       id,
		"fullName": strings.TrimSpace(p.FullName),
		"email":    normalizeEmail(p.Email),
		"gender":   p.Gender,
		"dob":      p.DateOfBirth,
	}
	query := "UPDATE $id SET fullName = $fullName, email = $email, gender = $gender, dateOfBirth = $dob, updatedAt = time::now()"
	if p.ProfileImage != nil {
		query += ", profileImage = $image"
		params["image"] = *p.ProfileImage
	}
	return s.updateOne(ctx, query, params, "failed to update profile")
}

// SetResetToken stores the hash of a password reset token.
func (s *UserStore) SetResetToken(ctx context.Context, id *domain.ID, tokenHash string, expires time.Time) error {
	query := "UPDATE $id SET resetPasswordToken = $token, resetPasswordTokenExpire = type::datetime($expires) RETURN NONE"
	err := s.client.Execute(ctx, query, map[string]any{
		"id":      id,
		"token":   tokenHash,
		"expires": datetime(expires),
	})
	return WrapError(err, "failed to save reset token")
}

// ResetPassword replaces the password of the user holding a live reset token.
func (s *UserStore) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error) {
	query := `UPDATE user SET
		password = $password, resetPasswordToken = NONE, resetPasswordTokenExpire = NONE, updatedAt = time::now()
		WHERE resetPasswordToken = $token AND resetPasswordTokenExpire > type::datetime($now)`
	return s.updateOne(ctx, query, map[string]any{
		"token":    tokenHash,
		"password": passwordHash,
		"now":      datetime(now),
	}, "failed to reset password")
}

// Delete removes a user record.
func (s *UserStore) Delete(ctx context.Context, id *domain.ID) error {
	return WrapError(s.client.Execute(ctx, "DELETE $id", map[string]any{"id": id}), "failed to delete user")
}

// TouchLastSeen stamps the moment the user went offline.
func (s *UserStore) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	id, err := domain.ParseID(userID, domain.TableUser)
	if err != nil {
		return NewDBError(ErrInvalidInput, err.Error())
	}
	query := "UPDATE $id SET lastSeen = type::datetime($at) RETURN NONE"
	err = s.client.Execute(ctx, query, map[string]any{"id": id, "at": datetime(at)})
	return WrapError(err, "failed to record last seen")
}

func (s *UserStore) updateOne(ctx context.Context, query string, params map[string]any, op string) (*domain.User, error) {
	user, err := s.client.QueryOne(ctx, query, params)
	if err != nil {
		return nil, WrapError(err, op)
	}
	if user == nil {
		return nil, NewDBError(ErrNotFound, op)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
