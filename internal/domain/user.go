package domain

import (
	"context"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// TableUser is the SurrealDB table holding accounts.
const TableUser = "user"

// Genders accepted at signup and on profile edits.
var Genders = []string{"male", "female", "other"}

// DefaultProfileImage is assigned to accounts that never uploaded one.
var DefaultProfileImage = Media{
	URL:      "https://www.shutterstock.com/image-vector/user-profile-icon-vector-avatar-600nw-2247726673.jpg",
	FileType: "image",
}

// User is an account. Secret fields travel to and from the database but are
// never rendered as JSON.
type User struct {
	ID           *ID                           `cbor:"id,omitempty" json:"_id,omitempty"`
	FullName     string                        `json:"fullName"`
	Email        string                        `json:"email"`
	Gender       string                        `json:"gender,omitempty"`
	DateOfBirth  string                        `json:"dateOfBirth,omitempty"`
	ProfileImage Media                         `json:"profileImage"`
	IsVerified   bool                          `json:"isVerified"`
	LastSeen     *surrealmodels.CustomDateTime `json:"lastSeen,omitempty"`
	CreatedAt    *surrealmodels.CustomDateTime `json:"createdAt,omitempty"`
	UpdatedAt    *surrealmodels.CustomDateTime `json:"updatedAt,omitempty"`

	Password           string                        `cbor:"password,omitempty" json:"-"`
	OTP                string                        `cbor:"otp,omitempty" json:"-"`
	OTPExpiration      *surrealmodels.CustomDateTime `cbor:"otpExpiration,omitempty" json:"-"`
	ResetPasswordToken string                        `cbor:"resetPasswordToken,omitempty" json:"-"`
}

// OTPValid reports whether the stored one-time password is still usable at now.
func (u *User) OTPValid(now time.Time) bool {
	return u.OTP != "" && u.OTPExpiration != nil && now.Before(u.OTPExpiration.Time)
}

// Signup completes a pending account created by the OTP step.
type Signup struct {
	FullName     string
	PasswordHash string
	Gender       string
	DateOfBirth  string
}

// ProfileUpdate carries the editable profile fields. A nil ProfileImage
// leaves the current image in place.
type ProfileUpdate struct {
	FullName     string
	Email        string
	Gender       string
	DateOfBirth  string
	ProfileImage *Media
}

// UserRepository is the storage contract for accounts.
type UserRepository interface {
	// FindByID returns ErrNotFound when no such user exists.
	FindByID(ctx context.Context, id *ID) (*User, error)
	// FindByEmail returns ErrNotFound when no such user exists.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// SaveOTP stores a hashed OTP for email, creating an unverified account
	// when none exists yet.
	SaveOTP(ctx context.Context, email, otpHash string, expires time.Time) error
	CompleteSignup(ctx context.Context, id *ID, s Signup) (*User, error)
	// Search matches name or email case-insensitively, excluding one user.
	Search(ctx context.Context, keyword string, exclude *ID) ([]User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id *ID, p ProfileUpdate) (*User, error)
	SetResetToken(ctx context.Context, id *ID, tokenHash string, expires time.Time) error
	// ResetPassword swaps the password of the user holding an unexpired
	// reset token and clears the token. Returns ErrNotFound otherwise.
	ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*User, error)
	Delete(ctx context.Context, id *ID) error
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}
