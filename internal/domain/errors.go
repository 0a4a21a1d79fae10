package domain

import "errors"

// Sentinel errors for the domain layer. Handlers map these to HTTP status
// codes in one place.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrInvalidID          = errors.New("invalid id")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserAlreadyExists  = errors.New("user already exists, please sign in")
	ErrUserNotVerified    = errors.New("user has not completed signup")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid or expired otp")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrChatNameTaken      = errors.New("a group already exists with this chat name")
	ErrGroupTooSmall      = errors.New("more than 2 users are required in a group chat")
	ErrNotGroupChat       = errors.New("chat is not a group chat")
	ErrNotChatMember      = errors.New("user is not a member of this chat")
	ErrInvalidFileType    = errors.New("invalid file type")
	ErrFileTooLarge       = errors.New("file size exceeds the limit")
	ErrEmailDelivery      = errors.New("email sending error")
)
