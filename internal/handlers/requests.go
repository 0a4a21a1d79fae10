package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a validator sharing the domain's custom rules.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: domain.Validator()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// bindAndValidate binds the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

// IDList accepts either a JSON array of ids or a string holding one, which is
// how multipart clients send arrays.
type IDList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		*l = ids
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("users must be an array of ids")
	}
	return l.UnmarshalParam(encoded)
}

// UnmarshalParam implements echo.BindUnmarshaler for form values.
func (l *IDList) UnmarshalParam(param string) error {
	var ids []string
	if err := json.Unmarshal([]byte(param), &ids); err != nil {
		return fmt.Errorf("users must be a JSON array of ids")
	}
	*l = ids
	return nil
}

type emailRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type signupRequest struct {
	FullName    string `json:"fullName" form:"fullName" validate:"required,min=3"`
	Email       string `json:"email" form:"email" validate:"required,email"`
	Password    string `json:"password" form:"password" validate:"required,min=6,max=15"`
	Gender      string `json:"gender" form:"gender" validate:"required,oneof=male female other"`
	DateOfBirth string `json:"dateOfBirth" form:"dateOfBirth" validate:"required"`
	OTP         string `json:"otp" form:"otp" validate:"required,len=6,numeric"`
}

type signinRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=15"`
}

type resetPasswordRequest struct {
	Token    string `param:"resetToken" validate:"required,hexadecimal,len=64"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=15"`
}

type editProfileRequest struct {
	FullName    string `json:"fullName" form:"fullName" validate:"omitempty,min=3"`
	Email       string `json:"email" form:"email" validate:"omitempty,email"`
	Gender      string `json:"gender" form:"gender" validate:"omitempty,oneof=male female other"`
	DateOfBirth string `json:"dateOfBirth" form:"dateOfBirth"`
}

type accessChatRequest struct {
	UserID string `json:"userId" form:"userId" validate:"required"`
}

type createGroupRequest struct {
	ChatName string `json:"chatName" form:"chatName" validate:"required"`
	Users    IDList `json:"users" form:"users" validate:"required,min=2"`
}

type renameGroupRequest struct {
	ChatID   string `json:"chatId" form:"chatId" validate:"required"`
	ChatName string `json:"chatName" form:"chatName" validate:"required"`
}

type groupMemberRequest struct {
	ChatID string `json:"chatId" form:"chatId" validate:"required"`
	UserID string `json:"userId" form:"userId" validate:"required"`
}

type chatIDRequest struct {
	ChatID string `json:"chatId" form:"chatId" validate:"required"`
}

type sendMessageRequest struct {
	ChatID  string `json:"chatId" form:"chatId" validate:"required"`
	Content string `json:"content" form:"content" validate:"max=5000"`
}
