package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/middleware"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse acknowledges an action that returns no resource.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// statusFor maps domain errors onto HTTP codes and client-facing messages.
var statusFor = []struct {
	err     error
	code    int
	message string
}{
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Please login to access the resource"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{domain.ErrInvalidResetToken, http.StatusUnauthorized, "Invalid or expired token"},
	{domain.ErrForbidden, http.StatusForbidden, "You are not allowed to do that"},
	{domain.ErrNotChatMember, http.StatusForbidden, "You are not a member of this chat"},
	{domain.ErrNotFound, http.StatusNotFound, "Resource not found"},
	{domain.ErrUserAlreadyExists, http.StatusBadRequest, "User already exists, please login"},
	{domain.ErrUserNotVerified, http.StatusBadRequest, "Account is not verified"},
	{domain.ErrInvalidOTP, http.StatusBadRequest, "Invalid or expired OTP"},
	{domain.ErrChatNameTaken, http.StatusBadRequest, "A group with this chatName already exists"},
	{domain.ErrGroupTooSmall, http.StatusBadRequest, "More than 2 users are required in a group chat"},
	{domain.ErrNotGroupChat, http.StatusBadRequest, "This chat is not a group chat"},
	{domain.ErrInvalidFileType, http.StatusBadRequest, "Invalid file type, please choose another file"},
	{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File is too large, please choose another file"},
	{domain.ErrInvalidID, http.StatusBadRequest, "Invalid id"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "Invalid input"},
	{database.ErrAlreadyExists, http.StatusConflict, "Resource already exists"},
	{domain.ErrEmailDelivery, http.StatusInternalServerError, "Email sending error"},
}

// HTTPError converts any error returned by a handler into an echo.HTTPError.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(verrs))
	}
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.code, m.message).SetInternal(err)
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
}

// ErrorHandler renders errors as ErrorResponse. Install it as the echo
// HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := HTTPError(err)

	logger := middleware.FromContext(c.Request().Context())
	if he.Code >= http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.Path(), "status", he.Code, "error", err)
	} else {
		logger.Debug("Request rejected", "path", c.Path(), "status", he.Code, "error", err)
	}

	message, ok := he.Message.(string)
	if !ok {
		message = http.StatusText(he.Code)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, ErrorResponse{Success: false, Message: message})
}

func validationMessage(verrs validator.ValidationErrors) string {
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "len":
		return fe.Field() + " must have " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}
