package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/auth"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/middleware"
)

// UserHandler serves the /api/users routes.
type UserHandler struct {
	accounts AccountService
	profiles ProfileService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts AccountService, profiles ProfileService) *UserHandler {
	return &UserHandler{accounts: accounts, profiles: profiles}
}

// AuthResponse is returned on signup and signin.
type AuthResponse struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
	Token   string       `json:"token"`
}

// SendOTP handles POST /api/users/send-otp.
func (h *UserHandler) SendOTP(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.accounts.SendOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "OTP sent successfully"})
}

// Signup handles POST /api/users/signup.
func (h *UserHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sess, err := h.accounts.Signup(c.Request().Context(), auth.SignupInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
		OTP:         req.OTP,
	})
	if err != nil {
		return err
	}
	return h.respondWithToken(c, http.StatusCreated, sess)
}

// Signin handles POST /api/users/signin.
func (h *UserHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	sess, err := h.accounts.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		middleware.FromContext(c.Request().Context()).Warn("Failed login attempt", "email", req.Email)
		return err
	}
	return h.respondWithToken(c, http.StatusOK, sess)
}

// Signout handles GET /api/users/signout.
func (h *UserHandler) Signout(c echo.Context) error {
	if err := h.accounts.Signout(c.Request().Context(), middleware.Token(c)); err != nil {
		return err
	}
	if err := middleware.ClearAuthToken(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "User logged out successfully"})
}

// ForgotPassword handles POST /api/users/forgot-password.
func (h *UserHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.accounts.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Reset password link sent to your email"})
}

// ResetPassword handles POST /api/users/forgot-password-link/:resetToken.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.accounts.ResetPassword(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully",
		"user":    user,
	})
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.profiles.Me(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Search handles GET /api/users?search=.
func (h *UserHandler) Search(c echo.Context) error {
	users, err := h.profiles.Search(c.Request().Context(), middleware.UserID(c), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// All handles GET /api/users/all.
func (h *UserHandler) All(c echo.Context) error {
	users, err := h.profiles.All(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Edit handles PUT /api/users/edit with an optional profileImage file.
func (h *UserHandler) Edit(c echo.Context) error {
	var req editProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	header, file, err := formFile(c, "profileImage")
	if err != nil {
		return err
	}
	var image *auth.Upload
	if file != nil {
		defer file.Close()
		image = &auth.Upload{Body: file, Size: header.Size}
	}

	user, err := h.profiles.Update(c.Request().Context(), middleware.UserID(c), domain.ProfileUpdate{
		FullName:    req.FullName,
		Email:       req.Email,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
	}, image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /api/users/delete.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.profiles.Delete(ctx, middleware.UserID(c)); err != nil {
		return err
	}
	if err := h.accounts.Signout(ctx, middleware.Token(c)); err != nil {
		middleware.FromContext(ctx).Warn("Failed to revoke token of deleted user", "error", err)
	}
	if err := middleware.ClearAuthToken(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "User deleted successfully"})
}

func (h *UserHandler) respondWithToken(c echo.Context, code int, sess *auth.Session) error {
	if err := middleware.SetAuthToken(c, sess.Token, h.accounts.TokenTTL()); err != nil {
		return err
	}
	return c.JSON(code, AuthResponse{Success: true, User: sess.User, Token: sess.Token})
}
