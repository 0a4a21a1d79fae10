package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/parley/internal/domain"
)

// Context keys set by Auth.
const (
	UserIDContextKey = "user_id"
	TokenContextKey  = "token"
)

// TokenAuthenticator resolves an access token to the user id it was issued
// for, refusing revoked tokens.
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (string, error)
}

// Auth rejects requests without a valid access token. The token is taken
// from the session, then the token cookie, then a bearer header.
func Auth(authn TokenAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Please login to access the resource")
			}

			ctx := c.Request().Context()
			subject, err := authn.AuthenticateToken(ctx, token)
			if err != nil {
				FromContext(ctx).Debug("Rejected access token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token, please login again")
			}
			userID, err := domain.ParseID(subject, domain.TableUser)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token, please login again")
			}

			c.Set(UserIDContextKey, userID)
			c.Set(TokenContextKey, token)

			logger := FromContext(ctx).With("user_id", userID.String())
			c.SetRequest(c.Request().WithContext(WithLogger(ctx, logger)))

			return next(c)
		}
	}
}

// UserID returns the authenticated user's id, or nil outside Auth.
func UserID(c echo.Context) *domain.ID {
	id, _ := c.Get(UserIDContextKey).(*domain.ID)
	return id
}

// Token returns the access token the request authenticated with.
func Token(c echo.Context) string {
	token, _ := c.Get(TokenContextKey).(string)
	return token
}

func extractToken(c echo.Context) string {
	if sess, err := session.Get(SessionName, c); err == nil {
		if token, ok := sess.Values[sessionTokenKey].(string); ok && token != "" {
			return token
		}
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " "); ok &&
		strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
