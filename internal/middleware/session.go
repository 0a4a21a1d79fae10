package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	// SessionName is the gorilla session holding the access token.
	SessionName = "parley-session"
	// TokenCookie is the plain cookie API clients may read the token from.
	TokenCookie = "token"

	sessionTokenKey = "token"
)

// Sessions installs the cookie session store used by Auth and SetAuthToken.
func Sessions(secret string, secure bool) echo.MiddlewareFunc {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return session.Middleware(store)
}

// SetAuthToken stores token in the session and the token cookie for ttl.
func SetAuthToken(c echo.Context, token string, ttl time.Duration) error {
	maxAge := int(ttl.Seconds())
	if token == "" {
		maxAge = -1
	}

	c.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	sess, err := session.Get(SessionName, c)
	if err != nil {
		// no session middleware on this route
		return nil
	}
	sess.Options.MaxAge = maxAge
	if token == "" {
		delete(sess.Values, sessionTokenKey)
	} else {
		sess.Values[sessionTokenKey] = token
	}
	return sess.Save(c.Request(), c.Response())
}

// ClearAuthToken expires the session and the token cookie.
func ClearAuthToken(c echo.Context) error {
	return SetAuthToken(c, "", 0)
}
