package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// DefaultRateLimitWindow is the window a burst of requests is spread over.
const DefaultRateLimitWindow = 15 * time.Minute

// RateLimiter limits each client IP to burst requests, refilled at
// requestsPerSecond. The defaults allow 100 requests per 15 minutes.
func RateLimiter(requestsPerSecond float64, burst int) echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(requestsPerSecond),
			Burst:     burst,
			ExpiresIn: DefaultRateLimitWindow,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			FromContext(c.Request().Context()).Warn("Rate limit exceeded", "ip", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests from this IP, please try again later")
		},
	}
	return middleware.RateLimiterWithConfig(config)
}
