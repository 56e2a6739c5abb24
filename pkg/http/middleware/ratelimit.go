package middleware

import (
	"net/http"
	"time"

	applogger "CryptoRNN/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Limiter decides whether key may make another request. Forget drops keys
// idle for longer than age and reports how many were removed.
type Limiter interface {
	Allow(key string) bool
	Forget(age time.Duration) int
}

// RateLimit rejects requests with 429 once the client IP runs out of tokens.
func RateLimit(l *applogger.Logger, limiter Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if limiter.Allow(ip) {
				return next(c)
			}
			l.Debug("http request rate limited",
				applogger.String("ip", ip),
				applogger.String("path", c.Request().URL.Path),
			)
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": "too many requests",
			})
		}
	}
}
