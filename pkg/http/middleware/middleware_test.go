package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	applogger "CryptoRNN/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type countingLimiter struct{ left int }

func (l *countingLimiter) Allow(string) bool {
	if l.left == 0 {
		return false
	}
	l.left--
	return true
}

func (l *countingLimiter) Forget(time.Duration) int { return 0 }

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRecoverReturns500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(applogger.Nop()))
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := serve(e, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestRateLimitRejectsWhenDrained(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(applogger.Nop(), &countingLimiter{left: 1}))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(e, "/ok").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, "/ok").Code)
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{101: "1xx", 204: "2xx", 302: "3xx", 404: "4xx", 503: "5xx"} {
		assert.Equal(t, want, statusClass(code), "code %d", code)
	}
}
