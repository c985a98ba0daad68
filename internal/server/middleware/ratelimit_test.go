// file: internal/server/middleware/ratelimit_test.go
// version: 2.0.0
// guid: b31f3de0-b0bc-4cbf-8448-7309df38f7c0

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewIPRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	limiter := NewIPRateLimiter(0, 0)
	assert.Equal(t, 1, limiter.requestsPerMin)
	assert.Equal(t, 1, limiter.burst)
}

func limitedRouter(l *IPRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(l.Middleware())
	router.GET("/limited", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func get(router *gin.Engine, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	router := limitedRouter(NewIPRateLimiter(1, 1))

	assert.Equal(t, http.StatusOK, get(router, "/limited", "192.0.2.1:1234").Code)

	resp := get(router, "/limited", "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Contains(t, resp.Body.String(), "rate limit exceeded")
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	// Different IP should have its own bucket.
	assert.Equal(t, http.StatusOK, get(router, "/limited", "198.51.100.3:4321").Code)
}

func TestIPRateLimiter_ExemptPaths(t *testing.T) {
	t.Parallel()

	router := limitedRouter(NewIPRateLimiter(1, 1).Exempt("/health"))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(router, "/health", "192.0.2.9:1").Code)
	}
}

func TestIPRateLimiter_SweepsIdleClients(t *testing.T) {
	t.Parallel()

	l := NewIPRateLimiter(60, 1)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.limiterForIP("192.0.2.1")
	l.limiterForIP("192.0.2.2")
	assert.Equal(t, 2, l.Clients())

	now = now.Add(20 * time.Minute)
	l.limiterForIP("192.0.2.3")
	assert.Equal(t, 1, l.Clients())
}
