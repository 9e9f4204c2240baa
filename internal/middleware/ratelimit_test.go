package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_BurstThenDeny(t *testing.T) {
	limiter := NewIPRateLimiter(60, 3)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"), "request %d should be allowed", i)
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Other clients have their own bucket.
	assert.True(t, limiter.Allow("10.0.0.2"))

	// One token is refilled per second at 60 rpm.
	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestIPRateLimiter_EvictsIdleVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(60, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(limiter.idleTTL + time.Second)
	limiter.Allow("10.0.0.2")

	assert.Len(t, limiter.visitors, 1)
}

func TestIPRateLimiter_InvalidSettings(t *testing.T) {
	limiter := NewIPRateLimiter(0, 0)

	assert.Equal(t, 1, limiter.burst)
	assert.Equal(t, 60, limiter.retryAfter())
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewIPRateLimiter(1, 1)
	router := gin.New()
	router.POST("/login", RateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req, _ := http.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}
