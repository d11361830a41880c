package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRateLimitedRouter(mw gin.HandlerFunc, path string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.POST(path, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func doPost(router *gin.Engine, path, ip string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows up to the limit then blocks", func(t *testing.T) {
		rl := NewRateLimiter(3, time.Minute)
		defer rl.Stop()

		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("10.0.0.1"), "request %d should be allowed", i+1)
		}
		assert.False(t, rl.Allow("10.0.0.1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		defer rl.Stop()

		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))
		assert.True(t, rl.Allow("10.0.0.2"))
	})

	t.Run("window reset refills tokens", func(t *testing.T) {
		rl := NewRateLimiter(1, 50*time.Millisecond)
		defer rl.Stop()

		assert.True(t, rl.Allow("10.0.0.1"))
		assert.False(t, rl.Allow("10.0.0.1"))

		time.Sleep(60 * time.Millisecond)

		assert.True(t, rl.Allow("10.0.0.1"))
	})
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	defer rl.Stop()

	assert.Equal(t, 5, rl.Remaining("10.0.0.1"))

	rl.Allow("10.0.0.1")
	assert.Equal(t, 4, rl.Remaining("10.0.0.1"))

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.1")
	assert.Equal(t, 2, rl.Remaining("10.0.0.1"))
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(100, time.Minute)
	defer rl.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("10.0.0.1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	rl.Stop()
	assert.NotPanics(t, func() { rl.Stop() })
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		rl := NewRateLimiter(5, time.Minute)
		defer rl.Stop()
		router := newRateLimitedRouter(RateLimit(rl), "/api/v1/payments")

		w := doPost(router, "/api/v1/payments", "10.0.0.1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("blocks over limit", func(t *testing.T) {
		rl := NewRateLimiter(2, time.Minute)
		defer rl.Stop()
		router := newRateLimitedRouter(RateLimit(rl), "/api/v1/payments")

		doPost(router, "/api/v1/payments", "10.0.0.1", nil)
		doPost(router, "/api/v1/payments", "10.0.0.1", nil)
		w := doPost(router, "/api/v1/payments", "10.0.0.1", nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
		assert.Contains(t, w.Body.String(), "Too many requests")
	})

	t.Run("company header scopes the key", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		defer rl.Stop()
		router := newRateLimitedRouter(RateLimit(rl), "/api/v1/payments")

		w := doPost(router, "/api/v1/payments", "10.0.0.1", map[string]string{"X-Company-ID": "1"})
		assert.Equal(t, http.StatusOK, w.Code)

		// Same IP, different company: separate bucket.
		w = doPost(router, "/api/v1/payments", "10.0.0.1", map[string]string{"X-Company-ID": "2"})
		assert.Equal(t, http.StatusOK, w.Code)

		w = doPost(router, "/api/v1/payments", "10.0.0.1", map[string]string{"X-Company-ID": "1"})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	keyFunc := func(c *gin.Context) string {
		return c.GetHeader("X-User-ID")
	}
	router := newRateLimitedRouter(RateLimitByKey(rl, keyFunc), "/api/v1/payments/register")

	w := doPost(router, "/api/v1/payments/register", "10.0.0.1", map[string]string{"X-User-ID": "7"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doPost(router, "/api/v1/payments/register", "10.0.0.2", map[string]string{"X-User-ID": "7"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = doPost(router, "/api/v1/payments/register", "10.0.0.1", map[string]string{"X-User-ID": "8"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	t.Run("allows within limit with headers", func(t *testing.T) {
		rl := NewRateLimiter(5, time.Minute)
		defer rl.Stop()
		router := newRateLimitedRouter(AuthRateLimit(rl), "/api/v1/auth/login")

		w := doPost(router, "/api/v1/auth/login", "10.0.0.1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("blocks with auth-specific error and Retry-After", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		defer rl.Stop()
		router := newRateLimitedRouter(AuthRateLimit(rl), "/api/v1/auth/login")

		doPost(router, "/api/v1/auth/login", "10.0.0.1", nil)
		w := doPost(router, "/api/v1/auth/login", "10.0.0.1", nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "AUTH_RATE_LIMIT_EXCEEDED")
		assert.Contains(t, w.Body.String(), "Too many authentication attempts")
		assert.Equal(t, "60", w.Header().Get("Retry-After"))
	})

	t.Run("limits per client IP", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		defer rl.Stop()
		router := newRateLimitedRouter(AuthRateLimit(rl), "/api/v1/auth/login")

		w := doPost(router, "/api/v1/auth/login", "10.0.0.1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doPost(router, "/api/v1/auth/login", "10.0.0.2", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doPost(router, "/api/v1/auth/login", "10.0.0.1", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("auth prefix isolates from general traffic", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		defer rl.Stop()

		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.POST("/api/v1/auth/login", AuthRateLimit(rl), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		router.GET("/api/v1/payments", RateLimit(rl), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})

		// Exhaust the general bucket for this IP.
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		// Login still has its own bucket.
		w = doPost(router, "/api/v1/auth/login", "10.0.0.1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
