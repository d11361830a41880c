package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestCORS_DefaultConfig(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("rejects cross-origin requests until origins are configured", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "http://unknown.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin requests pass", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight still answers 204 without CORS headers", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/invoices", nil)
		req.Header.Set("Origin", "http://unknown.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSWithConfig(t *testing.T) {
	t.Run("allows listed origin with credentials", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins:     []string{"http://localhost:3000", "https://erp.example.com"},
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		})

		for _, origin := range []string{"http://localhost:3000", "https://erp.example.com"} {
			req := httptest.NewRequest("GET", "/invoices", nil)
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		}
	})

	t.Run("unlisted origin gets no CORS headers", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{"https://erp.example.com"},
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "http://not-allowed.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin but never credentials", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true,
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "http://anywhere.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("sets Max-Age in seconds", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("exposes configured headers", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins:  []string{"http://localhost:3000"},
			AllowMethods:  []string{"GET"},
			AllowHeaders:  []string{"Content-Type"},
			ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining"},
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "X-Request-ID, X-RateLimit-Remaining", w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("preflight from allowed origin carries methods and headers", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
			AllowMethods: []string{"GET", "POST", "PUT"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
		})

		req := httptest.NewRequest("OPTIONS", "/invoices", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("preflight from unlisted origin answers 204 without headers", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{"https://erp.example.com"},
			AllowMethods: []string{"GET", "POST"},
		})

		req := httptest.NewRequest("OPTIONS", "/invoices", nil)
		req.Header.Set("Origin", "http://not-allowed.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins, "origins must be configured explicitly")
	assert.Contains(t, cfg.AllowMethods, "GET")
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.Contains(t, cfg.AllowHeaders, "X-Company-ID")
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates an ID when none is provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	})

	t.Run("honors the inbound X-Request-ID header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/invoices", nil)
		req.Header.Set("X-Request-ID", "gateway-trace-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "gateway-trace-42", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "gateway-trace-42", w.Body.String())
	})
}

func TestGenerateRequestID(t *testing.T) {
	id1 := generateRequestID()
	id2 := generateRequestID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 32, "16 random bytes hex encoded")
}

func secureRouter(cfg SecurityConfig) *gin.Engine {
	router := gin.New()
	router.Use(SecureWithConfig(cfg))
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/invoices", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("GET", "/invoices", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "1; mode=block", w.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))

	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")

	// HSTS stays off until HTTPS is in place
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	permPolicy := w.Header().Get("Permissions-Policy")
	assert.Contains(t, permPolicy, "camera=()")
	assert.Contains(t, permPolicy, "microphone=()")
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("custom CSP directive", func(t *testing.T) {
		router := secureRouter(SecurityConfig{
			CSPEnabled:   true,
			CSPDirective: "default-src 'none'; script-src 'self'",
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "default-src 'none'; script-src 'self'", w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("HSTS with all options", func(t *testing.T) {
		router := secureRouter(SecurityConfig{
			HSTSEnabled:           true,
			HSTSMaxAge:            63072000,
			HSTSIncludeSubdomains: true,
			HSTSPreload:           true,
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "max-age=63072000; includeSubDomains; preload",
			w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("HSTS without optional flags", func(t *testing.T) {
		router := secureRouter(SecurityConfig{
			HSTSEnabled: true,
			HSTSMaxAge:  31536000,
		})

		req := httptest.NewRequest("GET", "/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "max-age=31536000", w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("everything disabled keeps only the basic headers", func(t *testing.T) {
		router := secureRouter(SecurityConfig{})

		req := httptest.NewRequest("GET", "/invoices", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		assert.Empty(t, w.Header().Get("Permissions-Policy"))
	})
}

func TestDefaultSecurityConfig(t *testing.T) {
	cfg := DefaultSecurityConfig()

	assert.False(t, cfg.HSTSEnabled)
	assert.Equal(t, 31536000, cfg.HSTSMaxAge)
	assert.True(t, cfg.HSTSIncludeSubdomains)
	assert.False(t, cfg.HSTSPreload)

	assert.True(t, cfg.CSPEnabled)
	assert.Contains(t, cfg.CSPDirective, "default-src 'self'")

	assert.True(t, cfg.PermissionsPolicyEnabled)
	assert.Contains(t, cfg.PermissionsPolicyDirective, "camera=()")
}
