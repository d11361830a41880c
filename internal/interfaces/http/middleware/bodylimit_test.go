package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/payments", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("allows request within limit", func(t *testing.T) {
		router := bodyLimitRouter(1024)

		req := httptest.NewRequest("POST", "/payments", bytes.NewReader([]byte(`{"journal_code":"BNK1"}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects oversized Content-Length", func(t *testing.T) {
		router := bodyLimitRouter(100)

		req := httptest.NewRequest("POST", "/payments", bytes.NewReader([]byte(strings.Repeat("x", 200))))
		req.ContentLength = 200
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("bodyless requests pass", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(10))
		router.GET("/payments", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/payments", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-positive limit disables the check", func(t *testing.T) {
		router := bodyLimitRouter(0)

		req := httptest.NewRequest("POST", "/payments", bytes.NewReader([]byte(strings.Repeat("x", 4096))))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("caps chunked uploads with MaxBytesReader", func(t *testing.T) {
		router := gin.New()
		router.Use(BodyLimit(50))
		router.POST("/payments", func(c *gin.Context) {
			buf := make([]byte, 200)
			if _, err := c.Request.Body.Read(buf); err != nil {
				c.String(http.StatusBadRequest, "body too large")
				return
			}
			c.String(http.StatusOK, "ok")
		})

		// No Content-Length, so the declared-length check cannot fire
		req := httptest.NewRequest("POST", "/payments", strings.NewReader(strings.Repeat("x", 100)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
