package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/payments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemRequest(t *testing.T, handle gin.HandlerFunc, path string) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)

	handle(c)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler()
	require.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler()

	w, resp := systemRequest(t, h.GetSystemInfo, "/system/info")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Payments API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler()

	w, resp := systemRequest(t, h.Ping, "/system/ping")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])

	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}

func TestSystemHandler_RegisterRoutes(t *testing.T) {
	h := NewSystemHandler()

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1"))

	for _, path := range []string{"/api/v1/system/info", "/api/v1/system/ping"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
