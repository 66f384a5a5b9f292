package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := newRouter(APIKeyMiddleware("secret"))
	assert.Equal(t, http.StatusUnauthorized, get(r, ""))
	assert.Equal(t, http.StatusUnauthorized, get(r, "wrong"))
	assert.Equal(t, http.StatusOK, get(r, "secret"))
}

func TestAPIKeyMiddlewareDisabled(t *testing.T) {
	r := newRouter(APIKeyMiddleware(""))
	assert.Equal(t, http.StatusOK, get(r, ""))
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newRouter(RateLimitMiddleware(0.001, 2))
	assert.Equal(t, http.StatusOK, get(r, ""))
	assert.Equal(t, http.StatusOK, get(r, ""))
	assert.Equal(t, http.StatusTooManyRequests, get(r, ""))
}
