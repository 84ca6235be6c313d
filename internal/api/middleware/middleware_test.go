package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notify-service/internal/auth"
	"notify-service/internal/models"
	"notify-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct{}

func (fakeAuthenticator) Authenticate(_ context.Context, token string) (*auth.Identity, error) {
	switch token {
	case "good":
		return &auth.Identity{UserID: 7, Username: "alice"}, nil
	case "inactive":
		return nil, auth.ErrUserInactive
	case "ghost":
		return nil, auth.ErrUserNotFound
	case "boom":
		return nil, errors.New("database unavailable")
	default:
		return nil, auth.ErrInvalidToken
	}
}

type fakeLimiter struct {
	hits  map[string]int
	limit int
	err   error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.hits == nil {
		f.hits = map[string]int{}
	}
	f.hits[key]++
	return f.hits[key] <= limit, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func perform(engine *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	engine := gin.New()
	engine.GET("/me", NewAuthMiddleware(fakeAuthenticator{}).RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet(ContextUserID), "username": c.MustGet(ContextUsername)})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantCode: response.ErrCodeTokenMissing},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: response.ErrCodeTokenMissing},
		{name: "invalid token", header: "Bearer forged", wantStatus: http.StatusUnauthorized, wantCode: response.ErrCodeTokenInvalid},
		{name: "unknown user", header: "Bearer ghost", wantStatus: http.StatusUnauthorized, wantCode: response.ErrCodeUserNotFound},
		{name: "inactive user", header: "Bearer inactive", wantStatus: http.StatusUnauthorized, wantCode: response.ErrCodeUserInactive},
		{name: "lookup failure", header: "Bearer boom", wantStatus: http.StatusInternalServerError, wantCode: response.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}
			w := perform(engine, http.MethodGet, "/me", header)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		header := http.Header{}
		header.Set("Authorization", "Bearer good")
		w := perform(engine, http.MethodGet, "/me", header)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":7,"username":"alice"}`, w.Body.String())
	})
}

func TestRequireInternalKey(t *testing.T) {
	newEngine := func(key string) *gin.Engine {
		engine := gin.New()
		engine.POST("/events", RequireInternalKey(key), func(c *gin.Context) { c.Status(http.StatusAccepted) })
		return engine
	}

	header := http.Header{}
	header.Set(InternalKeyHeader, "s3cret")

	assert.Equal(t, http.StatusForbidden, perform(newEngine(""), http.MethodPost, "/events", header).Code, "no key configured")
	assert.Equal(t, http.StatusForbidden, perform(newEngine("other"), http.MethodPost, "/events", header).Code)
	assert.Equal(t, http.StatusForbidden, perform(newEngine("s3cret"), http.MethodPost, "/events", nil).Code)
	assert.Equal(t, http.StatusAccepted, perform(newEngine("s3cret"), http.MethodPost, "/events", header).Code)
}

func TestRateLimitIP(t *testing.T) {
	limiter := &fakeLimiter{}
	engine := gin.New()
	engine.GET("/ws", NewRateLimitMiddleware(limiter, discardLogger()).RateLimitIP(2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/ws", nil).Code)
	assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/ws", nil).Code)

	w := perform(engine, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, response.ErrCodeRateLimited, decodeError(t, w).Code)
}

func TestRateLimit_PerUser(t *testing.T) {
	limiter := &fakeLimiter{}
	rl := NewRateLimitMiddleware(limiter, discardLogger())

	engine := gin.New()
	engine.GET("/anon", rl.RateLimit(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/me", func(c *gin.Context) {
		c.Set(ContextUserID, uint(7))
		c.Next()
	}, rl.RateLimit(1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, perform(engine, http.MethodGet, "/anon", nil).Code)
	assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(engine, http.MethodGet, "/me", nil).Code)
	assert.Contains(t, limiter.hits, "rate_limit:7:/me")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis: connection refused")}
	engine := gin.New()
	engine.GET("/ws", NewRateLimitMiddleware(limiter, discardLogger()).RateLimitIP(1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/ws", nil).Code)
	}
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"https://social.example.com"}))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	header := http.Header{}
	header.Set("Origin", "https://social.example.com")
	w := perform(engine, http.MethodGet, "/x", header)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://social.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	header.Set("Origin", "https://evil.example.net")
	w = perform(engine, http.MethodGet, "/x", header)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	header.Set("Origin", "http://localhost:3000")
	w = perform(engine, http.MethodOptions, "/x", header)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
