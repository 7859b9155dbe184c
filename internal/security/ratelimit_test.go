package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThenReject(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewRateLimiter(ctx, 1, 2)
	fixed := time.Now()
	l.now = func() time.Time { return fixed }

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))
	require.True(t, l.Allow("b"), "callers have independent buckets")

	fixed = fixed.Add(time.Second)
	require.True(t, l.Allow("a"), "bucket refills over time")
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewRateLimiter(ctx, 1, 1)
	start := time.Now()
	l.now = func() time.Time { return start }
	l.Allow("idle")

	l.evictIdle(start.Add(time.Second))
	_, ok := l.visitors.Load("idle")
	require.False(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewRateLimiter(ctx, 0.001, 1)

	router := gin.New()
	router.POST("/messages", RateLimitMiddleware(l), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}
