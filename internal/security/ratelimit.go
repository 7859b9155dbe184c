package security

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const visitorIdleTTL = 5 * time.Minute

// RateLimiter hands out one token bucket per caller. Authenticated callers are
// keyed by user id, anonymous ones by client IP.
type RateLimiter struct {
	visitors sync.Map
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type visitor struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per caller with the
// given burst. The idle-visitor sweeper stops when ctx is cancelled.
func NewRateLimiter(ctx context.Context, perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &RateLimiter{limit: rate.Limit(perSecond), burst: burst, now: time.Now}
	go l.sweep(ctx)
	return l
}

// Allow reports whether the caller identified by key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	v, _ := l.visitors.LoadOrStore(key, &visitor{limiter: rate.NewLimiter(l.limit, l.burst)})
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = now
	vi.mu.Unlock()
	return vi.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle(l.now().Add(-visitorIdleTTL))
		}
	}
}

func (l *RateLimiter) evictIdle(cutoff time.Time) {
	l.visitors.Range(func(k, v any) bool {
		vi := v.(*visitor)
		vi.mu.Lock()
		idle := vi.lastSeen.Before(cutoff)
		vi.mu.Unlock()
		if idle {
			l.visitors.Delete(k)
		}
		return true
	})
}

// RateLimitMiddleware rejects callers that exceed the limiter with 429. It must run
// after AuthMiddleware to key on the user rather than the client address.
func RateLimitMiddleware(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if id := GetUserID(c); id != uuid.Nil {
			key = id.String()
		}
		if l.Allow(key) {
			c.Next()
			return
		}
		route := c.FullPath()
		if RateLimitedTotal != nil {
			RateLimitedTotal.WithLabelValues(route).Inc()
		}
		log.Warn("Rate limit exceeded", "key", key, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}
