package security

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccessLogMiddleware logs each HTTP request with method, path, status, duration
// and the authenticated user when there is one. Paths listed in skipPaths are
// passed through without logging.
func AccessLogMiddleware(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration,
			"clientIP", c.ClientIP(),
		}
		if id := GetUserID(c); id != uuid.Nil {
			kv = append(kv, "user", id)
		}
		if c.Writer.Status() >= 500 {
			log.Error("HTTP request", kv...)
			return
		}
		log.Info("HTTP request", kv...)
	}
}
