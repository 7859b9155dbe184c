package serve

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowHeaders = "Authorization, Content-Type"
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
)

// allowedOrigins is the browser origin allow-list. Empty means any origin.
type allowedOrigins []string

// parseOrigins reads a comma separated list; "*" or an empty list allows any origin.
func parseOrigins(csv string) allowedOrigins {
	var out allowedOrigins
	for origin := range strings.SplitSeq(csv, ",") {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			return nil
		}
		if origin != "" && !slices.Contains(out, origin) {
			out = append(out, origin)
		}
	}
	return out
}

func (a allowedOrigins) allows(origin string) bool {
	return origin != "" && (len(a) == 0 || slices.Contains(a, origin))
}

// corsMiddleware lets the web client call the API with bearer tokens from the
// configured origins and short-circuits preflight requests.
func corsMiddleware(csv string) gin.HandlerFunc {
	origins := parseOrigins(csv)
	return func(c *gin.Context) {
		if origin := strings.TrimSpace(c.GetHeader("Origin")); origins.allows(origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
