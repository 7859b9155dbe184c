// Package system serves the probes and metrics scraped by the platform.
package system

import (
	"net/http"
	"sync/atomic"

	registryroute "github.com/chirino/social-service/internal/registry/route"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ready atomic.Bool

// MarkReady flips /ready to 200. The server calls it once every subsystem is
// up and the listener is bound.
func MarkReady() {
	ready.Store(true)
}

func init() {
	registryroute.Register(registryroute.Plugin{
		Name:   "system",
		Type:   registryroute.RouteTypeManagement,
		Loader: mount,
	})
}

func mount(r *gin.Engine, _ registryroute.Services) error {
	r.GET("/health", health)
	r.GET("/ready", readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return nil
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readiness(c *gin.Context) {
	if !ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
